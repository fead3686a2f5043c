package oracle

import (
	"bytes"
	"fmt"

	"github.com/near/borsh-go"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/resolver"
)

// CrankAccountSize is the size of an encoded crank account, excluding the
// discriminator.
const CrankAccountSize = 32 + 64 + 32 + 4 + 4 + 1 + 255 + 32

// CrankAccount is the crank account.
type CrankAccount struct {
	Name           [32]byte
	Metadata       [64]byte
	QueuePubkey    api.Reference
	PqSize         uint32
	MaxRows        uint32
	JitterModifier uint8
	Ebuf           [255]byte
	DataBuffer     api.Reference
}

// NameString returns the crank name with trailing padding removed.
func (c *CrankAccount) NameString() string {
	return string(bytes.TrimRight(c.Name[:], "\x00"))
}

// DecodeCrankAccount decodes raw crank account data.
func DecodeCrankAccount(data []byte) (*CrankAccount, error) {
	if len(data) < resolver.DiscriminatorSize+CrankAccountSize {
		return nil, errors.WithContext(api.ErrMalformedBuffer, fmt.Sprintf("crank account: %d bytes", len(data)))
	}
	disc := AccountDiscriminator(AccountCrank)
	if !bytes.Equal(data[:resolver.DiscriminatorSize], disc[:]) {
		return nil, errors.WithContext(api.ErrMalformedBuffer, "crank account: invalid discriminator")
	}

	var acct CrankAccount
	body := data[resolver.DiscriminatorSize : resolver.DiscriminatorSize+CrankAccountSize]
	if err := borsh.Deserialize(&acct, body); err != nil {
		return nil, fmt.Errorf("oracle: failed to decode crank account: %w", err)
	}
	return &acct, nil
}

// EncodeCrankAccount encodes a crank account, including its discriminator.
func EncodeCrankAccount(acct *CrankAccount) ([]byte, error) {
	body, err := borsh.Serialize(*acct)
	if err != nil {
		return nil, fmt.Errorf("oracle: failed to encode crank account: %w", err)
	}
	disc := AccountDiscriminator(AccountCrank)
	return append(disc[:], body...), nil
}
