// Package oracle implements the encoding of the oracle program's crank
// instructions and accounts.
package oracle

import (
	"crypto/sha256"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/resolver"
)

// Account names of the program accounts the crank interacts with.
const (
	AccountAggregator    = "AggregatorAccountData"
	AccountVrf           = "VrfAccountData"
	AccountBufferRelayer = "BufferRelayerAccountData"
	AccountCrank         = "CrankAccountData"
)

// Instruction names.
const (
	InstructionCrankPop  = "crank_pop_v2"
	InstructionCrankPush = "crank_push"
	InstructionCrankInit = "crank_init"
)

func discriminator(namespace, name string) resolver.Discriminator {
	h := sha256.Sum256([]byte(namespace + ":" + name))

	var d resolver.Discriminator
	copy(d[:], h[:])
	return d
}

// InstructionDiscriminator returns the discriminator prefixing the data of
// the named instruction.
func InstructionDiscriminator(name string) resolver.Discriminator {
	return discriminator("global", name)
}

// AccountDiscriminator returns the discriminator prefixing the data of the
// named account type.
func AccountDiscriminator(name string) resolver.Discriminator {
	return discriminator("account", name)
}

// AccountKinds returns the account discriminators of every crankable kind.
func AccountKinds() map[resolver.Discriminator]api.Kind {
	return map[resolver.Discriminator]api.Kind{
		AccountDiscriminator(AccountAggregator):    api.KindAggregator,
		AccountDiscriminator(AccountVrf):           api.KindVrf,
		AccountDiscriminator(AccountBufferRelayer): api.KindBufferRelayer,
	}
}
