// Package config implements ledger network configuration options.
package config

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// DefaultProgramID is the oracle program deployed on the public clusters.
const DefaultProgramID = "SW1TCH7qEPTdLsDHRgPuMQjbQxKdH2aBStViMFnt64f"

// Config is the network configuration structure.
type Config struct {
	// RPC endpoint.
	RPC string `yaml:"rpc"`
	// Commitment used for reads and preflight (processed, confirmed, finalized).
	Commitment string `yaml:"commitment,omitempty"`
	// Disable preflight simulation.
	SkipPreflight bool `yaml:"skip_preflight,omitempty"`
	// Number of broadcast retries performed by the node.
	MaxRetries uint `yaml:"max_retries,omitempty"`

	// Oracle program.
	ProgramID string `yaml:"program_id"`
	// Crank account. The queue and row buffer are read from it.
	Crank string `yaml:"crank"`
	// Queue authority.
	Authority string `yaml:"authority"`
	// Queue data buffer.
	QueueBuffer string `yaml:"queue_buffer"`
	// Queue token mint.
	Mint string `yaml:"mint,omitempty"`

	// Path to the payer keypair (solana-keygen JSON).
	PayerKeypair string `yaml:"payer_keypair"`
	// Token wallet receiving pop rewards, defaults to the payer's associated
	// token account.
	PayoutWallet string `yaml:"payout_wallet,omitempty"`
}

// Validate validates the configuration settings.
func (c *Config) Validate() error {
	if c.RPC == "" {
		return fmt.Errorf("missing rpc endpoint")
	}
	switch rpc.CommitmentType(c.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("unknown commitment: %s", c.Commitment)
	}
	if c.PayerKeypair == "" {
		return fmt.Errorf("missing payer_keypair")
	}

	for _, v := range []struct {
		name     string
		value    string
		optional bool
	}{
		{"program_id", c.ProgramID, false},
		{"crank", c.Crank, false},
		{"authority", c.Authority, false},
		{"queue_buffer", c.QueueBuffer, false},
		{"mint", c.Mint, true},
		{"payout_wallet", c.PayoutWallet, true},
	} {
		if v.value == "" {
			if v.optional {
				continue
			}
			return fmt.Errorf("missing %s", v.name)
		}
		if _, err := solana.PublicKeyFromBase58(v.value); err != nil {
			return fmt.Errorf("malformed %s: %w", v.name, err)
		}
	}

	return nil
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() Config {
	return Config{
		RPC:        rpc.DevNet_RPC,
		Commitment: string(rpc.CommitmentConfirmed),
		ProgramID:  DefaultProgramID,
		Mint:       solana.WrappedSol.String(),
	}
}
