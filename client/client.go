// Package client implements the ledger RPC backed crank collaborators.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

var (
	_ api.AccountFetcher = (*Client)(nil)
	_ api.Submitter      = (*Client)(nil)
)

// Options are the client options.
type Options struct {
	// Commitment is the commitment used for reads and preflight.
	Commitment rpc.CommitmentType
	// SkipPreflight disables transaction simulation before submission.
	SkipPreflight bool
	// MaxRetries is the number of times the node retries broadcasting a
	// transaction, zero leaves the node default.
	MaxRetries uint
}

// Client is a ledger RPC client.
type Client struct {
	logger *logging.Logger

	rpc   *rpc.Client
	payer solana.PrivateKey
	opts  Options
}

// Payer returns the payer's public key.
func (c *Client) Payer() api.Reference {
	return c.payer.PublicKey()
}

// FetchAccount implements api.AccountFetcher.
func (c *Client) FetchAccount(ctx context.Context, id api.Reference) ([]byte, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, id, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.opts.Commitment,
	})
	switch {
	case err == nil:
	case errors.Is(err, rpc.ErrNotFound):
		return nil, errors.WithContext(api.ErrNotFound, id.String())
	default:
		return nil, fmt.Errorf("client: failed to fetch account %s: %w", id, err)
	}
	if out == nil || out.Value == nil || out.Value.Data == nil {
		return nil, errors.WithContext(api.ErrNotFound, id.String())
	}

	return out.Value.Data.GetBinary(), nil
}

// Now returns the ledger time of the latest block.
func (c *Client) Now(ctx context.Context) (int64, error) {
	slot, err := c.rpc.GetSlot(ctx, c.opts.Commitment)
	if err != nil {
		return 0, fmt.Errorf("client: failed to get slot: %w", err)
	}
	ts, err := c.rpc.GetBlockTime(ctx, slot)
	if err != nil {
		return 0, fmt.Errorf("client: failed to get block time: %w", err)
	}
	if ts == nil {
		return time.Now().Unix(), nil
	}
	return int64(*ts), nil
}

// MinimumBalanceForRentExemption returns the balance required for an account
// of the given size to be rent exempt.
func (c *Client) MinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, size, c.opts.Commitment)
	if err != nil {
		return 0, fmt.Errorf("client: failed to get rent exemption: %w", err)
	}
	return lamports, nil
}

// Submit implements api.Submitter.
func (c *Client) Submit(ctx context.Context, unit *api.Unit) (solana.Signature, error) {
	return c.SendInstructions(ctx, unit.Instructions)
}

// SendInstructions signs the instructions with the payer and any additional
// signers and submits them as a single transaction.
//
// Failures are reported as *api.SubmissionError.
func (c *Client) SendInstructions(ctx context.Context, instructions []solana.Instruction, signers ...solana.PrivateKey) (solana.Signature, error) {
	blockhash, err := c.rpc.GetLatestBlockhash(ctx, c.opts.Commitment)
	if err != nil {
		return solana.Signature{}, classifySendError(fmt.Errorf("client: failed to get blockhash: %w", err))
	}

	tx, err := solana.NewTransaction(instructions, blockhash.Value.Blockhash, solana.TransactionPayer(c.payer.PublicKey()))
	if err != nil {
		return solana.Signature{}, &api.SubmissionError{
			Class: api.ClassFatal,
			Err:   fmt.Errorf("client: failed to build transaction: %w", err),
		}
	}

	keys := append([]solana.PrivateKey{c.payer}, signers...)
	if _, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		for i := range keys {
			if keys[i].PublicKey().Equals(pub) {
				return &keys[i]
			}
		}
		return nil
	}); err != nil {
		return solana.Signature{}, &api.SubmissionError{
			Class: api.ClassFatal,
			Err:   fmt.Errorf("client: failed to sign transaction: %w", err),
		}
	}

	opts := rpc.TransactionOpts{
		SkipPreflight:       c.opts.SkipPreflight,
		PreflightCommitment: c.opts.Commitment,
	}
	if c.opts.MaxRetries > 0 {
		maxRetries := c.opts.MaxRetries
		opts.MaxRetries = &maxRetries
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, classifySendError(err)
	}

	c.logger.Debug("submitted transaction",
		"signature", sig,
		"instructions", len(instructions),
	)

	return sig, nil
}

// New creates a new RPC client.
func New(endpoint string, payer solana.PrivateKey, opts Options) *Client {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}

	return &Client{
		logger: logging.GetLogger("client"),
		rpc:    rpc.New(endpoint),
		payer:  payer,
		opts:   opts,
	}
}
