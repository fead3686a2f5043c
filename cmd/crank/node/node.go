// Package node assembles a crank scheduler from configuration.
package node

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/switchboard-xyz/sbv2-solana-sub000/client"
	networkConfig "github.com/switchboard-xyz/sbv2-solana-sub000/client/config"
	cmnBackoff "github.com/switchboard-xyz/sbv2-solana-sub000/common/backoff"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/config"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	crankConfig "github.com/switchboard-xyz/sbv2-solana-sub000/crank/config"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/driver"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/history"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/packer"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/resolver"
	"github.com/switchboard-xyz/sbv2-solana-sub000/program/oracle"
)

const maxLoadRetries = 5

// HistoryDir is the history store directory relative to the data directory.
const HistoryDir = "history"

// Node is an assembled crank scheduler.
type Node struct {
	logger *logging.Logger

	Config   *config.Config
	Client   *client.Client
	Network  *api.Network
	Crank    *oracle.CrankAccount
	Resolver *resolver.Resolver
	Driver   *driver.Driver

	// History is nil when history is disabled.
	History *history.Store
}

// NewWorker creates a scheduling worker recording into the node's history.
func (n *Node) NewWorker() *driver.Worker {
	var recorder driver.Recorder
	if n.History != nil {
		recorder = n.History
	}

	cfg := n.Config.Crank
	return driver.NewWorker(n.Driver, recorder, driver.WorkerConfig{
		Interval:      cfg.Interval,
		MaxBackoff:    cfg.MaxBackoff,
		RecentReports: cfg.RecentReports,
	})
}

// Close releases the node's resources.
func (n *Node) Close() error {
	if n.History == nil {
		return nil
	}
	return n.History.Close()
}

// LoadNetwork builds the network context from configuration, reading the
// queue and the row buffer from the crank account.
func LoadNetwork(ctx context.Context, cfg *networkConfig.Config, payer api.Reference, fetcher api.AccountFetcher) (*api.Network, *oracle.CrankAccount, error) {
	var (
		network api.Network
		err     error
	)
	for _, v := range []struct {
		dst   *api.Reference
		value string
	}{
		{&network.ProgramID, cfg.ProgramID},
		{&network.Crank, cfg.Crank},
		{&network.Authority, cfg.Authority},
		{&network.QueueBuffer, cfg.QueueBuffer},
	} {
		if *v.dst, err = solana.PublicKeyFromBase58(v.value); err != nil {
			return nil, nil, fmt.Errorf("node: malformed account %q: %w", v.value, err)
		}
	}

	network.Mint = solana.WrappedSol
	if cfg.Mint != "" {
		if network.Mint, err = solana.PublicKeyFromBase58(cfg.Mint); err != nil {
			return nil, nil, fmt.Errorf("node: malformed mint: %w", err)
		}
	}

	if network.ProgramState, network.StateBump, err = resolver.DeriveProgramState(network.ProgramID); err != nil {
		return nil, nil, err
	}

	network.Payer = payer
	switch cfg.PayoutWallet {
	case "":
		if network.PayoutWallet, err = resolver.DeriveEscrow(payer, network.Mint); err != nil {
			return nil, nil, err
		}
	default:
		if network.PayoutWallet, err = solana.PublicKeyFromBase58(cfg.PayoutWallet); err != nil {
			return nil, nil, fmt.Errorf("node: malformed payout wallet: %w", err)
		}
	}

	crank, err := LoadCrank(ctx, fetcher, network.Crank)
	if err != nil {
		return nil, nil, err
	}
	network.Queue = crank.QueuePubkey
	network.CrankBuffer = crank.DataBuffer

	return &network, crank, nil
}

// LoadCrank fetches and decodes a crank account, retrying transient
// failures.
func LoadCrank(ctx context.Context, fetcher api.AccountFetcher, id api.Reference) (*oracle.CrankAccount, error) {
	var crank *oracle.CrankAccount
	load := func() error {
		data, err := fetcher.FetchAccount(ctx, id)
		switch {
		case err == nil:
		case errors.Is(err, api.ErrNotFound):
			return backoff.Permanent(err)
		default:
			return err
		}
		if crank, err = oracle.DecodeCrankAccount(data); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	boff := backoff.WithContext(backoff.WithMaxRetries(cmnBackoff.NewExponentialBackOff(), maxLoadRetries), ctx)
	if err := backoff.Retry(load, boff); err != nil {
		return nil, fmt.Errorf("node: failed to load crank %s: %w", id, err)
	}
	return crank, nil
}

// NewClassifier creates the configured row classifier.
func NewClassifier(cfg *crankConfig.Config, fetcher api.AccountFetcher) (api.Classifier, error) {
	switch cfg.Classifier {
	case crankConfig.ClassifierStatic:
		return &resolver.StaticClassifier{Kind: cfg.DefaultKind}, nil
	case crankConfig.ClassifierAccount:
		return resolver.NewAccountClassifier(
			fetcher,
			oracle.AccountKinds(),
			cfg.DefaultKind,
			cfg.FetchConcurrency,
			cfg.CacheSize,
		)
	default:
		return nil, fmt.Errorf("node: unknown classifier: %s", cfg.Classifier)
	}
}

// NewDriver assembles a scheduling driver for the given network.
func NewDriver(
	network *api.Network,
	cfg *crankConfig.Config,
	fetcher api.AccountFetcher,
	submitter api.Submitter,
	clock driver.Clock,
) (*driver.Driver, *resolver.Resolver, error) {
	classifier, err := NewClassifier(cfg, fetcher)
	if err != nil {
		return nil, nil, err
	}
	res, err := resolver.New(*network, cfg.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	builder := oracle.NewBuilder(*network, oracle.BuilderOptions{
		FailOpenOnAccountMismatch: cfg.FailOpen,
	})
	pk, err := packer.New(builder, cfg.Ceiling, cfg.MaxOperationsPerUnit)
	if err != nil {
		return nil, nil, err
	}

	d, err := driver.New(driver.Params{
		Network:    *network,
		Fetcher:    fetcher,
		Classifier: classifier,
		Resolver:   res,
		Builder:    builder,
		Packer:     pk,
		Submitter:  submitter,
		Clock:      clock,
		MaxRows:    cfg.MaxRowsPerCycle,
	})
	if err != nil {
		return nil, nil, err
	}
	return d, res, nil
}

// NewClient creates a ledger client from configuration.
func NewClient(cfg *networkConfig.Config) (*client.Client, error) {
	payer, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.PayerKeypair)
	if err != nil {
		return nil, fmt.Errorf("node: failed to load payer keypair: %w", err)
	}

	return client.New(cfg.RPC, payer, client.Options{
		Commitment:    rpc.CommitmentType(cfg.Commitment),
		SkipPreflight: cfg.SkipPreflight,
		MaxRetries:    cfg.MaxRetries,
	}), nil
}

// New assembles a crank scheduler from configuration. The history store is
// opened under the data directory when enabled and withHistory is set.
func New(ctx context.Context, cfg *config.Config, withHistory bool) (*Node, error) {
	logger := logging.GetLogger("node")

	cl, err := NewClient(&cfg.Network)
	if err != nil {
		return nil, err
	}
	network, crank, err := LoadNetwork(ctx, &cfg.Network, cl.Payer(), cl)
	if err != nil {
		return nil, err
	}

	var clock driver.Clock
	if cfg.Crank.LedgerClock {
		clock = cl.Now
	}
	d, res, err := NewDriver(network, &cfg.Crank, cl, cl, clock)
	if err != nil {
		return nil, err
	}

	n := &Node{
		logger:   logger,
		Config:   cfg,
		Client:   cl,
		Network:  network,
		Crank:    crank,
		Resolver: res,
		Driver:   d,
	}
	if withHistory && cfg.History.Enabled {
		dir := filepath.Join(cfg.Common.DataDir, HistoryDir)
		if n.History, err = history.New(dir, network.Crank, &cfg.History); err != nil {
			return nil, err
		}
	}

	logger.Info("crank loaded",
		"crank", network.Crank,
		"name", crank.NameString(),
		"queue", network.Queue,
		"buffer", network.CrankBuffer,
		"capacity", crank.MaxRows,
		"payer", network.Payer,
	)

	return n, nil
}
