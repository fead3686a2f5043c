package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	networkConfig "github.com/switchboard-xyz/sbv2-solana-sub000/client/config"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	crankConfig "github.com/switchboard-xyz/sbv2-solana-sub000/crank/config"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/resolver"
	"github.com/switchboard-xyz/sbv2-solana-sub000/program/oracle"
)

type flakyFetcher struct {
	sync.Mutex

	accounts map[api.Reference][]byte
	failures int
	calls    int
}

func (f *flakyFetcher) FetchAccount(_ context.Context, id api.Reference) ([]byte, error) {
	f.Lock()
	defer f.Unlock()

	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("connection reset")
	}
	data, ok := f.accounts[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return data, nil
}

func testNetworkConfig(crank api.Reference) *networkConfig.Config {
	cfg := networkConfig.DefaultConfig()
	cfg.Crank = crank.String()
	cfg.Authority = solana.SysVarClockPubkey.String()
	cfg.QueueBuffer = solana.TokenProgramID.String()
	cfg.PayerKeypair = "payer.json"
	return &cfg
}

func testCrankAccount(t *testing.T, queue, buffer api.Reference) []byte {
	acct := oracle.CrankAccount{
		QueuePubkey: queue,
		MaxRows:     100,
		DataBuffer:  buffer,
	}
	copy(acct.Name[:], "test crank")

	data, err := oracle.EncodeCrankAccount(&acct)
	require.NoError(t, err, "EncodeCrankAccount")
	return data
}

func TestLoadNetwork(t *testing.T) {
	require := require.New(t)

	crank := solana.NewWallet().PublicKey()
	queue := solana.NewWallet().PublicKey()
	buf := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()

	fetcher := &flakyFetcher{
		accounts: map[api.Reference][]byte{crank: testCrankAccount(t, queue, buf)},
		failures: 1,
	}
	cfg := testNetworkConfig(crank)

	network, acct, err := LoadNetwork(context.Background(), cfg, payer, fetcher)
	require.NoError(err, "LoadNetwork")
	require.Equal(2, fetcher.calls, "transient failures must be retried")
	require.Equal("test crank", acct.NameString())

	require.Equal(crank, network.Crank)
	require.Equal(queue, network.Queue)
	require.Equal(buf, network.CrankBuffer)
	require.Equal(solana.WrappedSol, network.Mint, "mint defaults to wrapped SOL")
	require.Equal(payer, network.Payer)

	state, bump, err := resolver.DeriveProgramState(network.ProgramID)
	require.NoError(err)
	require.Equal(state, network.ProgramState)
	require.Equal(bump, network.StateBump)

	wallet, err := resolver.DeriveEscrow(payer, solana.WrappedSol)
	require.NoError(err)
	require.Equal(wallet, network.PayoutWallet, "payout wallet defaults to the payer's token account")

	cfg.PayoutWallet = solana.SystemProgramID.String()
	network, _, err = LoadNetwork(context.Background(), cfg, payer, fetcher)
	require.NoError(err)
	require.Equal(solana.SystemProgramID, network.PayoutWallet)
}

func TestLoadNetworkMissingCrank(t *testing.T) {
	require := require.New(t)

	fetcher := &flakyFetcher{accounts: map[api.Reference][]byte{}}
	cfg := testNetworkConfig(solana.NewWallet().PublicKey())

	_, _, err := LoadNetwork(context.Background(), cfg, solana.NewWallet().PublicKey(), fetcher)
	require.ErrorIs(err, api.ErrNotFound)
	require.Equal(1, fetcher.calls, "missing accounts must not be retried")

	crank := solana.NewWallet().PublicKey()
	fetcher.accounts[crank] = []byte("definitely not a crank")
	_, _, err = LoadNetwork(context.Background(), testNetworkConfig(crank), solana.NewWallet().PublicKey(), fetcher)
	require.ErrorIs(err, api.ErrMalformedBuffer)
}

func TestNewDriver(t *testing.T) {
	require := require.New(t)

	network := &api.Network{
		ProgramID: solana.MustPublicKeyFromBase58(networkConfig.DefaultProgramID),
		Crank:     solana.NewWallet().PublicKey(),
		Queue:     solana.NewWallet().PublicKey(),
	}
	fetcher := &flakyFetcher{accounts: map[api.Reference][]byte{}}

	cfg := crankConfig.DefaultConfig()
	classifier, err := NewClassifier(&cfg, fetcher)
	require.NoError(err)
	require.IsType(&resolver.AccountClassifier{}, classifier)

	cfg.Classifier = crankConfig.ClassifierStatic
	cfg.DefaultKind = api.KindVrf
	classifier, err = NewClassifier(&cfg, fetcher)
	require.NoError(err)
	kinds, err := classifier.Classify(context.Background(), []api.Reference{network.Crank})
	require.NoError(err)
	require.Equal([]api.Kind{api.KindVrf}, kinds)

	d, res, err := NewDriver(network, &cfg, fetcher, nil, nil)
	require.Error(err, "a submitter is required")
	require.Nil(d)
	require.Nil(res)

	cfg.Ceiling = 0
	_, _, err = NewDriver(network, &cfg, fetcher, nil, nil)
	require.Error(err, "the ceiling must be positive")
}

func TestNewClient(t *testing.T) {
	require := require.New(t)

	key := solana.NewWallet().PrivateKey
	values := make([]string, 0, len(key))
	for _, b := range key {
		values = append(values, fmt.Sprintf("%d", b))
	}
	path := filepath.Join(t.TempDir(), "payer.json")
	require.NoError(os.WriteFile(path, []byte("["+strings.Join(values, ",")+"]"), 0o600))

	cfg := networkConfig.DefaultConfig()
	cfg.PayerKeypair = path
	cl, err := NewClient(&cfg)
	require.NoError(err, "NewClient")
	require.Equal(key.PublicKey(), cl.Payer())

	cfg.PayerKeypair = filepath.Join(t.TempDir(), "missing.json")
	_, err = NewClient(&cfg)
	require.Error(err)
}
