package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

const testConfig = `
common:
  data_dir: /var/lib/crank
  log:
    format: json
    level:
      default: debug
network:
  rpc: ${CRANK_TEST_RPC}
  crank: ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
  authority: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
  queue_buffer: SysvarC1ock11111111111111111111111111111111
  payer_keypair: /etc/crank/payer.json
crank:
  interval: 2s
  ceiling: 1000
  classifier: static
  default_kind: vrf
`

func TestParse(t *testing.T) {
	require := require.New(t)

	t.Setenv("CRANK_TEST_RPC", "http://127.0.0.1:8899")

	cfg, err := Parse([]byte(testConfig))
	require.NoError(err, "Parse")
	require.Equal("http://127.0.0.1:8899", cfg.Network.RPC, "environment substitution")
	require.Equal("/var/lib/crank", cfg.Common.DataDir)
	require.Equal("json", cfg.Common.Log.Format)
	require.Equal(2*time.Second, cfg.Crank.Interval)
	require.Equal(1000, cfg.Crank.Ceiling)
	require.Equal(api.KindVrf, cfg.Crank.DefaultKind)

	// Defaults are kept for unset fields.
	defaults := DefaultConfig()
	require.Equal(defaults.Network.ProgramID, cfg.Network.ProgramID)
	require.Equal(defaults.Network.Commitment, cfg.Network.Commitment)
	require.Equal(defaults.Crank.FetchConcurrency, cfg.Crank.FetchConcurrency)
	require.Equal(defaults.History, cfg.History)
}

func TestParseInvalid(t *testing.T) {
	require := require.New(t)

	t.Setenv("CRANK_TEST_RPC", "http://127.0.0.1:8899")

	_, err := Parse([]byte(testConfig + "unknown_section: 1\n"))
	require.Error(err, "unknown fields must be rejected")

	_, err = Parse([]byte(testConfig + "metrics:\n  mode: pull\n  address: \"\"\n"))
	require.Error(err, "pull mode requires an address")

	_, err = Parse([]byte("network:\n  rpc: http://localhost\n"))
	require.Error(err, "missing crank")

	_, err = Parse([]byte(`
network:
  crank: not-a-key
`))
	require.Error(err, "malformed crank")
}

func TestInitConfig(t *testing.T) {
	require := require.New(t)

	t.Setenv("CRANK_TEST_RPC", "http://127.0.0.1:8899")

	fn := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(os.WriteFile(fn, []byte(testConfig), 0o600))
	require.NoError(InitConfig(fn), "InitConfig")
	t.Cleanup(func() { GlobalConfig = DefaultConfig() })

	require.Equal("http://127.0.0.1:8899", GlobalConfig.Network.RPC)
	require.Equal(api.KindVrf, GlobalConfig.Crank.DefaultKind)

	require.Error(InitConfig(filepath.Join(t.TempDir(), "missing.yml")))
}
