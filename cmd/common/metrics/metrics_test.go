package metrics

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common/metrics/config"
)

func TestNewModes(t *testing.T) {
	require := require.New(t)

	cfg := config.DefaultConfig()
	svc, err := New(&cfg)
	require.NoError(err)
	require.Equal("metrics", svc.Name())
	require.False(Enabled(&cfg))

	cfg.Mode = "carrier-pigeon"
	_, err = New(&cfg)
	require.Error(err)

	cfg.Mode = MetricsModePush
	_, err = New(&cfg)
	require.Error(err, "push mode requires a job name")

	cfg.JobName = "crank"
	svc, err = New(&cfg)
	require.NoError(err)
	require.True(Enabled(&cfg))
	require.IsType(&exporter{}, svc)

	cfg.Interval = 0
	_, err = New(&cfg)
	require.Error(err, "push mode requires an interval")
}

func TestPullService(t *testing.T) {
	require := require.New(t)

	cfg := config.DefaultConfig()
	cfg.Mode = MetricsModePull
	cfg.Address = "127.0.0.1:0"
	cfg.Interval = 10 * time.Millisecond

	svc, err := New(&cfg)
	require.NoError(err)
	require.NoError(svc.Start())

	addr := svc.(*exporter).ln.Addr().String()
	require.Eventually(func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr)) // nolint: gosec
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK && len(body) > 0
	}, 5*time.Second, 20*time.Millisecond)

	svc.Stop()
	select {
	case <-svc.Quit():
	case <-time.After(5 * time.Second):
		t.Fatalf("metrics service did not terminate")
	}
	svc.Cleanup()
}
