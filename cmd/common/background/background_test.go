package background

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/service"
)

type testService struct {
	*service.BaseBackgroundService

	cleaned *int32
}

func (s *testService) Cleanup() {
	atomic.AddInt32(s.cleaned, 1)
}

func newTestService(name string, cleaned *int32) *testService {
	return &testService{
		BaseBackgroundService: service.NewBaseBackgroundService(name),
		cleaned:               cleaned,
	}
}

type testCleanup struct {
	cleaned *int32
}

func (c *testCleanup) Cleanup() {
	atomic.AddInt32(c.cleaned, 1)
}

func TestServiceManagerTermination(t *testing.T) {
	require := require.New(t)

	var cleaned int32
	m := NewServiceManager(logging.GetLogger("test"))
	a := newTestService("a", &cleaned)
	b := newTestService("b", &cleaned)
	m.Register(a)
	m.Register(b)
	m.RegisterCleanupOnly(&testCleanup{&cleaned}, "cleanup")

	go b.Stop()

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Wait did not return after a service terminated")
	}

	terminated := m.Terminated()
	require.Len(terminated, 1)
	require.Equal("b", terminated[0].Name())

	m.Stop()
	m.Cleanup()
	require.EqualValues(3, atomic.LoadInt32(&cleaned))
	require.Error(m.Ctx.Err(), "context must be cancelled on stop")
}

func TestServiceManagerStop(t *testing.T) {
	m := NewServiceManager(logging.GetLogger("test"))
	var cleaned int32
	m.Register(newTestService("a", &cleaned))

	m.Stop()
	m.Stop()
	m.Wait()
	m.Cleanup()
	require.EqualValues(t, 1, atomic.LoadInt32(&cleaned))
	require.Empty(t, m.Terminated())
}
