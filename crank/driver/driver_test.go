package driver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/buffer"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/packer"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/resolver"
	"github.com/switchboard-xyz/sbv2-solana-sub000/program/oracle"
)

func testRef(b byte) api.Reference {
	var ref api.Reference
	for i := range ref {
		ref[i] = b ^ byte(i*11)
	}
	return ref
}

func testNetwork() api.Network {
	return api.Network{
		ProgramID:    testRef(0xc0),
		ProgramState: testRef(0xc1),
		Crank:        testRef(0xc2),
		CrankBuffer:  testRef(0xc3),
		Queue:        testRef(0xc4),
		QueueBuffer:  testRef(0xc5),
		Authority:    testRef(0xc6),
		Mint:         testRef(0xc7),
		Payer:        testRef(0xc8),
		PayoutWallet: testRef(0xc9),
	}
}

type fakeFetcher struct {
	sync.Mutex

	accounts map[api.Reference][]byte
}

func (f *fakeFetcher) FetchAccount(_ context.Context, id api.Reference) ([]byte, error) {
	f.Lock()
	defer f.Unlock()

	data, ok := f.accounts[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return data, nil
}

func (f *fakeFetcher) setBuffer(t *testing.T, rows []api.Row) {
	data, err := buffer.Encode(rows, 64)
	require.NoError(t, err, "buffer.Encode")

	f.Lock()
	defer f.Unlock()
	f.accounts[testNetwork().CrankBuffer] = data
}

type fakeSubmitter struct {
	sync.Mutex

	units []*api.Unit
	fail  map[int]error
}

func (s *fakeSubmitter) Submit(_ context.Context, unit *api.Unit) (solana.Signature, error) {
	s.Lock()
	defer s.Unlock()

	idx := len(s.units)
	s.units = append(s.units, unit)
	if err := s.fail[idx]; err != nil {
		return solana.Signature{}, err
	}
	return solana.Signature{byte(idx + 1)}, nil
}

func (s *fakeSubmitter) submitted() []*api.Unit {
	s.Lock()
	defer s.Unlock()

	return append([]*api.Unit{}, s.units...)
}

type testDriver struct {
	*Driver

	fetcher   *fakeFetcher
	submitter *fakeSubmitter
}

func newTestDriver(t *testing.T, now int64, ceiling, maxOps int) *testDriver {
	network := testNetwork()
	fetcher := &fakeFetcher{accounts: make(map[api.Reference][]byte)}
	submitter := &fakeSubmitter{fail: make(map[int]error)}

	r, err := resolver.New(network, 0)
	require.NoError(t, err, "resolver.New")
	builder := oracle.NewBuilder(network, oracle.BuilderOptions{})
	p, err := packer.New(builder, ceiling, maxOps)
	require.NoError(t, err, "packer.New")

	d, err := New(Params{
		Network:    network,
		Fetcher:    fetcher,
		Classifier: &resolver.StaticClassifier{Kind: api.KindAggregator},
		Resolver:   r,
		Builder:    builder,
		Packer:     p,
		Submitter:  submitter,
		Clock: func(context.Context) (int64, error) {
			return now, nil
		},
	})
	require.NoError(t, err, "New")

	return &testDriver{
		Driver:    d,
		fetcher:   fetcher,
		submitter: submitter,
	}
}

func testRows(n int, eligibleAt int64) []api.Row {
	rows := make([]api.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, api.Row{ID: testRef(byte(i + 1)), EligibleAt: eligibleAt})
	}
	return rows
}

func TestRunCycleScenario(t *testing.T) {
	require := require.New(t)

	a, b, c := testRef(0xa), testRef(0xb), testRef(0xc)
	d := newTestDriver(t, 80, oracle.PacketLimit, 0)
	d.fetcher.setBuffer(t, []api.Row{
		{ID: a, EligibleAt: 100},
		{ID: b, EligibleAt: 50},
		{ID: c, EligibleAt: 75},
	})

	report, err := d.RunCycle(context.Background())
	require.NoError(err, "RunCycle")
	require.Equal(api.StateDone, report.State)
	require.EqualValues(80, report.Now)
	require.Equal(3, report.Loaded)
	require.Equal(2, report.Selected)
	require.Equal(2, report.Advanced)
	require.Empty(report.Error)

	var advanced []api.Reference
	for _, unit := range d.submitter.submitted() {
		require.LessOrEqual(unit.Size, oracle.PacketLimit)
		advanced = append(advanced, unit.RowIDs()...)
	}
	require.Equal([]api.Reference{b, c}, advanced, "rows are advanced in eligibility order")
	require.NotContains(advanced, a, "row eligible after now is not selected")

	for _, u := range report.Units {
		require.True(u.Succeeded())
		require.NotEqual(solana.Signature{}, u.Signature)
	}
}

func TestRunCycleNothingReady(t *testing.T) {
	require := require.New(t)

	d := newTestDriver(t, 10, oracle.PacketLimit, 0)
	d.fetcher.setBuffer(t, testRows(5, 11))

	report, err := d.RunCycle(context.Background())
	require.NoError(err, "RunCycle")
	require.True(report.IsNoop())
	require.Equal(api.StateDone, report.State)
	require.Equal(5, report.Loaded)
	require.Empty(d.submitter.submitted(), "nothing is submitted")

	d.fetcher.setBuffer(t, nil)
	report, err = d.RunCycle(context.Background())
	require.NoError(err, "RunCycle (empty crank)")
	require.True(report.IsNoop())
	require.Zero(report.Loaded)
}

func TestRunCyclePartialFailure(t *testing.T) {
	require := require.New(t)

	d := newTestDriver(t, 100, oracle.PacketLimit, 4)
	d.fetcher.setBuffer(t, testRows(12, 100))
	d.submitter.fail[1] = &api.SubmissionError{Class: api.ClassRetriable, Err: fmt.Errorf("timeout")}
	d.submitter.fail[2] = &api.SubmissionError{Class: api.ClassBenign, Err: api.ErrRowPopped}

	report, err := d.RunCycle(context.Background())
	require.Error(err, "RunCycle")
	require.Equal(api.StatePartiallyFailed, report.State)
	require.Empty(report.Error, "unit failures are reported per unit")
	require.Equal(api.ClassRetriable, CycleClass(report, err))

	require.Len(d.submitter.submitted(), 3, "a failed unit does not stop later units")
	require.Len(report.Units, 3)
	require.Equal(api.ClassNone, report.Units[0].Class)
	require.Equal(api.ClassRetriable, report.Units[1].Class)
	require.Equal(api.ClassBenign, report.Units[2].Class)
	require.Equal(4, report.Advanced)
	require.Len(report.FailedRows(), 8)

	var se *api.SubmissionError
	require.True(errors.As(err, &se))
	require.True(se.Retriable())

	// A benign race alone is a partial failure without an error.
	d = newTestDriver(t, 100, oracle.PacketLimit, 4)
	d.fetcher.setBuffer(t, testRows(8, 100))
	d.submitter.fail[0] = &api.SubmissionError{Class: api.ClassBenign, Err: api.ErrQueueNotReady}

	report, err = d.RunCycle(context.Background())
	require.NoError(err, "RunCycle")
	require.Equal(api.StatePartiallyFailed, report.State)
	require.Equal(api.ClassNone, CycleClass(report, err), "benign races are not escalated")
	require.Empty(report.Error)
	require.Equal(4, report.Advanced)
	require.Len(report.FailedRows(), 4)
}

func TestRunCycleFatal(t *testing.T) {
	require := require.New(t)

	d := newTestDriver(t, 100, oracle.PacketLimit, 0)
	d.fetcher.accounts[testNetwork().CrankBuffer] = make([]byte, 10)

	report, err := d.RunCycle(context.Background())
	require.True(errors.Is(err, api.ErrMalformedBuffer), "malformed buffer")
	require.Equal(api.ClassFatal, CycleClass(report, err))
	require.Equal(api.StateIdle, report.State)
	require.NotEmpty(report.Error)

	d = newTestDriver(t, 100, 100, 0)
	d.fetcher.setBuffer(t, testRows(2, 1))
	report, err = d.RunCycle(context.Background())
	require.True(errors.Is(err, api.ErrOperationTooLarge), "operation over the ceiling")
	require.Equal(api.ClassFatal, CycleClass(report, err))
	require.Equal(api.StateResolved, report.State)
	require.Empty(d.submitter.submitted())

	d = newTestDriver(t, 100, oracle.PacketLimit, 0)
	d.fetcher.setBuffer(t, testRows(2, 1))
	d.submitter.fail[0] = &api.SubmissionError{Class: api.ClassFatal, Err: fmt.Errorf("bad signer")}
	report, err = d.RunCycle(context.Background())
	require.Error(err)
	require.Equal(api.ClassFatal, CycleClass(report, err))

	d = newTestDriver(t, 100, oracle.PacketLimit, 0)
	report, err = d.RunCycle(context.Background())
	require.True(errors.Is(err, api.ErrNotFound), "missing crank buffer")
	require.Equal(api.ClassRetriable, CycleClass(report, err))
}

type fakeRecorder struct {
	sync.Mutex

	reports []*api.Report
}

func (r *fakeRecorder) Record(report *api.Report) error {
	r.Lock()
	defer r.Unlock()

	r.reports = append(r.reports, report)
	return nil
}

func (r *fakeRecorder) count() int {
	r.Lock()
	defer r.Unlock()

	return len(r.reports)
}

func TestWorker(t *testing.T) {
	require := require.New(t)

	d := newTestDriver(t, 100, oracle.PacketLimit, 0)
	d.fetcher.setBuffer(t, testRows(3, 50))
	recorder := &fakeRecorder{}

	w := NewWorker(d.Driver, recorder, WorkerConfig{
		Interval:      5 * time.Millisecond,
		MaxBackoff:    20 * time.Millisecond,
		RecentReports: 2,
	})
	require.NoError(w.Start(), "Start")

	require.Eventually(func() bool {
		return recorder.count() >= 3
	}, 5*time.Second, time.Millisecond, "worker must run cycles on its interval")

	w.Stop()
	<-w.Quit()
	w.Cleanup()

	require.NoError(w.Err())
	recent := w.Recent()
	require.Len(recent, 2, "recent reports are bounded")
	require.Equal(3, recent[1].Advanced)
}

func TestWorkerWakeup(t *testing.T) {
	require := require.New(t)

	d := newTestDriver(t, 100, oracle.PacketLimit, 0)
	d.fetcher.setBuffer(t, testRows(1, 50))
	recorder := &fakeRecorder{}

	w := NewWorker(d.Driver, recorder, WorkerConfig{Interval: time.Hour})
	require.NoError(w.Start(), "Start")
	defer func() {
		w.Stop()
		<-w.Quit()
		w.Cleanup()
	}()

	require.Eventually(func() bool {
		return recorder.count() == 1
	}, 5*time.Second, time.Millisecond, "first cycle runs immediately")

	w.Wakeup()
	require.Eventually(func() bool {
		return recorder.count() == 2
	}, 5*time.Second, time.Millisecond, "wakeup triggers a cycle")
}

func TestWorkerBacklogWakeup(t *testing.T) {
	require := require.New(t)

	d := newTestDriver(t, 100, oracle.PacketLimit, 0)
	d.MaxRows = 1
	d.fetcher.setBuffer(t, testRows(3, 50))
	recorder := &fakeRecorder{}

	w := NewWorker(d.Driver, recorder, WorkerConfig{Interval: time.Hour})
	require.NoError(w.Start(), "Start")
	defer func() {
		w.Stop()
		<-w.Quit()
		w.Cleanup()
	}()

	require.Eventually(func() bool {
		return recorder.count() >= 3
	}, 5*time.Second, time.Millisecond, "cycles at the row limit run again without waiting")

	for _, report := range w.Recent() {
		require.Equal(1, report.Selected)
	}
}

func TestWorkerWakeupAfterCleanup(t *testing.T) {
	require := require.New(t)

	d := newTestDriver(t, 100, oracle.PacketLimit, 0)
	d.fetcher.setBuffer(t, nil)

	w := NewWorker(d.Driver, nil, WorkerConfig{Interval: time.Hour})
	require.NoError(w.Start(), "Start")
	w.Stop()
	<-w.Quit()
	w.Cleanup()
	w.Cleanup()

	require.NotPanics(w.Wakeup, "wakeup after cleanup is a no-op")
}

func TestWorkerStopsOnFatal(t *testing.T) {
	require := require.New(t)

	d := newTestDriver(t, 100, oracle.PacketLimit, 0)
	d.fetcher.accounts[testNetwork().CrankBuffer] = []byte{1, 2, 3}

	w := NewWorker(d.Driver, nil, WorkerConfig{Interval: time.Millisecond})
	require.NoError(w.Start(), "Start")

	select {
	case <-w.Quit():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop on a fatal failure")
	}
	w.Cleanup()

	require.True(errors.Is(w.Err(), api.ErrMalformedBuffer))
	require.Len(w.Recent(), 1)
}
