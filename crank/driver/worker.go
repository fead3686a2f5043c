package driver

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eapache/channels"
	"github.com/gammazero/deque"

	cmnBackoff "github.com/switchboard-xyz/sbv2-solana-sub000/common/backoff"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/service"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

var _ service.BackgroundService = (*Worker)(nil)

// Recorder persists cycle reports.
type Recorder interface {
	Record(report *api.Report) error
}

// WorkerConfig is the scheduling worker configuration.
type WorkerConfig struct {
	// Interval is the interval between cycles.
	Interval time.Duration
	// MaxBackoff is the maximum interval between cycles after failures.
	MaxBackoff time.Duration
	// RecentReports is the number of reports kept in memory.
	RecentReports int
}

// CycleClass returns the class of a cycle outcome as returned by RunCycle.
func CycleClass(report *api.Report, err error) api.ErrorClass {
	if err == nil {
		return api.ClassNone
	}
	if api.IsFatal(err) {
		return api.ClassFatal
	}
	for _, u := range report.Units {
		if u.Class == api.ClassFatal {
			return api.ClassFatal
		}
	}
	return api.ClassRetriable
}

// Worker runs scheduling cycles in the background.
//
// Cycles run on a fixed interval, or immediately on Wakeup. Failed cycles are
// retried with exponential backoff, a fatal failure stops the worker.
type Worker struct {
	*service.BaseBackgroundService

	driver   *Driver
	recorder Recorder
	cfg      WorkerConfig

	backoff *backoff.ExponentialBackOff

	wakeupLock sync.Mutex
	wakeupCh   *channels.RingChannel
	closed     bool

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopCh   chan struct{}
	quitCh   chan struct{}

	l      sync.RWMutex
	recent *deque.Deque[*api.Report]
	err    error
}

// Start starts the worker.
func (w *Worker) Start() error {
	go w.worker()
	return nil
}

// Stop halts the worker.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.cancel()
	})
}

// Quit returns a channel that is closed when the worker terminates.
func (w *Worker) Quit() <-chan struct{} {
	return w.quitCh
}

// Cleanup releases the worker's resources.
func (w *Worker) Cleanup() {
	w.wakeupLock.Lock()
	defer w.wakeupLock.Unlock()

	if !w.closed {
		w.closed = true
		w.wakeupCh.Close()
	}
}

// Wakeup triggers a cycle without waiting for the interval to elapse. It is
// a no-op once the worker has been cleaned up.
func (w *Worker) Wakeup() {
	w.wakeupLock.Lock()
	defer w.wakeupLock.Unlock()

	if w.closed {
		return
	}
	w.wakeupCh.In() <- struct{}{}
}

// Err returns the error that stopped the worker, if any.
func (w *Worker) Err() error {
	w.l.RLock()
	defer w.l.RUnlock()

	return w.err
}

// Recent returns the most recent reports, oldest first.
func (w *Worker) Recent() []*api.Report {
	w.l.RLock()
	defer w.l.RUnlock()

	reports := make([]*api.Report, 0, w.recent.Len())
	for i := 0; i < w.recent.Len(); i++ {
		reports = append(reports, w.recent.At(i))
	}
	return reports
}

func (w *Worker) remember(report *api.Report) {
	w.l.Lock()
	defer w.l.Unlock()

	w.recent.PushBack(report)
	for w.recent.Len() > w.cfg.RecentReports {
		w.recent.PopFront()
	}
}

func (w *Worker) worker() {
	defer close(w.quitCh)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-timer.C:
		case <-w.wakeupCh.Out():
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		report, err := w.driver.RunCycle(w.ctx)
		w.remember(report)
		if w.recorder != nil {
			if rerr := w.recorder.Record(report); rerr != nil {
				w.Logger.Error("failed to record cycle report",
					"err", rerr,
				)
			}
		}

		delay := w.cfg.Interval
		switch CycleClass(report, err) {
		case api.ClassFatal:
			select {
			case <-w.stopCh:
				// Cancelled submissions while stopping are not a failure.
				return
			default:
			}

			w.Logger.Error("fatal cycle failure, stopping",
				"err", err,
			)
			w.l.Lock()
			w.err = err
			w.l.Unlock()
			return
		case api.ClassRetriable:
			delay = w.backoff.NextBackOff()
			w.Logger.Warn("cycle failed, backing off",
				"err", err,
				"delay", delay,
			)
		default:
			w.backoff.Reset()
			if w.driver.backlogged(report) {
				// More rows may already be ready, don't wait for the interval.
				w.Wakeup()
			}
		}

		timer.Reset(delay)
	}
}

// NewWorker creates a new scheduling worker. The recorder may be nil.
func NewWorker(driver *Driver, recorder Recorder, cfg WorkerConfig) *Worker {
	if cfg.RecentReports <= 0 {
		cfg.RecentReports = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		BaseBackgroundService: service.NewBaseBackgroundService("crank/driver/worker"),
		driver:                driver,
		recorder:              recorder,
		cfg:                   cfg,
		backoff:               cmnBackoff.NewCycleBackOff(cfg.Interval, cfg.MaxBackoff),
		wakeupCh:              channels.NewRingChannel(1),
		ctx:                   ctx,
		cancel:                cancel,
		stopCh:                make(chan struct{}),
		quitCh:                make(chan struct{}),
		recent:                deque.New[*api.Report](),
	}
}
