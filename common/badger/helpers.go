// Package badger contains helpers for running BadgerDB databases.
package badger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
)

const (
	defaultMaintenanceInterval = 5 * time.Minute
	valueLogDiscardRatio       = 0.5
)

type logAdapter struct {
	logger *logging.Logger
}

func (a *logAdapter) log(fn func(string, ...interface{}), format string, args []interface{}) {
	fn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a *logAdapter) Errorf(format string, args ...interface{}) {
	a.log(a.logger.Error, format, args)
}

func (a *logAdapter) Warningf(format string, args ...interface{}) {
	a.log(a.logger.Warn, format, args)
}

func (a *logAdapter) Infof(format string, args ...interface{}) {
	a.log(a.logger.Info, format, args)
}

func (a *logAdapter) Debugf(format string, args ...interface{}) {
	a.log(a.logger.Debug, format, args)
}

// NewLogAdapter adapts a module logger to badger.Logger.
func NewLogAdapter(logger *logging.Logger) badger.Logger {
	return &logAdapter{logger: logger}
}

// MaintenanceFunc is a periodic maintenance task, e.g. pruning expired
// entries. Tasks run before value log garbage collection so that the space
// they free is reclaimed in the same pass.
type MaintenanceFunc func() error

// GCWorker periodically runs maintenance tasks followed by value log
// garbage collection.
type GCWorker struct {
	logger *logging.Logger

	db       *badger.DB
	interval time.Duration
	tasks    []MaintenanceFunc

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// RunOnce runs a single maintenance pass.
func (gc *GCWorker) RunOnce() error {
	for i, task := range gc.tasks {
		if err := task(); err != nil {
			return fmt.Errorf("badger: maintenance task %d failed: %w", i, err)
		}
	}

	// Each successful GC round rewrites one value log file, keep going
	// until there is nothing left worth rewriting.
	for {
		err := gc.db.RunValueLogGC(valueLogDiscardRatio)
		switch err {
		case nil:
			continue
		case badger.ErrNoRewrite, badger.ErrRejected, badger.ErrGCInMemoryMode:
			return nil
		default:
			return fmt.Errorf("badger: value log gc failed: %w", err)
		}
	}
}

// Close stops the worker and waits for a running pass to finish.
func (gc *GCWorker) Close() {
	gc.stopOnce.Do(func() {
		close(gc.stopCh)
	})
	<-gc.doneCh
}

func (gc *GCWorker) run() {
	defer close(gc.doneCh)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-gc.stopCh:
			return
		case <-ticker.C:
		}

		if err := gc.RunOnce(); err != nil {
			gc.logger.Error("database maintenance failed",
				"err", err,
			)
		}
	}
}

// NewGCWorker starts a maintenance worker for db. A non-positive interval
// selects the default interval.
func NewGCWorker(logger *logging.Logger, db *badger.DB, interval time.Duration, tasks ...MaintenanceFunc) *GCWorker {
	if interval <= 0 {
		interval = defaultMaintenanceInterval
	}

	gc := &GCWorker{
		logger:   logger,
		db:       db,
		interval: interval,
		tasks:    tasks,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go gc.run()

	return gc
}
