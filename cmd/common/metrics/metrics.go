// Package metrics implements the prometheus metrics service of the crank.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common/metrics/config"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/service"
)

// Metrics modes.
const (
	MetricsModeNone = "none"
	MetricsModePull = "pull"
	MetricsModePush = "push"
)

const shutdownTimeout = 5 * time.Second

// exporter exports the default registry until stopped, sampling process
// resources alongside.
type exporter struct {
	*service.BaseBackgroundService

	resources *resourceService
	// ln is the pull mode listener.
	ln net.Listener
	// export runs until stopCh is closed.
	export func(stopCh <-chan struct{}) error

	stopOnce sync.Once
	stopCh   chan struct{}
	quitCh   chan struct{}
}

func (e *exporter) Start() error {
	if err := e.resources.Start(); err != nil {
		return err
	}

	go func() {
		defer close(e.quitCh)

		if err := e.export(e.stopCh); err != nil {
			e.Logger.Error("metrics terminated uncleanly",
				"err", err,
			)
		}
		e.resources.Stop()
		<-e.resources.Quit()
	}()
	return nil
}

func (e *exporter) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

func (e *exporter) Quit() <-chan struct{} {
	return e.quitCh
}

func (e *exporter) Cleanup() {
	e.resources.Cleanup()
	if e.ln != nil {
		_ = e.ln.Close()
	}
}

func newExporter(cfg *config.Config, export func(<-chan struct{}) error) *exporter {
	return &exporter{
		BaseBackgroundService: service.NewBaseBackgroundService("metrics"),
		resources:             newResourceService(cfg.Interval),
		export:                export,
		stopCh:                make(chan struct{}),
		quitCh:                make(chan struct{}),
	}
}

func newPullService(cfg *config.Config) (service.BackgroundService, error) {
	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to listen on %s: %w", cfg.Address, err)
	}
	srv := &http.Server{
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	e := newExporter(cfg, func(stopCh <-chan struct{}) error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Serve(ln)
		}()

		select {
		case err := <-errCh:
			return err
		case <-stopCh:
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	e.ln = ln
	e.Logger.Info("serving metrics",
		"mode", MetricsModePull,
		"addr", ln.Addr(),
	)

	return e, nil
}

func newPusher(cfg *config.Config) *push.Pusher {
	pusher := push.New(cfg.Address, cfg.JobName).Gatherer(prometheus.DefaultGatherer)
	for k, v := range cfg.Labels {
		pusher = pusher.Grouping(k, v)
	}
	return pusher
}

func newPushService(cfg *config.Config) (service.BackgroundService, error) {
	if cfg.JobName == "" {
		return nil, fmt.Errorf("metrics: job_name required for push mode")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("metrics: interval required for push mode")
	}

	var e *exporter
	e = newExporter(cfg, func(stopCh <-chan struct{}) error {
		pusher := newPusher(cfg)

		t := time.NewTicker(cfg.Interval)
		defer t.Stop()

		for {
			select {
			case <-stopCh:
				return nil
			case <-t.C:
			}

			if err := pusher.Push(); err != nil {
				e.Logger.Warn("failed to push metrics",
					"err", err,
				)
				// A pusher that failed once keeps failing, start over.
				pusher = newPusher(cfg)
			}
		}
	})
	e.Logger.Info("pushing metrics",
		"mode", MetricsModePush,
		"addr", cfg.Address,
		"job_name", cfg.JobName,
		"labels", cfg.Labels,
		"interval", cfg.Interval,
	)

	return e, nil
}

// New creates the metrics service for the configured mode.
func New(cfg *config.Config) (service.BackgroundService, error) {
	switch mode := strings.ToLower(cfg.Mode); mode {
	case MetricsModeNone:
		return service.NewBaseBackgroundService("metrics"), nil
	case MetricsModePull:
		return newPullService(cfg)
	case MetricsModePush:
		return newPushService(cfg)
	default:
		return nil, fmt.Errorf("metrics: unsupported mode: '%v'", mode)
	}
}

// Enabled returns true iff metrics are exported.
func Enabled(cfg *config.Config) bool {
	return !strings.EqualFold(cfg.Mode, MetricsModeNone)
}
