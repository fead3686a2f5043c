package metrics

import (
	"time"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/service"
)

// ResourceCollector is interface for monitoring resources (cpu, memory, etc.).
type ResourceCollector interface {
	// Name returns the name of the collector.
	Name() string

	// Update updates corresponding resource metrics.
	Update() error
}

type resourceService struct {
	*service.BaseBackgroundService

	interval   time.Duration
	collectors []ResourceCollector

	stopCh chan struct{}
	quitCh chan struct{}
}

func (s *resourceService) Start() error {
	go s.worker()
	return nil
}

func (s *resourceService) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

func (s *resourceService) Quit() <-chan struct{} {
	return s.quitCh
}

func (s *resourceService) update() {
	for _, c := range s.collectors {
		if err := c.Update(); err != nil {
			s.Logger.Debug("failed to update resource metrics",
				"collector", c.Name(),
				"err", err,
			)
		}
	}
}

func (s *resourceService) worker() {
	defer close(s.quitCh)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		s.update()

		select {
		case <-s.stopCh:
			return
		case <-t.C:
		}
	}
}

func newResourceService(interval time.Duration) *resourceService {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &resourceService{
		BaseBackgroundService: service.NewBaseBackgroundService("resources"),
		interval:              interval,
		collectors:            []ResourceCollector{NewProcessCollector()},
		stopCh:                make(chan struct{}),
		quitCh:                make(chan struct{}),
	}
}
