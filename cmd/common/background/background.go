// Package background implements utilities for managing background
// services.
package background

import (
	"context"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/service"
)

// ServiceManager manages a group of background services.
type ServiceManager struct {
	Ctx    context.Context
	cancel context.CancelFunc

	l            sync.Mutex
	services     []service.BackgroundService
	termServices []service.BackgroundService
	cleanups     []service.CleanupAble
	termCh       chan service.BackgroundService
	stopCh       chan struct{}
	stopOnce     sync.Once

	logger *logging.Logger
}

// Register registers a running background service.
func (m *ServiceManager) Register(srv service.BackgroundService) {
	m.l.Lock()
	defer m.l.Unlock()

	m.services = append(m.services, srv)
	go func() {
		select {
		case <-srv.Quit():
			select {
			case m.termCh <- srv:
			case <-m.stopCh:
			}
		case <-m.stopCh:
		}
	}()
}

// RegisterCleanupOnly registers a cleanup-only service.
func (m *ServiceManager) RegisterCleanupOnly(svc service.CleanupAble, name string) {
	m.l.Lock()
	defer m.l.Unlock()

	m.cleanups = append(m.cleanups, svc)
	m.logger.Debug("registered cleanup-only service",
		"name", name,
	)
}

// Wait waits for interruption via Stop, a signal, or a service
// terminating.
func (m *ServiceManager) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-m.stopCh:
		m.logger.Info("programmatic termination requested")
		return
	default:
	}

	select {
	case <-m.stopCh:
		m.logger.Info("programmatic termination requested")
	case srv := <-m.termCh:
		m.logger.Info("background service has terminated",
			"name", srv.Name(),
		)
		m.l.Lock()
		m.termServices = append(m.termServices, srv)
		m.l.Unlock()
	case sig := <-sigCh:
		m.logger.Info("user requested termination",
			"signal", sig,
		)
	}
}

// Stop stops all services that were registered.
func (m *ServiceManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.cancel()
	})

	m.l.Lock()
	defer m.l.Unlock()

	for _, svc := range m.services {
		m.logger.Debug("stopping service",
			"name", svc.Name(),
		)
		svc.Stop()
	}
}

// Cleanup cleans up after all registered services, waiting for each
// running service to terminate first. Services are cleaned up in the
// reverse order of registration.
func (m *ServiceManager) Cleanup() {
	m.l.Lock()
	defer m.l.Unlock()

	for i := len(m.services) - 1; i >= 0; i-- {
		svc := m.services[i]
		<-svc.Quit()
		m.logger.Debug("cleaning up service",
			"name", svc.Name(),
		)
		svc.Cleanup()
	}
	for i := len(m.cleanups) - 1; i >= 0; i-- {
		svc := m.cleanups[i]
		m.logger.Debug("cleaning up cleanup-only service",
			"type", reflect.TypeOf(svc),
		)
		svc.Cleanup()
	}
}

// Terminated returns the services that terminated on their own before
// Stop was called.
func (m *ServiceManager) Terminated() []service.BackgroundService {
	m.l.Lock()
	defer m.l.Unlock()

	return append([]service.BackgroundService{}, m.termServices...)
}

// NewServiceManager creates a new service manager.
func NewServiceManager(logger *logging.Logger) *ServiceManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &ServiceManager{
		Ctx:    ctx,
		cancel: cancel,
		termCh: make(chan service.BackgroundService, 1),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}
