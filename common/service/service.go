// Package service defines the lifecycle of long running components.
package service

import (
	"sync"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
)

// CleanupAble is a component holding resources that must be released once
// it has terminated.
type CleanupAble interface {
	// Cleanup releases the component's resources.
	Cleanup()
}

// BackgroundService is a component running in the background until stopped.
type BackgroundService interface {
	// Name returns the service name.
	Name() string

	// Start starts the service.
	Start() error

	// Stop requests the service to terminate. It must be safe to call more
	// than once.
	Stop()

	// Quit returns a channel that is closed once the service has terminated.
	Quit() <-chan struct{}

	CleanupAble
}

// BaseBackgroundService is a service without work of its own. Services
// embed it for the name, the logger and the quit channel, and override
// what they need.
type BaseBackgroundService struct {
	Logger *logging.Logger

	name string
	once sync.Once
	quit chan struct{}
}

// Name returns the service name.
func (b *BaseBackgroundService) Name() string {
	return b.name
}

// Start is a no-op.
func (b *BaseBackgroundService) Start() error {
	return nil
}

// Stop marks the service terminated.
func (b *BaseBackgroundService) Stop() {
	b.once.Do(func() {
		close(b.quit)
	})
}

// Quit returns a channel that is closed once Stop has been called.
func (b *BaseBackgroundService) Quit() <-chan struct{} {
	return b.quit
}

// Cleanup is a no-op.
func (b *BaseBackgroundService) Cleanup() {}

// NewBaseBackgroundService creates a new base service logging under the
// service name.
func NewBaseBackgroundService(name string) *BaseBackgroundService {
	return &BaseBackgroundService{
		Logger: logging.GetLogger(name),
		name:   name,
		quit:   make(chan struct{}),
	}
}
