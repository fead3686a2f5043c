// Package config implements crank scheduling configuration options.
package config

import (
	"fmt"
	"time"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// Classifier modes.
const (
	ClassifierStatic  = "static"
	ClassifierAccount = "account"
)

// Config is the crank scheduling configuration structure.
type Config struct {
	// Interval between scheduling cycles.
	Interval time.Duration `yaml:"interval"`
	// Maximum interval between cycles while backing off after failures.
	MaxBackoff time.Duration `yaml:"max_backoff,omitempty"`
	// Maximum number of rows selected per cycle (0 is unlimited).
	MaxRowsPerCycle int `yaml:"max_rows_per_cycle,omitempty"`
	// Maximum serialized size of an execution unit.
	Ceiling int `yaml:"ceiling"`
	// Maximum number of operations per execution unit (0 is unlimited).
	MaxOperationsPerUnit int `yaml:"max_operations_per_unit,omitempty"`
	// Let the program skip rows whose accounts do not match.
	FailOpen bool `yaml:"fail_open,omitempty"`
	// Use the ledger's block time instead of the local clock for readiness.
	LedgerClock bool `yaml:"ledger_clock,omitempty"`

	// Row classification mode (static, account).
	Classifier string `yaml:"classifier"`
	// Kind assumed for rows in static mode and for missing accounts.
	DefaultKind api.Kind `yaml:"default_kind"`
	// Number of concurrent account fetches when classifying.
	FetchConcurrency int `yaml:"fetch_concurrency,omitempty"`
	// Size of the derivation and classification caches.
	CacheSize int `yaml:"cache_size,omitempty"`

	// Number of recent cycle reports kept in memory.
	RecentReports int `yaml:"recent_reports,omitempty"`
}

// Validate validates the configuration settings.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.MaxBackoff != 0 && c.MaxBackoff < c.Interval {
		return fmt.Errorf("max_backoff must not be smaller than interval")
	}
	if c.MaxRowsPerCycle < 0 {
		return fmt.Errorf("max_rows_per_cycle must not be negative")
	}
	if c.Ceiling <= 0 {
		return fmt.Errorf("ceiling must be positive")
	}
	if c.MaxOperationsPerUnit < 0 {
		return fmt.Errorf("max_operations_per_unit must not be negative")
	}
	switch c.Classifier {
	case ClassifierStatic, ClassifierAccount:
	default:
		return fmt.Errorf("unknown classifier: %s", c.Classifier)
	}
	if !c.DefaultKind.IsValid() {
		return fmt.Errorf("unknown default_kind: %s", c.DefaultKind)
	}

	return nil
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() Config {
	return Config{
		Interval:             time.Second,
		MaxBackoff:           time.Minute,
		MaxRowsPerCycle:      0,
		Ceiling:              1232,
		MaxOperationsPerUnit: 0,
		FailOpen:             true,
		LedgerClock:          false,
		Classifier:           ClassifierAccount,
		DefaultKind:          api.KindAggregator,
		FetchConcurrency:     8,
		CacheSize:            4096,
		RecentReports:        64,
	}
}
