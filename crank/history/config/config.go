// Package config implements cycle history configuration options.
package config

import (
	"fmt"
	"time"
)

// Config is the cycle history configuration structure.
type Config struct {
	// Persist cycle reports in the data directory.
	Enabled bool `yaml:"enabled"`
	// Age after which stored reports are pruned (0 keeps everything).
	Retention time.Duration `yaml:"retention,omitempty"`
	// Interval between pruning passes.
	PruneInterval time.Duration `yaml:"prune_interval,omitempty"`
}

// Validate validates the configuration settings.
func (c *Config) Validate() error {
	if c.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	if c.Retention > 0 && c.PruneInterval <= 0 {
		return fmt.Errorf("prune_interval must be positive when retention is set")
	}
	return nil
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Retention:     7 * 24 * time.Hour,
		PruneInterval: time.Hour,
	}
}
