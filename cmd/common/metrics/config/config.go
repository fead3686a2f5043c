// Package config implements metrics configuration options.
package config

import (
	"fmt"
	"time"
)

// Config is the metrics configuration structure.
type Config struct {
	// Export mode: none, pull (serve /metrics) or push (to a pushgateway).
	Mode string `yaml:"mode"`
	// Listen address in pull mode, pushgateway address in push mode.
	Address string `yaml:"address"`

	// Pushgateway job name.
	JobName string `yaml:"job_name,omitempty"`
	// Pushgateway grouping labels.
	Labels map[string]string `yaml:"labels,omitempty"`
	// Interval between pushes and process resource samples.
	Interval time.Duration `yaml:"interval,omitempty"`
}

// Validate validates the configuration settings.
func (c *Config) Validate() error {
	switch c.Mode {
	case "none":
		return nil
	case "pull", "push":
	default:
		return fmt.Errorf("unknown metrics mode: %s", c.Mode)
	}

	if c.Address == "" {
		return fmt.Errorf("%s mode requires an address", c.Mode)
	}
	if c.Mode == "push" {
		if c.JobName == "" {
			return fmt.Errorf("push mode requires a job_name")
		}
		if c.Interval <= 0 {
			return fmt.Errorf("push mode requires a positive interval")
		}
	}
	return nil
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() Config {
	return Config{
		Mode:     "none",
		Address:  "127.0.0.1:3000",
		Labels:   map[string]string{},
		Interval: 5 * time.Second,
	}
}
