// Package config implements common configuration options.
package config

import (
	"fmt"
	"strings"
)

// Config is the common configuration structure.
type Config struct {
	// Directory holding the crank's persistent state.
	DataDir string `yaml:"data_dir"`
	// Logging options.
	Log LogConfig `yaml:"log,omitempty"`
}

// LogConfig is the logging configuration structure.
type LogConfig struct {
	// File to log to, relative to the data directory. Empty logs to stdout.
	File string `yaml:"file,omitempty"`
	// Format: logfmt or json.
	Format string `yaml:"format,omitempty"`
	// Levels by module prefix, "default" applies to everything else.
	Level map[string]string `yaml:"level,omitempty"`
}

// Validate validates the configuration settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "", "logfmt", "json":
	default:
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}
	for module, lvl := range c.Log.Level {
		switch strings.ToLower(lvl) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("unknown log level for %s: %s", module, lvl)
		}
	}
	return nil
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Format: "logfmt",
			Level: map[string]string{
				"default":        "info",
				"crank/resolver": "warn",
			},
		},
	}
}
