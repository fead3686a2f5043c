// Package config implements global configuration options.
package config

import (
	"bytes"
	"fmt"
	"io"

	"github.com/a8m/envsubst"
	"gopkg.in/yaml.v3"

	network "github.com/switchboard-xyz/sbv2-solana-sub000/client/config"
	common "github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common/config"
	metrics "github.com/switchboard-xyz/sbv2-solana-sub000/cmd/common/metrics/config"
	crank "github.com/switchboard-xyz/sbv2-solana-sub000/crank/config"
	history "github.com/switchboard-xyz/sbv2-solana-sub000/crank/history/config"
)

// GlobalConfig holds the global configuration options.
var GlobalConfig Config

// Config is the top-level configuration structure.
type Config struct {
	Common  common.Config  `yaml:"common"`
	Network network.Config `yaml:"network"`
	Crank   crank.Config   `yaml:"crank"`
	History history.Config `yaml:"history,omitempty"`
	Metrics metrics.Config `yaml:"metrics,omitempty"`
}

// Validate validates the configuration settings.
func (c *Config) Validate() error {
	if err := c.Common.Validate(); err != nil {
		return fmt.Errorf("common: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if err := c.Crank.Validate(); err != nil {
		return fmt.Errorf("crank: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if c.History.Enabled && c.Common.DataDir == "" {
		return fmt.Errorf("history: data_dir must be set when history is enabled")
	}

	return nil
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() Config {
	return Config{
		Common:  common.DefaultConfig(),
		Network: network.DefaultConfig(),
		Crank:   crank.DefaultConfig(),
		History: history.DefaultConfig(),
		Metrics: metrics.DefaultConfig(),
	}
}

// Parse parses a configuration document, substituting environment variables
// and rejecting unknown fields. Unset fields keep their default values.
func Parse(raw []byte) (*Config, error) {
	raw, err := envsubst.Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitConfig initializes the global configuration from the given file.
func InitConfig(cfgFile string) error {
	// Read the specified config file and substitute environment variables.
	raw, err := envsubst.ReadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("unable to read config file '%s': %w", cfgFile, err)
	}

	cfg, err := parse(raw)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", cfgFile, err)
	}
	GlobalConfig = *cfg

	return nil
}

func init() {
	GlobalConfig = DefaultConfig()
}
