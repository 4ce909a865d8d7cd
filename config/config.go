// Package config defines the dispatch application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level dispatch configuration.
type Config struct {
	Store           StoreConfig   `json:"store" yaml:"store"`
	LogLevel        string        `json:"log_level" yaml:"log_level"`
	DefaultPriority string        `json:"default_priority" yaml:"default_priority"`
	WaitTimeout     time.Duration `json:"wait_timeout" yaml:"wait_timeout"`
}

// StoreConfig selects and configures the task store backend.
type StoreConfig struct {
	Kind string `json:"kind" yaml:"kind"` // "memory" or "sqlite"
	Path string `json:"path,omitempty" yaml:"path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Kind: "sqlite",
			Path: "./dispatch.db",
		},
		LogLevel:        "info",
		DefaultPriority: "normal",
		WaitTimeout:     5 * time.Minute,
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Kind {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite store requires a path")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	return nil
}
