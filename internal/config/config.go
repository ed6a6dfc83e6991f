// Package config loads the service configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// WebhookAddr is the listen address for the directory-sync webhook
	// receiver.
	WebhookAddr string `yaml:"webhook_addr"`

	// APIAddr is the listen address for the REST API.
	APIAddr string `yaml:"api_addr"`

	// LogLevel is a slog level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// VerboseDirectories lists directory IDs whose extraction results
	// are dumped to stdout on every event.
	VerboseDirectories []string `yaml:"verbose_directories"`

	// IgnoredCoreFields replaces the built-in SCIM core field ignore
	// list when non-empty.
	IgnoredCoreFields []string `yaml:"ignored_core_fields"`

	Storage   StorageConfig   `yaml:"storage"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
}

// StorageConfig selects and parameterizes the storage backend.
type StorageConfig struct {
	// Backend is one of: memory, sqlite, clickhouse, dual.
	Backend string `yaml:"backend"`

	SQLitePath string `yaml:"sqlite_path"`

	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ClickHouseConfig holds ClickHouse connection parameters.
type ClickHouseConfig struct {
	Addr                 string `yaml:"addr"`
	Database             string `yaml:"database"`
	Username             string `yaml:"username"`
	Password             string `yaml:"password"`
	BatchSize            int    `yaml:"batch_size"`
	FlushIntervalSeconds int    `yaml:"flush_interval_seconds"`
}

// FlushInterval returns the configured flush interval as a duration.
func (c ClickHouseConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// SnapshotsConfig holds snapshot export settings.
type SnapshotsConfig struct {
	Dir          string `yaml:"dir"`
	MaxSnapshots int    `yaml:"max_snapshots"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		WebhookAddr: "0.0.0.0:8081",
		APIAddr:     "0.0.0.0:8080",
		LogLevel:    "info",
		Storage: StorageConfig{
			Backend:    "memory",
			SQLitePath: "./data/attributes.db",
			ClickHouse: ClickHouseConfig{
				Addr:     "localhost:9000",
				Database: "default",
				Username: "default",
			},
		},
		Snapshots: SnapshotsConfig{
			Dir:          "./data/snapshots",
			MaxSnapshots: 50,
		},
	}
}

// Load reads a YAML config file, layering it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "memory", "sqlite", "clickhouse", "dual":
	default:
		return fmt.Errorf("unknown storage backend: %s (supported: memory, sqlite, clickhouse, dual)", c.Storage.Backend)
	}
	return nil
}
