package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haldin/scim_attribute_sync/internal/config"
	"github.com/haldin/scim_attribute_sync/internal/storage/clickhouse"
	"github.com/haldin/scim_attribute_sync/internal/storage/dual"
	"github.com/haldin/scim_attribute_sync/internal/storage/memory"
	"github.com/haldin/scim_attribute_sync/internal/storage/sqlite"
)

// Compile-time checks that every concrete backend satisfies Storage.
var (
	_ Storage = (*memory.Store)(nil)
	_ Storage = (*sqlite.Store)(nil)
	_ Storage = (*clickhouse.Store)(nil)
	_ Storage = (*dual.Store)(nil)
)

// NewStorage creates a storage implementation based on configuration.
// The dual backend writes to SQLite as primary and ClickHouse as
// secondary.
func NewStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "memory":
		logger.Info("using in-memory storage")
		return memory.New(), nil

	case "sqlite":
		logger.Info("using SQLite storage", "path", cfg.SQLitePath)
		store, err := sqlite.New(sqlite.Config{DBPath: cfg.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("creating SQLite store: %w", err)
		}
		return store, nil

	case "clickhouse":
		logger.Info("using ClickHouse storage", "addr", cfg.ClickHouse.Addr)
		store, err := clickhouse.NewStore(ctx, clickhouseConfig(cfg.ClickHouse), logger)
		if err != nil {
			return nil, fmt.Errorf("creating ClickHouse store: %w", err)
		}
		return store, nil

	case "dual":
		logger.Info("using dual storage", "primary", "sqlite", "secondary", "clickhouse")
		primary, err := sqlite.New(sqlite.Config{DBPath: cfg.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("creating SQLite store: %w", err)
		}
		secondary, err := clickhouse.NewStore(ctx, clickhouseConfig(cfg.ClickHouse), logger)
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("creating ClickHouse store: %w", err)
		}
		return dual.New(dual.Config{Primary: primary, Secondary: secondary, Logger: logger}), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, sqlite, clickhouse, dual)", cfg.Backend)
	}
}

func clickhouseConfig(cfg config.ClickHouseConfig) *clickhouse.ConnectionConfig {
	chCfg := clickhouse.DefaultConfig()
	if cfg.Addr != "" {
		chCfg.Addr = cfg.Addr
	}
	if cfg.Database != "" {
		chCfg.Database = cfg.Database
	}
	if cfg.Username != "" {
		chCfg.Username = cfg.Username
	}
	chCfg.Password = cfg.Password
	chCfg.BatchSize = cfg.BatchSize
	chCfg.FlushInterval = cfg.FlushInterval()
	return chCfg
}
