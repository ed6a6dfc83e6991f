package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const (
	connectAttempts     = 3
	initialRetryDelay   = time.Second
	defaultDialTimeout  = 10 * time.Second
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5
)

// ConnectionConfig parameterizes the ClickHouse connection and the write
// buffer sitting in front of it.
type ConnectionConfig struct {
	Addr     string
	Database string
	Username string
	Password string

	MaxOpenConns int
	MaxIdleConns int
	DialTimeout  time.Duration

	// BatchSize and FlushInterval tune the insert buffer; zero values
	// fall back to the buffer defaults.
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig targets a local unauthenticated ClickHouse.
func DefaultConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Addr:         "localhost:9000",
		Database:     "default",
		Username:     "default",
		MaxOpenConns: defaultMaxOpenConns,
		MaxIdleConns: defaultMaxIdleConns,
		DialTimeout:  defaultDialTimeout,
	}
}

// Connect opens a connection and verifies it with a ping, retrying with
// doubling delays so the service survives a ClickHouse that is still
// starting up.
func Connect(ctx context.Context, config *ConnectionConfig) (driver.Conn, error) {
	if config == nil {
		config = DefaultConfig()
	}

	opts := &clickhouse.Options{
		Addr: []string{config.Addr},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     config.DialTimeout,
		MaxOpenConns:    config.MaxOpenConns,
		MaxIdleConns:    config.MaxIdleConns,
		ConnMaxLifetime: time.Hour,
	}

	delay := initialRetryDelay
	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}

		conn, err := clickhouse.Open(opts)
		if err != nil {
			lastErr = err
			continue
		}
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			lastErr = err
			continue
		}
		return conn, nil
	}

	return nil, fmt.Errorf("connecting to ClickHouse at %s after %d attempts: %w", config.Addr, connectAttempts, lastErr)
}
