package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const schemaVersion = "1.0.0"

// usersTableDDL keeps one row per (directory, user); ReplacingMergeTree
// collapses older versions by received_at during merges, so reads go
// through FINAL.
const usersTableDDL = `
	CREATE TABLE IF NOT EXISTS users (
		directory_id String,
		user_id      String,
		user_name    String,
		event        String,
		delivery_id  String,
		attributes   String,
		received_at  DateTime64(3)
	)
	ENGINE = ReplacingMergeTree(received_at)
	ORDER BY (directory_id, user_id)
`

// InitializeSchema creates all required tables if they don't exist
func InitializeSchema(ctx context.Context, conn driver.Conn) error {
	// Create schema_version table first
	if err := createSchemaVersionTable(ctx, conn); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	// Check current schema version
	currentVersion, err := getCurrentSchemaVersion(ctx, conn)
	if err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	if currentVersion != "" && currentVersion != schemaVersion {
		return fmt.Errorf("schema version mismatch: database has %s, code expects %s", currentVersion, schemaVersion)
	}

	if err := conn.Exec(ctx, usersTableDDL); err != nil {
		return fmt.Errorf("creating table users: %w", err)
	}

	// Update schema version
	if currentVersion == "" {
		if err := setSchemaVersion(ctx, conn, schemaVersion); err != nil {
			return fmt.Errorf("setting schema version: %w", err)
		}
	}

	return nil
}

func createSchemaVersionTable(ctx context.Context, conn driver.Conn) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version String,
			applied_at DateTime64(3)
		)
		ENGINE = TinyLog
	`
	return conn.Exec(ctx, ddl)
}

func getCurrentSchemaVersion(ctx context.Context, conn driver.Conn) (string, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	if rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return "", err
		}
		return version, nil
	}
	return "", rows.Err()
}

func setSchemaVersion(ctx context.Context, conn driver.Conn, version string) error {
	return conn.Exec(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`, version, time.Now())
}
