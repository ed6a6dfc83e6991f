// Package clickhouse provides a ClickHouse-backed storage implementation
// with buffered batch inserts, intended for tenants with large
// directories.
package clickhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/haldin/scim_attribute_sync/pkg/models"
)

// ErrNotFound is returned when a requested record is not found.
var ErrNotFound = models.ErrNotFound

// Store implements the storage.Storage interface using ClickHouse.
// Writes are buffered; a record may not be visible to reads until the
// next batch flush.
type Store struct {
	conn   driver.Conn
	buffer *BatchBuffer
	logger *slog.Logger
}

// NewStore creates a new ClickHouse storage instance
func NewStore(ctx context.Context, config *ConnectionConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Connect to ClickHouse
	conn, err := Connect(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connecting to ClickHouse: %w", err)
	}

	// Initialize schema
	if err := InitializeSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	var batchSize int
	var flushInterval time.Duration
	if config != nil {
		batchSize = config.BatchSize
		flushInterval = config.FlushInterval
	}
	buffer := NewBatchBuffer(conn, logger, batchSize, flushInterval)

	return &Store{conn: conn, buffer: buffer, logger: logger}, nil
}

// StoreUser queues a user record for the next batch insert.
func (s *Store) StoreUser(ctx context.Context, user *models.UserRecord) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if user.DirectoryID == "" || user.UserID == "" {
		return errors.New("directory id and user id cannot be empty")
	}

	attrs, err := json.Marshal(user.Attributes)
	if err != nil {
		return fmt.Errorf("serializing attributes: %w", err)
	}

	s.buffer.Add(UserRow{
		DirectoryID: user.DirectoryID,
		UserID:      user.UserID,
		UserName:    user.UserName,
		Event:       user.Event,
		DeliveryID:  user.DeliveryID,
		Attributes:  string(attrs),
		ReceivedAt:  user.ReceivedAt,
	})
	return nil
}

// GetUser retrieves one user record.
func (s *Store) GetUser(ctx context.Context, directoryID, userID string) (*models.UserRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT directory_id, user_id, user_name, event, delivery_id, attributes, received_at
		FROM users FINAL
		WHERE directory_id = ? AND user_id = ?
		LIMIT 1`,
		directoryID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("user %s/%s: %w", directoryID, userID, ErrNotFound)
	}
	return scanUser(rows)
}

// ListUsers returns records for one directory, or all when directoryID is
// empty.
func (s *Store) ListUsers(ctx context.Context, directoryID string) ([]*models.UserRecord, error) {
	query := `
		SELECT directory_id, user_id, user_name, event, delivery_id, attributes, received_at
		FROM users FINAL`
	args := []any{}
	if directoryID != "" {
		query += ` WHERE directory_id = ?`
		args = append(args, directoryID)
	}
	query += ` ORDER BY directory_id, user_id`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserRecord
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListDirectories summarizes every directory seen so far.
func (s *Store) ListDirectories(ctx context.Context) ([]*models.DirectorySummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT directory_id, count(), max(received_at)
		FROM users FINAL
		GROUP BY directory_id
		ORDER BY directory_id`)
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}
	defer rows.Close()

	var summaries []*models.DirectorySummary
	for rows.Next() {
		var summary models.DirectorySummary
		var count uint64
		if err := rows.Scan(&summary.DirectoryID, &count, &summary.LastEventAt); err != nil {
			return nil, fmt.Errorf("scanning directory summary: %w", err)
		}
		summary.UserCount = int(count)
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}

// Clear removes all data.
func (s *Store) Clear(ctx context.Context) error {
	return s.conn.Exec(ctx, `TRUNCATE TABLE users`)
}

// Close flushes the buffer and closes the connection.
func (s *Store) Close() error {
	s.buffer.Close()
	return s.conn.Close()
}

func scanUser(rows driver.Rows) (*models.UserRecord, error) {
	var user models.UserRecord
	var attrs string
	if err := rows.Scan(&user.DirectoryID, &user.UserID, &user.UserName,
		&user.Event, &user.DeliveryID, &attrs, &user.ReceivedAt); err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(attrs), &decoded); err == nil {
		user.Attributes = models.NormalizeAttributes(decoded)
	} else {
		user.Attributes = map[string]any{}
	}
	return &user, nil
}
