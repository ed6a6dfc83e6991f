// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/haldin/scim_attribute_sync/pkg/models"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.up.sql
var migrationSQL string

// ErrNotFound is returned when a requested record is not found.
var ErrNotFound = models.ErrNotFound

// Store is a SQLite-backed storage for user records.
type Store struct {
	db *sql.DB
}

// Config holds SQLite store configuration.
type Config struct {
	DBPath string
}

// New creates a new SQLite store with the given configuration.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	// Run migrations
	if _, err := db.Exec(migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// StoreUser upserts a user record.
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (directory_id, user_id, user_name, event, delivery_id, attributes, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (directory_id, user_id) DO UPDATE SET
			user_name = excluded.user_name,
			event = excluded.event,
			delivery_id = excluded.delivery_id,
			attributes = excluded.attributes,
			received_at = excluded.received_at`,
		user.DirectoryID, user.UserID, user.UserName, user.Event, user.DeliveryID, string(attrs), user.ReceivedAt)
	if err != nil {
		return fmt.Errorf("upserting user %s/%s: %w", user.DirectoryID, user.UserID, err)
	}
	return nil
}

// GetUser retrieves one user record.
func (s *Store) GetUser(ctx context.Context, directoryID, userID string) (*models.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT directory_id, user_id, user_name, event, delivery_id, attributes, received_at
		FROM users WHERE directory_id = ? AND user_id = ?`,
		directoryID, userID)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s/%s: %w", directoryID, userID, ErrNotFound)
	}
	return user, err
}

// ListUsers returns records for one directory, or all when directoryID is
// empty.
func (s *Store) ListUsers(ctx context.Context, directoryID string) ([]*models.UserRecord, error) {
	query := `
		SELECT directory_id, user_id, user_name, event, delivery_id, attributes, received_at
		FROM users`
	args := []any{}
	if directoryID != "" {
		query += ` WHERE directory_id = ?`
		args = append(args, directoryID)
	}
	query += ` ORDER BY directory_id, user_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT directory_id, COUNT(*), MAX(received_at)
		FROM users GROUP BY directory_id ORDER BY directory_id`)
	if err != nil {
		return nil, fmt.Errorf("listing directories: %w", err)
	}
	defer rows.Close()

	var summaries []*models.DirectorySummary
	for rows.Next() {
		var s models.DirectorySummary
		var last time.Time
		if err := rows.Scan(&s.DirectoryID, &s.UserCount, &last); err != nil {
			return nil, fmt.Errorf("scanning directory summary: %w", err)
		}
		s.LastEventAt = last
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

// Clear removes all data.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*models.UserRecord, error) {
	var user models.UserRecord
	var attrs string
	if err := row.Scan(&user.DirectoryID, &user.UserID, &user.UserName,
		&user.Event, &user.DeliveryID, &attrs, &user.ReceivedAt); err != nil {
		return nil, err
	}
	user.Attributes = decodeAttributes(attrs)
	return &user, nil
}

// decodeAttributes restores the string / []string value shapes.
func decodeAttributes(raw string) map[string]any {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return map[string]any{}
	}
	return models.NormalizeAttributes(decoded)
}
