// Package dual wraps two storage backends for migration scenarios.
// Writes go to both primary and secondary; reads come from primary only.
package dual

import (
	"context"
	"log/slog"

	"github.com/haldin/scim_attribute_sync/pkg/models"
)

// Backend is the storage API both sides must implement. It mirrors the
// storage.Storage interface; declaring it here keeps this package a leaf
// the storage factory can import.
type Backend interface {
	StoreUser(ctx context.Context, user *models.UserRecord) error
	GetUser(ctx context.Context, directoryID, userID string) (*models.UserRecord, error)
	ListUsers(ctx context.Context, directoryID string) ([]*models.UserRecord, error)
	ListDirectories(ctx context.Context) ([]*models.DirectorySummary, error)
	Clear(ctx context.Context) error
	Close() error
}

// Store fans writes out to two backends.
type Store struct {
	primary   Backend
	secondary Backend
	logger    *slog.Logger
}

// Config holds dual store configuration.
type Config struct {
	Primary   Backend
	Secondary Backend
	Logger    *slog.Logger
}

// New creates a new dual-write store.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store{
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		logger:    cfg.Logger,
	}
}

// dualWrite performs a write to both backends. The primary determines
// success; secondary errors are logged but don't fail the operation.
func (s *Store) dualWrite(op string, primaryWrite, secondaryWrite func() error) error {
	if err := primaryWrite(); err != nil {
		return err
	}

	go func() {
		if err := secondaryWrite(); err != nil {
			s.logger.Error("dual-write to secondary failed",
				"operation", op,
				"error", err,
			)
		}
	}()

	return nil
}

// StoreUser stores a user record in both backends.
func (s *Store) StoreUser(ctx context.Context, user *models.UserRecord) error {
	return s.dualWrite("StoreUser",
		func() error { return s.primary.StoreUser(ctx, user) },
		func() error { return s.secondary.StoreUser(context.WithoutCancel(ctx), user) },
	)
}

// GetUser reads from the primary.
func (s *Store) GetUser(ctx context.Context, directoryID, userID string) (*models.UserRecord, error) {
	return s.primary.GetUser(ctx, directoryID, userID)
}

// ListUsers reads from the primary.
func (s *Store) ListUsers(ctx context.Context, directoryID string) ([]*models.UserRecord, error) {
	return s.primary.ListUsers(ctx, directoryID)
}

// ListDirectories reads from the primary.
func (s *Store) ListDirectories(ctx context.Context) ([]*models.DirectorySummary, error) {
	return s.primary.ListDirectories(ctx)
}

// Clear clears both backends.
func (s *Store) Clear(ctx context.Context) error {
	return s.dualWrite("Clear",
		func() error { return s.primary.Clear(ctx) },
		func() error { return s.secondary.Clear(context.WithoutCancel(ctx)) },
	)
}

// Close closes both backends; the first error wins.
func (s *Store) Close() error {
	errPrimary := s.primary.Close()
	errSecondary := s.secondary.Close()
	if errPrimary != nil {
		return errPrimary
	}
	return errSecondary
}
