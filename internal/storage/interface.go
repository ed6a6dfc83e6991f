// Package storage defines the storage interface for synced user records.
package storage

import (
	"context"

	"github.com/haldin/scim_attribute_sync/pkg/models"
)

// Storage persists the per-user attribute records produced by the
// extractor. Implementations must be safe for concurrent use.
//
// StoreUser upserts: a later event for the same (directory, user)
// replaces the stored attributes.
type Storage interface {
	StoreUser(ctx context.Context, user *models.UserRecord) error
	GetUser(ctx context.Context, directoryID, userID string) (*models.UserRecord, error)

	// ListUsers returns records for one directory, or all records when
	// directoryID is empty, sorted by (directory, user).
	ListUsers(ctx context.Context, directoryID string) ([]*models.UserRecord, error)

	// ListDirectories summarizes every directory seen so far.
	ListDirectories(ctx context.Context) ([]*models.DirectorySummary, error)

	// Clear removes all data.
	Clear(ctx context.Context) error

	// Close releases resources (DB connections, flush buffers).
	Close() error
}
