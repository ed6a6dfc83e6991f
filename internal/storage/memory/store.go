// Package memory provides an in-memory storage implementation for user
// records.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/haldin/scim_attribute_sync/pkg/models"
)

// ErrNotFound is returned when a requested record is not found.
var ErrNotFound = models.ErrNotFound

// Store is an in-memory store keyed by directory then user.
type Store struct {
	mu    sync.RWMutex
	users map[string]map[string]*models.UserRecord
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users: make(map[string]map[string]*models.UserRecord),
	}
}

// StoreUser upserts a user record.
func (s *Store) StoreUser(ctx context.Context, user *models.UserRecord) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if user.DirectoryID == "" {
		return errors.New("directory id cannot be empty")
	}
	if user.UserID == "" {
		return errors.New("user id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir, ok := s.users[user.DirectoryID]
	if !ok {
		dir = make(map[string]*models.UserRecord)
		s.users[user.DirectoryID] = dir
	}
	dir[user.UserID] = user.Clone()
	return nil
}

// GetUser retrieves one user record.
func (s *Store) GetUser(ctx context.Context, directoryID, userID string) (*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[directoryID][userID]
	if !ok {
		return nil, fmt.Errorf("user %s/%s: %w", directoryID, userID, ErrNotFound)
	}
	return user.Clone(), nil
}

// ListUsers returns records for one directory, or all when directoryID is
// empty.
func (s *Store) ListUsers(ctx context.Context, directoryID string) ([]*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*models.UserRecord
	for dirID, dir := range s.users {
		if directoryID != "" && dirID != directoryID {
			continue
		}
		for _, user := range dir {
			users = append(users, user.Clone())
		}
	}

	// Sort for consistency
	sort.Slice(users, func(i, j int) bool {
		if users[i].DirectoryID != users[j].DirectoryID {
			return users[i].DirectoryID < users[j].DirectoryID
		}
		return users[i].UserID < users[j].UserID
	})

	return users, nil
}

// ListDirectories summarizes every directory seen so far.
func (s *Store) ListDirectories(ctx context.Context) ([]*models.DirectorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]*models.DirectorySummary, 0, len(s.users))
	for dirID, dir := range s.users {
		summary := &models.DirectorySummary{DirectoryID: dirID, UserCount: len(dir)}
		for _, user := range dir {
			if user.ReceivedAt.After(summary.LastEventAt) {
				summary.LastEventAt = user.ReceivedAt
			}
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DirectoryID < summaries[j].DirectoryID
	})

	return summaries, nil
}

// Clear removes all data.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]map[string]*models.UserRecord)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
