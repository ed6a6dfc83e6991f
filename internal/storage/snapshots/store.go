// Package snapshots provides file-based export and restore of a storage
// backend's user records as gzip-compressed JSON snapshots.
package snapshots

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haldin/scim_attribute_sync/internal/storage"
	"github.com/haldin/scim_attribute_sync/pkg/models"
)

// Default configuration values
const (
	DefaultSnapshotDir    = "./data/snapshots"
	DefaultMaxSnapshots   = 50
	SnapshotFileExtension = ".json.gz"
	CurrentVersion        = 1
)

// ErrNotFound is returned when a named snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Config contains snapshot storage configuration.
type Config struct {
	// Dir is the directory where snapshots are stored
	Dir string

	// MaxSnapshots is the maximum number of snapshots to keep
	MaxSnapshots int
}

// DefaultConfig returns the default snapshot storage configuration.
func DefaultConfig() Config {
	return Config{
		Dir:          DefaultSnapshotDir,
		MaxSnapshots: DefaultMaxSnapshots,
	}
}

// Snapshot is the on-disk representation.
type Snapshot struct {
	Version   int                  `json:"version"`
	Name      string               `json:"name"`
	CreatedAt time.Time            `json:"created_at"`
	Users     []*models.UserRecord `json:"users"`
}

// Info describes a stored snapshot without its payload.
type Info struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UserCount int       `json:"user_count"`
	SizeBytes int64     `json:"size_bytes"`
}

// Store is a file-based snapshot store.
type Store struct {
	config Config
	mu     sync.Mutex
}

// New creates a snapshot store, creating the directory if needed.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultSnapshotDir
	}
	if cfg.MaxSnapshots <= 0 {
		cfg.MaxSnapshots = DefaultMaxSnapshots
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &Store{config: cfg}, nil
}

// Save exports all user records from src into a named snapshot file.
func (s *Store) Save(ctx context.Context, name string, src storage.Storage) (*Info, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	users, err := src.ListUsers(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("reading store for snapshot: %w", err)
	}

	snap := Snapshot{
		Version:   CurrentVersion,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Users:     users,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name)
	if err := writeSnapshot(path, &snap); err != nil {
		return nil, err
	}
	if err := s.pruneLocked(); err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stating snapshot: %w", err)
	}
	return &Info{
		Name:      name,
		CreatedAt: snap.CreatedAt,
		UserCount: len(users),
		SizeBytes: stat.Size(),
	}, nil
}

// Restore clears dst and loads the named snapshot into it. Records are
// validated before dst is touched; if a write still fails mid-restore the
// destination keeps the records stored so far and the error says how many
// made it.
func (s *Store) Restore(ctx context.Context, name string, dst storage.Storage) (int, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	s.mu.Lock()
	snap, err := readSnapshot(s.path(name))
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	for _, user := range snap.Users {
		if user.DirectoryID == "" || user.UserID == "" {
			return 0, fmt.Errorf("snapshot %s holds a record without identity, refusing to restore", name)
		}
	}

	if err := dst.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clearing store before restore: %w", err)
	}
	for i, user := range snap.Users {
		if err := dst.StoreUser(ctx, user); err != nil {
			return i, fmt.Errorf("restoring user %s/%s, %d of %d records written and store left partially restored: %w",
				user.DirectoryID, user.UserID, i, len(snap.Users), err)
		}
	}
	return len(snap.Users), nil
}

// List returns info for all stored snapshots, newest first.
func (s *Store) List() ([]*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot dir: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), SnapshotFileExtension) {
			continue
		}
		path := filepath.Join(s.config.Dir, entry.Name())
		snap, err := readSnapshot(path)
		if err != nil {
			// Unreadable file: skip rather than fail the listing.
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			Name:      snap.Name,
			CreatedAt: snap.CreatedAt,
			UserCount: len(snap.Users),
			SizeBytes: stat.Size(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Delete removes a named snapshot.
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("snapshot %s: %w", name, ErrNotFound)
	}
	return err
}

// pruneLocked deletes the oldest snapshots past MaxSnapshots. Caller
// holds the lock.
func (s *Store) pruneLocked() error {
	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return fmt.Errorf("reading snapshot dir: %w", err)
	}

	type fileAge struct {
		path string
		mod  time.Time
	}
	var files []fileAge
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), SnapshotFileExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileAge{filepath.Join(s.config.Dir, entry.Name()), info.ModTime()})
	}
	if len(files) <= s.config.MaxSnapshots {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for _, f := range files[:len(files)-s.config.MaxSnapshots] {
		if err := os.Remove(f.path); err != nil {
			return fmt.Errorf("pruning snapshot %s: %w", f.path, err)
		}
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.config.Dir, name+SnapshotFileExtension)
}

func validateName(name string) error {
	if name == "" {
		return errors.New("snapshot name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}

func writeSnapshot(path string, snap *Snapshot) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	return os.Rename(tmp, path)
}

func readSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("snapshot %s: %w", filepath.Base(path), ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening gzip reader: %w", err)
	}
	defer gz.Close()

	var snap Snapshot
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	for _, user := range snap.Users {
		user.Attributes = models.NormalizeAttributes(user.Attributes)
	}
	return &snap, nil
}
