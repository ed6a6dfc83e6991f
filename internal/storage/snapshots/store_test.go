package snapshots

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/haldin/scim_attribute_sync/internal/storage/memory"
	"github.com/haldin/scim_attribute_sync/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(Config{Dir: t.TempDir(), MaxSnapshots: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func seedUsers(t *testing.T, s *memory.Store, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		user := &models.UserRecord{
			DirectoryID: "dir_1",
			UserID:      string(rune('a' + i)),
			Event:       "user.created",
			Attributes:  map[string]any{"segment": "SMB", "teams": []string{"x", "y"}},
			ReceivedAt:  time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := s.StoreUser(context.Background(), user); err != nil {
			t.Fatalf("StoreUser failed: %v", err)
		}
	}
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	snaps := newTestStore(t)
	ctx := context.Background()

	src := memory.New()
	seedUsers(t, src, 3)

	info, err := snaps.Save(ctx, "before-migration", src)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if info.UserCount != 3 {
		t.Errorf("Expected 3 users in snapshot, got %d", info.UserCount)
	}

	dst := memory.New()
	seedUsers(t, dst, 1) // restore must clear this

	count, err := snaps.Restore(ctx, "before-migration", dst)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 restored users, got %d", count)
	}

	srcUsers, _ := src.ListUsers(ctx, "")
	dstUsers, _ := dst.ListUsers(ctx, "")
	if !reflect.DeepEqual(srcUsers, dstUsers) {
		t.Errorf("Round trip mismatch:\nsrc %+v\ndst %+v", srcUsers, dstUsers)
	}
}

func TestRestoreMissingSnapshot(t *testing.T) {
	snaps := newTestStore(t)

	_, err := snaps.Restore(context.Background(), "nope", memory.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	snaps := newTestStore(t)
	ctx := context.Background()

	src := memory.New()
	seedUsers(t, src, 2)

	if _, err := snaps.Save(ctx, "first", src); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := snaps.Save(ctx, "second", src); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	infos, err := snaps.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(infos))
	}

	if err := snaps.Delete("first"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	infos, _ = snaps.List()
	if len(infos) != 1 || infos[0].Name != "second" {
		t.Errorf("Unexpected snapshots after delete: %+v", infos)
	}

	if err := snaps.Delete("first"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestInvalidNames(t *testing.T) {
	snaps := newTestStore(t)

	for _, name := range []string{"", "../escape", "a/b", `a\b`, ".", ".."} {
		if _, err := snaps.Save(context.Background(), name, memory.New()); err == nil {
			t.Errorf("Expected error for name %q", name)
		}
	}
}

// failingStore rejects writes past a budget, standing in for a
// destination that runs out of disk mid-restore.
type failingStore struct {
	*memory.Store
	allowed int
	writes  int
}

func (f *failingStore) StoreUser(ctx context.Context, user *models.UserRecord) error {
	if f.writes >= f.allowed {
		return errors.New("disk full")
	}
	f.writes++
	return f.Store.StoreUser(ctx, user)
}

func TestRestorePartialFailureReported(t *testing.T) {
	snaps := newTestStore(t)
	ctx := context.Background()

	src := memory.New()
	seedUsers(t, src, 3)
	if _, err := snaps.Save(ctx, "snap", src); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := &failingStore{Store: memory.New(), allowed: 1}
	count, err := snaps.Restore(ctx, "snap", dst)
	if err == nil {
		t.Fatal("Expected error from failing destination")
	}
	if count != 1 {
		t.Errorf("Expected 1 written record reported, got %d", count)
	}
	if !strings.Contains(err.Error(), "partially restored") {
		t.Errorf("Error should flag the partial state: %v", err)
	}
}

func TestRestoreRejectsRecordsWithoutIdentity(t *testing.T) {
	snaps := newTestStore(t)
	ctx := context.Background()

	bad := &Snapshot{
		Version:   CurrentVersion,
		Name:      "bad",
		CreatedAt: time.Now().UTC(),
		Users:     []*models.UserRecord{{DirectoryID: "dir_1"}},
	}
	if err := writeSnapshot(snaps.path("bad"), bad); err != nil {
		t.Fatalf("writeSnapshot failed: %v", err)
	}

	dst := memory.New()
	seedUsers(t, dst, 1)

	if _, err := snaps.Restore(ctx, "bad", dst); err == nil {
		t.Fatal("Expected error for a record without identity")
	}
	users, _ := dst.ListUsers(ctx, "")
	if len(users) != 1 {
		t.Errorf("Destination must be untouched, got %d users", len(users))
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	snaps := newTestStore(t) // MaxSnapshots: 3
	ctx := context.Background()
	src := memory.New()
	seedUsers(t, src, 1)

	for _, name := range []string{"s1", "s2", "s3", "s4"} {
		if _, err := snaps.Save(ctx, name, src); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		// Distinct mtimes so prune ordering is deterministic.
		time.Sleep(10 * time.Millisecond)
	}

	infos, err := snaps.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 snapshots after prune, got %d", len(infos))
	}
	for _, info := range infos {
		if info.Name == "s1" {
			t.Error("Oldest snapshot s1 should have been pruned")
		}
	}
}
