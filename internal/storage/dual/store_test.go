package dual

import (
	"context"
	"testing"
	"time"

	"github.com/haldin/scim_attribute_sync/internal/storage/memory"
	"github.com/haldin/scim_attribute_sync/pkg/models"
)

func testUser(dir, id string) *models.UserRecord {
	return &models.UserRecord{
		DirectoryID: dir,
		UserID:      id,
		Event:       "user.created",
		Attributes:  map[string]any{"segment": "SMB"},
		ReceivedAt:  time.Now().UTC(),
	}
}

// waitForUser polls the secondary until the async write lands.
func waitForUser(t *testing.T, s *memory.Store, dir, id string) *models.UserRecord {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if user, err := s.GetUser(context.Background(), dir, id); err == nil {
			return user
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("user %s/%s never reached secondary", dir, id)
	return nil
}

func TestDualWriteReachesBothBackends(t *testing.T) {
	primary := memory.New()
	secondary := memory.New()
	s := New(Config{Primary: primary, Secondary: secondary})
	ctx := context.Background()

	if err := s.StoreUser(ctx, testUser("dir_1", "u1")); err != nil {
		t.Fatalf("StoreUser failed: %v", err)
	}

	if _, err := primary.GetUser(ctx, "dir_1", "u1"); err != nil {
		t.Errorf("Primary missing record: %v", err)
	}
	waitForUser(t, secondary, "dir_1", "u1")
}

func TestReadsComeFromPrimary(t *testing.T) {
	primary := memory.New()
	secondary := memory.New()
	s := New(Config{Primary: primary, Secondary: secondary})
	ctx := context.Background()

	// Seed the secondary only; the dual store must not see it.
	if err := secondary.StoreUser(ctx, testUser("dir_1", "hidden")); err != nil {
		t.Fatalf("StoreUser failed: %v", err)
	}

	if _, err := s.GetUser(ctx, "dir_1", "hidden"); err == nil {
		t.Error("Expected not-found from primary-only read")
	}

	users, err := s.ListUsers(ctx, "")
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("Expected no users from primary, got %d", len(users))
	}
}

func TestPrimaryFailureFailsWrite(t *testing.T) {
	primary := memory.New()
	secondary := memory.New()
	s := New(Config{Primary: primary, Secondary: secondary})

	// Invalid record: primary rejects it, so the write must fail and
	// never reach the secondary.
	err := s.StoreUser(context.Background(), &models.UserRecord{UserID: "u1"})
	if err == nil {
		t.Fatal("Expected error from primary write")
	}
}
