// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers record CRUD, batch deletion, and identity-scoped listing

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestCreateAndListRecords(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := &Record{
		Identity:  "user-1",
		Text:      "hello",
		IsUser:    true,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}

	id, err := store.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty ID")
	}

	records, err := store.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.ID != id {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, id)
	}
	if got.Identity != rec.Identity {
		t.Errorf("Identity mismatch: got %q, want %q", got.Identity, rec.Identity)
	}
	if got.Text != rec.Text {
		t.Errorf("Text mismatch: got %q, want %q", got.Text, rec.Text)
	}
	if !got.IsUser {
		t.Error("IsUser mismatch: got false, want true")
	}
	if !got.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp mismatch: got %v, want %v", got.Timestamp, rec.Timestamp)
	}
}

func TestListByIdentity_OrdersByTimestamp(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of chronological order
	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		_, err := store.Create(ctx, &Record{
			Identity:  "user-1",
			Text:      offset.String(),
			IsUser:    true,
			Timestamp: base.Add(offset),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, err := store.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			t.Errorf("records out of order at index %d: %v before %v",
				i, records[i].Timestamp, records[i-1].Timestamp)
		}
	}
}

func TestListByIdentity_FiltersOtherIdentities(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	for _, identity := range []string{"user-1", "user-2", "user-1"} {
		_, err := store.Create(ctx, &Record{
			Identity:  identity,
			Text:      "msg",
			Timestamp: now,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, err := store.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for user-1, got %d", len(records))
	}
	for _, r := range records {
		if r.Identity != "user-1" {
			t.Errorf("unexpected identity %q in results", r.Identity)
		}
	}
}

func TestUpdateText(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	id, err := store.Create(ctx, &Record{
		Identity:  "user-1",
		Text:      "before",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.UpdateText(ctx, id, "after"); err != nil {
		t.Fatalf("UpdateText failed: %v", err)
	}

	records, err := store.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(records) != 1 || records[0].Text != "after" {
		t.Errorf("expected updated text %q, got %+v", "after", records)
	}
}

func TestUpdateText_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	err := store.UpdateText(context.Background(), "nonexistent", "text")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	id, err := store.Create(ctx, &Record{
		Identity:  "user-1",
		Text:      "bye",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	records, err := store.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records after delete, got %d", len(records))
	}
}

func TestDelete_MissingRecordIsNoop(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if err := store.Delete(context.Background(), "nonexistent"); err != nil {
		t.Errorf("expected nil deleting missing record, got %v", err)
	}
}

func TestDeleteBatch(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	var ids []string
	for range 3 {
		id, err := store.Create(ctx, &Record{
			Identity:  "user-1",
			Text:      "msg",
			Timestamp: now,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, id)
	}

	if err := store.DeleteBatch(ctx, ids); err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}

	records, err := store.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records after batch delete, got %d", len(records))
	}
}

func TestDeleteBatch_Empty(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if err := store.DeleteBatch(context.Background(), nil); err != nil {
		t.Errorf("expected nil for empty batch, got %v", err)
	}
}

func TestListByIdentity_MalformedTimestampFallsBack(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	// A row written by an older or foreign client may carry an
	// unparseable timestamp. Loading must tolerate it.
	_, err := store.db.Exec(
		`INSERT INTO messages (id, identity, text, is_user, timestamp)
		 VALUES ('bad-ts', 'user1', 'hello', 1, 'not-a-date')`)
	if err != nil {
		t.Fatalf("inserting raw row failed: %v", err)
	}

	before := time.Now()
	records, err := store.ListByIdentity(context.Background(), "user1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	after := time.Now()

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	ts := records[0].Timestamp
	if ts.Before(before) || ts.After(after) {
		t.Errorf("expected fallback to current time, got %v", ts)
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	return store
}
