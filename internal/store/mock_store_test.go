// ABOUTME: Tests for the in-memory MockStore
// ABOUTME: Verifies the Store contract and copy-out semantics

package store

import (
	"context"
	"testing"
	"time"
)

func TestMockStore_CreateAssignsID(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	id, err := m.Create(ctx, &Record{Identity: "user-1", Text: "hi", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty ID")
	}
}

func TestMockStore_ListReturnsCopies(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	if _, err := m.Create(ctx, &Record{Identity: "user-1", Text: "original", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := m.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}

	// Mutating the returned record must not affect stored state
	first[0].Text = "mutated"

	second, err := m.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if second[0].Text != "original" {
		t.Errorf("stored record was mutated through a returned copy: %q", second[0].Text)
	}
}

func TestMockStore_List_OrdersByTimestampStable(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Two records share a timestamp; insertion order must hold for the tie.
	for _, rec := range []*Record{
		{Identity: "user-1", Text: "late", Timestamp: base.Add(time.Hour)},
		{Identity: "user-1", Text: "tie-a", Timestamp: base},
		{Identity: "user-1", Text: "tie-b", Timestamp: base},
	} {
		if _, err := m.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, err := m.ListByIdentity(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}

	want := []string{"tie-a", "tie-b", "late"}
	for i, text := range want {
		if records[i].Text != text {
			t.Errorf("position %d: got %q, want %q", i, records[i].Text, text)
		}
	}
}

func TestMockStore_UpdateText_NotFound(t *testing.T) {
	m := NewMockStore()

	err := m.UpdateText(context.Background(), "missing", "text")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMockStore_DeleteBatch(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	var ids []string
	for range 3 {
		id, err := m.Create(ctx, &Record{Identity: "user-1", Text: "msg", Timestamp: time.Now()})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, id)
	}

	if err := m.DeleteBatch(ctx, ids[:2]); err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}

	if m.Len() != 1 {
		t.Errorf("expected 1 record remaining, got %d", m.Len())
	}
}
