// ABOUTME: Tests for the store backend factory
// ABOUTME: Verifies backend selection from configuration

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/2389/parley/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Backend: config.BackendMemory})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*MockStore); !ok {
		t.Errorf("expected *MockStore, got %T", s)
	}
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{
		Backend: config.BackendSQLite,
		Path:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.StoreConfig{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
