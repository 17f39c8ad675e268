// ABOUTME: Backend selection for the message store
// ABOUTME: Opens a Firestore, SQLite, or in-memory store from configuration

package store

import (
	"context"
	"fmt"

	"github.com/2389/parley/internal/config"
)

// Open creates the store named by cfg.Backend. The config has already
// been validated, but an unknown backend still errors here so a caller
// constructing a StoreConfig by hand gets a clear failure.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		return NewFirestoreStore(ctx, cfg.ProjectID, cfg.Collection, cfg.CredentialsFile)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.BackendMemory:
		return NewMockStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
