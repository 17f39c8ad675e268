// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests and the memory backend to run without SQLite or Firestore

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing and the
// "memory" backend. Tests can set the Fail* fields to make individual
// operations return that error instead of touching the records.
type MockStore struct {
	mu      sync.RWMutex
	records []*Record // insertion order

	FailCreate      error
	FailUpdateText  error
	FailDelete      error
	FailDeleteBatch error
	FailList        error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Create stores a new record and returns a generated ID.
func (m *MockStore) Create(ctx context.Context, rec *Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreate != nil {
		return "", m.FailCreate
	}

	// Make a copy to avoid external modification
	r := *rec
	r.ID = uuid.New().String()
	m.records = append(m.records, &r)

	return r.ID, nil
}

// UpdateText replaces the text of an existing record.
func (m *MockStore) UpdateText(ctx context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpdateText != nil {
		return m.FailUpdateText
	}

	for _, r := range m.records {
		if r.ID == id {
			r.Text = text
			return nil
		}
	}

	return ErrNotFound
}

// Delete removes a record by ID. Missing records are a no-op.
func (m *MockStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDelete != nil {
		return m.FailDelete
	}

	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}

	return nil
}

// DeleteBatch removes the given records. The in-memory form is
// trivially atomic under the lock.
func (m *MockStore) DeleteBatch(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDeleteBatch != nil {
		return m.FailDeleteBatch
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := m.records[:0]
	for _, r := range m.records {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	m.records = kept

	return nil
}

// ListByIdentity returns copies of all records for the identity,
// ordered by timestamp ascending. Ties keep insertion order.
func (m *MockStore) ListByIdentity(ctx context.Context, identity string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailList != nil {
		return nil, m.FailList
	}

	var records []*Record
	for _, r := range m.records {
		if r.Identity == identity {
			rec := *r
			records = append(records, &rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Len reports the number of stored records across all identities.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Verify interface compliance at compile time
var _ Store = (*MockStore)(nil)
