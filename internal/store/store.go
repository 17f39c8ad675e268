// ABOUTME: Store interface and record type for chat message persistence
// ABOUTME: Defines Record, the Store contract, and timestamp normalization

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Record represents a single chat message document as persisted remotely.
// ID is the backend-assigned document identifier and is empty until the
// record has been created.
type Record struct {
	ID        string    `firestore:"-"`
	Identity  string    `firestore:"identity"`
	Text      string    `firestore:"text"`
	IsUser    bool      `firestore:"isUser"`
	Timestamp time.Time `firestore:"timestamp"`
}

// Store defines the interface for chat message persistence
type Store interface {
	// Create persists a new record and returns its generated ID.
	Create(ctx context.Context, rec *Record) (string, error)

	// UpdateText replaces the text field of the record with the given ID.
	UpdateText(ctx context.Context, id, text string) error

	// Delete removes the record with the given ID.
	// Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteBatch removes the given records atomically: either every
	// record is deleted or none are.
	DeleteBatch(ctx context.Context, ids []string) error

	// ListByIdentity returns all records tagged with the identity,
	// ordered by timestamp ascending.
	ListByIdentity(ctx context.Context, identity string) ([]*Record, error)

	// Close releases any resources held by the store
	Close() error
}

// NormalizeTimestamp coerces a raw stored timestamp value into a
// time.Time. Native times pass through, RFC3339 strings are parsed,
// and anything else (nil included) yields the current time so a single
// malformed document cannot fail a whole load.
func NormalizeTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Now()
}
