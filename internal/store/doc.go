// Package store provides persistence for chat message records.
//
// # Backends
//
// Three implementations of the Store interface are provided:
//
//   - FirestoreStore: hosted document database, the production backend
//   - SQLiteStore: local file database for development and offline use
//   - MockStore: in-memory store for tests and the "memory" backend
//
// All backends share the same contract: Create assigns the record ID,
// ListByIdentity returns ascending-timestamp order, Delete is
// idempotent, and DeleteBatch is all-or-nothing.
//
// # Data Model
//
// A Record is one chat message document:
//
//   - Identity: owner of the message (the signed-in user's ID)
//   - Text: message content
//   - IsUser: true for user-authored, false for assistant
//   - Timestamp: creation time
//
// Firestore documents use the field names identity, text, isUser and
// timestamp. SQLite stores timestamps as RFC3339 strings.
//
// # Error Handling
//
// ErrNotFound is returned when updating a record that does not exist.
// Loading tolerates malformed stored timestamps: NormalizeTimestamp
// substitutes the current time rather than failing the whole query.
//
// All methods accept context.Context for cancellation support.
package store
