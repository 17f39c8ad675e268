// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Local message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite. It backs
// local development and offline use, where the hosted document store
// is unavailable.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id        TEXT PRIMARY KEY,
			identity  TEXT NOT NULL,
			text      TEXT NOT NULL,
			is_user   INTEGER NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_identity
			ON messages(identity, timestamp);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Create inserts a new record with a generated ID and returns the ID.
func (s *SQLiteStore) Create(ctx context.Context, rec *Record) (string, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO messages (id, identity, text, is_user, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		id,
		rec.Identity,
		rec.Text,
		boolToInt(rec.IsUser),
		rec.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("inserting record: %w", err)
	}

	s.logger.Debug("created record", "id", id, "identity", rec.Identity)
	return id, nil
}

// UpdateText replaces the text of an existing record.
// Returns ErrNotFound if the record doesn't exist.
func (s *SQLiteStore) UpdateText(ctx context.Context, id, text string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated record", "id", id)
	return nil
}

// Delete removes a record by ID. Deleting a missing record is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	s.logger.Debug("deleted record", "id", id)
	return nil
}

// DeleteBatch removes the given records inside a single transaction,
// so either all deletes apply or none do.
func (s *SQLiteStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting record %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch delete: %w", err)
	}

	s.logger.Debug("deleted records", "count", len(ids))
	return nil
}

// ListByIdentity retrieves all records for an identity in chronological
// order (oldest first).
func (s *SQLiteStore) ListByIdentity(ctx context.Context, identity string) ([]*Record, error) {
	query := `
		SELECT id, identity, text, is_user, timestamp
		FROM messages
		WHERE identity = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var isUser int
		var timestampStr string

		if err := rows.Scan(&rec.ID, &rec.Identity, &rec.Text, &isUser, &timestampStr); err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}

		rec.IsUser = isUser != 0
		rec.Timestamp = NormalizeTimestamp(timestampStr)

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record rows: %w", err)
	}

	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Verify interface compliance at compile time
var _ Store = (*SQLiteStore)(nil)
