// ABOUTME: Firestore implementation of the Store interface
// ABOUTME: Persists chat records as documents in a single collection

package store

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultCollection is the Firestore collection used when none is configured.
const DefaultCollection = "messages"

// FirestoreStore implements the Store interface backed by a Cloud
// Firestore collection. Document IDs are generated by the backend.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestoreStore connects to Firestore for the given project.
// If credentialsFile is empty, application default credentials are used.
func NewFirestoreStore(ctx context.Context, projectID, collection, credentialsFile string) (*FirestoreStore, error) {
	logger := slog.Default().With("component", "store")

	if projectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to firestore: %w", err)
	}

	logger.Info("Firestore store initialized", "project", projectID, "collection", collection)
	return &FirestoreStore{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

func (s *FirestoreStore) Close() error {
	s.logger.Info("closing Firestore store")
	return s.client.Close()
}

// Create adds a new document and returns its generated ID.
func (s *FirestoreStore) Create(ctx context.Context, rec *Record) (string, error) {
	doc, _, err := s.client.Collection(s.collection).Add(ctx, map[string]any{
		"identity":  rec.Identity,
		"text":      rec.Text,
		"isUser":    rec.IsUser,
		"timestamp": rec.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("creating record: %w", err)
	}

	s.logger.Debug("created record", "id", doc.ID, "identity", rec.Identity)
	return doc.ID, nil
}

// UpdateText replaces the text field of an existing document.
func (s *FirestoreStore) UpdateText(ctx context.Context, id, text string) error {
	_, err := s.client.Collection(s.collection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "text", Value: text},
	})
	if err != nil {
		return fmt.Errorf("updating record %s: %w", id, err)
	}

	s.logger.Debug("updated record", "id", id)
	return nil
}

// Delete removes a document by ID. Firestore deletes are idempotent,
// so deleting a missing document succeeds.
func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}

	s.logger.Debug("deleted record", "id", id)
	return nil
}

// DeleteBatch removes the given documents in one transaction.
// Firestore caps transactions at 500 writes; a conversation larger
// than that fails the batch as a whole.
func (s *FirestoreStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	coll := s.client.Collection(s.collection)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, id := range ids {
			if err := tx.Delete(coll.Doc(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting %d records: %w", len(ids), err)
	}

	s.logger.Debug("deleted records", "count", len(ids))
	return nil
}

// ListByIdentity queries all documents for an identity in chronological
// order (oldest first).
func (s *FirestoreStore) ListByIdentity(ctx context.Context, identity string) ([]*Record, error) {
	iter := s.client.Collection(s.collection).
		Where("identity", "==", identity).
		OrderBy("timestamp", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var records []*Record
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}

		records = append(records, docToRecord(doc.Ref.ID, doc.Data()))
	}

	return records, nil
}

// docToRecord maps a raw document into a Record. Fields with
// unexpected types are left at their zero values, except the
// timestamp, which falls back to the current time.
func docToRecord(id string, data map[string]any) *Record {
	rec := &Record{ID: id}

	if v, ok := data["identity"].(string); ok {
		rec.Identity = v
	}
	if v, ok := data["text"].(string); ok {
		rec.Text = v
	}
	if v, ok := data["isUser"].(bool); ok {
		rec.IsUser = v
	}
	rec.Timestamp = NormalizeTimestamp(data["timestamp"])

	return rec
}

// Verify interface compliance at compile time
var _ Store = (*FirestoreStore)(nil)
