package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/govmatch/docanalysis/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// DocumentStore reads and writes document records in Firestore. Writes use
// whole-field semantics for the processing/analysis/content/entities blobs:
// callers pass the complete replacement value for each field path.
//
// Records are not safe for concurrent writers; one pipeline run per document
// at a time is the expected calling pattern.
type DocumentStore struct {
	client     *firestore.Client
	collection string
}

// NewDocumentStore wraps a Firestore client for the given collection.
func NewDocumentStore(client *firestore.Client, collection string) *DocumentStore {
	return &DocumentStore{client: client, collection: collection}
}

// FindOne fetches a document by ID, scoped to the organization. A missing
// record and a tenant mismatch are both reported as nil so callers cannot
// distinguish another tenant's documents from absent ones.
func (s *DocumentStore) FindOne(ctx context.Context, orgID, docID string) (*models.Document, error) {
	snap, err := s.client.Collection(s.collection).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch document %s: %w", docID, err)
	}

	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", docID, err)
	}
	doc.ID = snap.Ref.ID

	if doc.OrganizationID != orgID {
		return nil, nil
	}
	return &doc, nil
}

// FindByHash looks up an existing document for the organization with the
// given content hash, used for duplicate detection on upload.
func (s *DocumentStore) FindByHash(ctx context.Context, orgID, fileHash string) (*models.Document, error) {
	iter := s.client.Collection(s.collection).
		Where("organizationId", "==", orgID).
		Where("fileHash", "==", fileHash).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}

	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", snap.Ref.ID, err)
	}
	doc.ID = snap.Ref.ID
	return &doc, nil
}

// Create inserts a new document record and returns its generated ID.
func (s *DocumentStore) Create(ctx context.Context, doc *models.Document) (string, error) {
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	ref, _, err := s.client.Collection(s.collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create document record: %w", err)
	}
	return ref.ID, nil
}

// Update writes the given field paths on a document. Each value replaces the
// stored field wholesale.
func (s *DocumentStore) Update(ctx context.Context, docID string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now()})

	if _, err := s.client.Collection(s.collection).Doc(docID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update document %s: %w", docID, err)
	}
	return nil
}

// NotificationStore persists user-facing notification records.
type NotificationStore struct {
	client     *firestore.Client
	collection string
}

// NewNotificationStore wraps a Firestore client for the given collection.
func NewNotificationStore(client *firestore.Client, collection string) *NotificationStore {
	return &NotificationStore{client: client, collection: collection}
}

// Create inserts one notification record.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if _, err := s.client.Collection(s.collection).Doc(n.ID).Set(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification %s: %w", n.ID, err)
	}
	return nil
}
