package services

import (
	"context"

	"github.com/govmatch/docanalysis/internal/extract"
	"github.com/govmatch/docanalysis/internal/models"
)

// DocumentStore is the persistence port for document records. Update uses
// whole-field semantics: the value passed for a field path replaces the
// stored field. Implementations are not expected to serialize concurrent
// writers on one document; the pipeline assumes a single writer per run.
type DocumentStore interface {
	FindOne(ctx context.Context, orgID, docID string) (*models.Document, error)
	Update(ctx context.Context, docID string, fields map[string]any) error
}

// BlobStore fetches original uploaded files. Download returns the content
// plus the storage key that actually resolved after fallback-path resolution.
type BlobStore interface {
	Download(ctx context.Context, filePath, orgID string) ([]byte, string, error)
}

// TextExtractor converts file bytes into plain text per mime type.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (extract.Result, error)
}

// NotificationStore persists user-facing notification records.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// EventEmitter publishes fire-and-forget lifecycle events for external
// consumers. Send must not block the pipeline on delivery problems.
type EventEmitter interface {
	Send(ctx context.Context, eventName string, payload map[string]any)
}
