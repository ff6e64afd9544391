package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/govmatch/docanalysis/internal/models"
)

// GCSEvent is the subset of the storage object payload the upload trigger
// needs from a google.cloud.storage.object.v1.finalized CloudEvent.
type GCSEvent struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

// UploadStore is the persistence surface the upload trigger needs.
type UploadStore interface {
	FindByHash(ctx context.Context, orgID, fileHash string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) (string, error)
	Update(ctx context.Context, docID string, fields map[string]any) error
}

// ObjectFetcher reads the uploaded object's bytes.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, object string) ([]byte, error)
}

// WorkflowLauncher hands a created document off to the orchestration
// workflow that drives the analysis pipeline.
type WorkflowLauncher interface {
	Launch(ctx context.Context, argument map[string]any) (string, error)
}

// UploadTrigger reacts to finalized uploads: it hashes the object for
// duplicate detection, creates the document record, and launches the
// analysis workflow. Returning an error re-delivers the event, so only
// retryable failures propagate; duplicates and unsupported types exit clean.
type UploadTrigger struct {
	store    UploadStore
	objects  ObjectFetcher
	launcher WorkflowLauncher
	variant  string
}

// NewUploadTrigger wires the trigger. variant selects the pipeline variant
// launched for new uploads; empty means full.
func NewUploadTrigger(store UploadStore, objects ObjectFetcher, launcher WorkflowLauncher, variant string) *UploadTrigger {
	if variant == "" {
		variant = models.VariantFull
	}
	return &UploadTrigger{store: store, objects: objects, launcher: launcher, variant: variant}
}

// Process handles one finalized upload.
func (u *UploadTrigger) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new upload.")

	if !supportedMimeType(e.ContentType) {
		logCtx.Info("Skipping object with unsupported content type.", "contentType", e.ContentType)
		return nil
	}

	orgID := organizationFor(e)
	if orgID == "" {
		logCtx.Warn("Skipping object with no resolvable organization.")
		return nil
	}
	logCtx = logCtx.With("organizationId", orgID)

	data, err := u.objects.Fetch(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to fetch uploaded object.", "error", err)
		return err
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])
	logCtx = logCtx.With("fileHash", fileHash)

	existing, err := u.store.FindByHash(ctx, orgID, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate upload.", "error", err)
		return fmt.Errorf("failed to check for duplicate upload: %w", err)
	}
	if existing != nil {
		logCtx.Info("Duplicate upload detected. Skipping.", "existingDocumentId", existing.ID)
		return nil
	}

	doc := &models.Document{
		OrganizationID: orgID,
		Name:           path.Base(e.Name),
		FilePath:       e.Name,
		MimeType:       e.ContentType,
		FileHash:       fileHash,
		Processing: models.ProcessingState{
			CurrentStatus: models.StatusPending,
		},
	}
	docID, err := u.store.Create(ctx, doc)
	if err != nil {
		logCtx.Error("Failed to create document record.", "error", err)
		return fmt.Errorf("failed to create document record: %w", err)
	}
	doc.ID = docID
	logCtx = logCtx.With("documentId", docID)
	logCtx.Info("Created document record.")

	executionName, err := u.launcher.Launch(ctx, map[string]any{
		"documentId":     docID,
		"organizationId": orgID,
		"userId":         uploadUser(e),
		"variant":        u.variant,
		"hasFile":        true,
	})
	if err != nil {
		return u.handleLaunchError(ctx, logCtx, docID, err)
	}

	logCtx.Info("Hand-off to workflow complete.", "execution", executionName)
	return nil
}

// handleLaunchError flips the fresh document to FAILED so it does not sit
// in PENDING forever, then returns the launch error for event redelivery.
func (u *UploadTrigger) handleLaunchError(ctx context.Context, logCtx *slog.Logger, docID string, launchErr error) error {
	logCtx.Error("Failed to launch analysis workflow.", "error", launchErr)
	fields := map[string]any{
		"processing.currentStatus": models.StatusFailed,
		"processing.error":         fmt.Sprintf("failed to launch analysis workflow: %v", launchErr),
	}
	if err := u.store.Update(ctx, docID, fields); err != nil {
		logCtx.Error("CRITICAL: Failed to mark document FAILED after a launch error.", "updateError", err)
	}
	return fmt.Errorf("failed to launch analysis workflow for %s: %w", docID, launchErr)
}

func supportedMimeType(contentType string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return strings.HasPrefix(contentType, "text/")
}

// organizationFor resolves the tenant: explicit object metadata wins, else
// the leading path segment of the object key (uploads are written as
// <orgId>/<filename> or uploads/<orgId>/<filename>).
func organizationFor(e GCSEvent) string {
	if org := e.Metadata["organizationId"]; org != "" {
		return org
	}
	parts := strings.Split(e.Name, "/")
	if len(parts) >= 2 && parts[0] == "uploads" {
		parts = parts[1:]
	}
	if len(parts) >= 2 && parts[0] != "" {
		return parts[0]
	}
	return ""
}

func uploadUser(e GCSEvent) string {
	if user := e.Metadata["userId"]; user != "" {
		return user
	}
	return "system"
}
