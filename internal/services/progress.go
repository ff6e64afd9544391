package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/govmatch/docanalysis/internal/models"
)

// ProgressTracker writes progress checkpoints on a document's processing
// state. Every write is a full read-modify-write of the processing blob:
// the event log is always the previous slice with one entry appended, and
// progress never decreases within a run (it resets to 0 only on failure,
// cancellation, or a fresh run).
type ProgressTracker struct {
	store DocumentStore
	now   func() time.Time
}

// NewProgressTracker builds a tracker over the document store.
func NewProgressTracker(store DocumentStore) *ProgressTracker {
	return &ProgressTracker{store: store, now: time.Now}
}

func (t *ProgressTracker) appendEvent(doc *models.Document, userID, name string, eventType models.EventType, success bool, errMsg string, durationMS int64, metadata map[string]any) {
	doc.Processing.Events = append(doc.Processing.Events, models.Event{
		ID:         uuid.New().String(),
		UserID:     userID,
		Event:      name,
		EventType:  eventType,
		Success:    success,
		Error:      errMsg,
		Timestamp:  t.now(),
		DurationMS: durationMS,
		Metadata:   metadata,
	})
}

func (t *ProgressTracker) persist(ctx context.Context, doc *models.Document) error {
	err := withRetry(ctx, persistAttempts, persistBackoff, func() error {
		return t.store.Update(ctx, doc.ID, map[string]any{"processing": doc.Processing})
	})
	if err != nil {
		return &PersistenceError{Op: "processing checkpoint", Err: err}
	}
	return nil
}

// syncStored refreshes the run's view of the persisted processing state
// before a checkpoint write. Cancellation is cooperative: a concurrent
// cancel resets the stored status, and the run has to observe that here
// instead of overwriting it. Events appended by other writers are merged
// in so the log never loses entries.
func (t *ProgressTracker) syncStored(ctx context.Context, doc *models.Document) error {
	stored, err := t.store.FindOne(ctx, doc.OrganizationID, doc.ID)
	if err != nil {
		// The write that follows carries its own retries; a failed
		// pre-read alone is not worth aborting the run.
		slog.Warn("Failed to refresh processing state before checkpoint.", "documentId", doc.ID, "error", err)
		return nil
	}
	if stored == nil {
		return nil
	}
	if len(stored.Processing.Events) > len(doc.Processing.Events) {
		doc.Processing.Events = stored.Processing.Events
	}
	if stored.Processing.CurrentStatus != models.StatusProcessing {
		doc.Processing = stored.Processing
		return fmt.Errorf("document %s is %s, not processing: %w", doc.ID, stored.Processing.CurrentStatus, ErrRunCancelled)
	}
	return nil
}

// Checkpoint records a progress step: it bumps progress (never downward),
// sets the current step label, appends a PROCESSING event, and persists the
// whole processing blob. It first re-reads the stored state and reports
// ErrRunCancelled when the document is no longer PROCESSING.
func (t *ProgressTracker) Checkpoint(ctx context.Context, doc *models.Document, userID, step string, progress int, durationMS int64, metadata map[string]any) error {
	if err := t.syncStored(ctx, doc); err != nil {
		return err
	}
	if progress > doc.Processing.Progress {
		doc.Processing.Progress = progress
	}
	doc.Processing.CurrentStep = step
	t.appendEvent(doc, userID, step, models.EventTypeProcessing, true, "", durationMS, metadata)
	return t.persist(ctx, doc)
}

// RecordStage stores a completed stage's result in the resume cursor, so a
// later invocation of the same run can skip the stage, and appends a
// completion event for it.
func (t *ProgressTracker) RecordStage(ctx context.Context, doc *models.Document, userID, stage string, result any, durationMS int64) error {
	if err := t.syncStored(ctx, doc); err != nil {
		return err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode %s stage result: %w", stage, err)
	}
	if doc.Processing.Checkpoint == nil {
		doc.Processing.Checkpoint = &models.Checkpoint{StageResults: map[string]string{}}
	}
	if doc.Processing.Checkpoint.StageResults == nil {
		doc.Processing.Checkpoint.StageResults = map[string]string{}
	}
	doc.Processing.Checkpoint.StageResults[stage] = string(raw)
	doc.Processing.Checkpoint.Cursor = stage
	t.appendEvent(doc, userID, stage+"_completed", models.EventTypeProcessing, true, "", durationMS, nil)
	return t.persist(ctx, doc)
}

// Start transitions the document into PROCESSING for a new or resumed run.
func (t *ProgressTracker) Start(ctx context.Context, doc *models.Document, userID, runID string, resumed bool) error {
	now := t.now()
	doc.Processing.CurrentStatus = models.StatusProcessing
	doc.Processing.Error = ""
	doc.Processing.FailedAt = nil
	doc.Processing.CompletedAt = nil
	if !resumed {
		doc.Processing.Progress = 0
		doc.Processing.StartedAt = &now
		doc.Processing.Checkpoint = &models.Checkpoint{
			RunID:        runID,
			StageResults: map[string]string{},
		}
	}
	event := "analysis_started"
	if resumed {
		event = "analysis_resumed"
	}
	t.appendEvent(doc, userID, event, models.EventTypeProcessing, true, "", 0, map[string]any{"runId": runID})
	return t.persist(ctx, doc)
}

// Complete records the terminal success state and clears the resume cursor.
func (t *ProgressTracker) Complete(ctx context.Context, doc *models.Document, userID string, durationMS int64) error {
	now := t.now()
	doc.Processing.CurrentStatus = models.StatusCompleted
	doc.Processing.Progress = 100
	doc.Processing.CurrentStep = ""
	doc.Processing.CompletedAt = &now
	doc.Processing.Checkpoint = nil
	t.appendEvent(doc, userID, "analysis_completed", models.EventTypeCompleted, true, "", durationMS, nil)
	return t.persist(ctx, doc)
}

// Fail records the terminal failure state. Progress resets to 0 so a FAILED
// document is never left looking partially processed.
func (t *ProgressTracker) Fail(ctx context.Context, doc *models.Document, userID string, runErr error) error {
	now := t.now()
	doc.Processing.CurrentStatus = models.StatusFailed
	doc.Processing.Progress = 0
	doc.Processing.CurrentStep = ""
	doc.Processing.FailedAt = &now
	doc.Processing.Error = runErr.Error()
	t.appendEvent(doc, userID, "analysis_failed", models.EventTypeFailed, false, runErr.Error(), 0, nil)
	return t.persist(ctx, doc)
}

// Cancel resets the document to PENDING and appends a CANCELLED event.
// Cancellation is cooperative: it cannot interrupt a stage already running,
// it only takes effect at the next checkpoint.
func (t *ProgressTracker) Cancel(ctx context.Context, doc *models.Document, userID, reason string) error {
	doc.Processing.CurrentStatus = models.StatusPending
	doc.Processing.Progress = 0
	doc.Processing.CurrentStep = ""
	doc.Processing.Checkpoint = nil
	metadata := map[string]any{}
	if reason != "" {
		metadata["reason"] = reason
	}
	t.appendEvent(doc, userID, "analysis_cancelled", models.EventTypeCancelled, false, "", 0, metadata)
	return t.persist(ctx, doc)
}
