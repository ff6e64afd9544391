package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/govmatch/docanalysis/internal/models"
)

// Notifier creates user-facing notification records and emits lifecycle
// events on terminal pipeline states. Notification failures are logged, not
// propagated: a completed analysis is not failed retroactively because a
// notification write bounced.
type Notifier struct {
	notifications NotificationStore
	emitter       EventEmitter
}

// NewNotifier builds a notifier over the notification store and event emitter.
func NewNotifier(notifications NotificationStore, emitter EventEmitter) *Notifier {
	return &Notifier{notifications: notifications, emitter: emitter}
}

// NotifyCompleted records the DOCUMENT_ANALYZED notification, plus a
// high-priority SECURITY_ALERT when the security stage reported risks.
func (n *Notifier) NotifyCompleted(ctx context.Context, doc *models.Document, userID string, analysis *models.AnalysisResult) {
	n.emitter.Send(ctx, "document.analysis.completed", map[string]any{
		"documentId":     doc.ID,
		"organizationId": doc.OrganizationID,
		"confidence":     analysis.Confidence,
	})

	notifications := []*models.Notification{{
		ID:             uuid.New().String(),
		OrganizationID: doc.OrganizationID,
		UserID:         userID,
		DocumentID:     doc.ID,
		Type:           models.NotificationDocumentAnalyzed,
		Title:          "Document analysis complete",
		Message:        fmt.Sprintf("Analysis of %q finished.", doc.Name),
		CreatedAt:      time.Now(),
	}}

	if analysis.Security != nil && len(analysis.Security.Risks) > 0 {
		notifications = append(notifications, &models.Notification{
			ID:             uuid.New().String(),
			OrganizationID: doc.OrganizationID,
			UserID:         userID,
			DocumentID:     doc.ID,
			Type:           models.NotificationSecurityAlert,
			Title:          "Security risks detected",
			Message:        fmt.Sprintf("Analysis of %q flagged %d security risk(s).", doc.Name, len(analysis.Security.Risks)),
			Priority:       "high",
			CreatedAt:      time.Now(),
		})
	}

	n.createAll(ctx, doc.ID, notifications)
}

// NotifyFailed records the DOCUMENT_PROCESSING_FAILED notification with the
// human-readable error message.
func (n *Notifier) NotifyFailed(ctx context.Context, doc *models.Document, userID string, runErr error) {
	n.emitter.Send(ctx, "document.analysis.failed", map[string]any{
		"documentId":     doc.ID,
		"organizationId": doc.OrganizationID,
		"error":          runErr.Error(),
	})

	n.createAll(ctx, doc.ID, []*models.Notification{{
		ID:             uuid.New().String(),
		OrganizationID: doc.OrganizationID,
		UserID:         userID,
		DocumentID:     doc.ID,
		Type:           models.NotificationProcessingFailed,
		Title:          "Document analysis failed",
		Message:        fmt.Sprintf("Analysis of %q failed: %s", doc.Name, runErr.Error()),
		Priority:       "high",
		CreatedAt:      time.Now(),
	}})
}

// NotifyCancelled emits the cancellation lifecycle event. Cancellation is
// user-initiated, so no notification record is created for it.
func (n *Notifier) NotifyCancelled(ctx context.Context, doc *models.Document, userID, reason string) {
	n.emitter.Send(ctx, "document.analysis.cancelled", map[string]any{
		"documentId":     doc.ID,
		"organizationId": doc.OrganizationID,
		"userId":         userID,
		"reason":         reason,
	})
}

func (n *Notifier) createAll(ctx context.Context, docID string, notifications []*models.Notification) {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(2)
	for _, notification := range notifications {
		eg.Go(func() error {
			return n.notifications.Create(gctx, notification)
		})
	}
	if err := eg.Wait(); err != nil {
		slog.Error("Failed to create notification record.", "documentId", docID, "error", err)
	}
}
