package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/govmatch/docanalysis/internal/models"
)

func TestNotifyCompletedSurvivesStoreFailure(t *testing.T) {
	notifications := &fakeNotifications{err: errors.New("notification store down")}
	emitter := &fakeEmitter{}
	notifier := NewNotifier(notifications, emitter)

	// Must not panic or propagate: the analysis already succeeded.
	notifier.NotifyCompleted(context.Background(), acmeDoc(), "user-1", &models.AnalysisResult{Confidence: 0.9})
	assert.Contains(t, emitter.names(), "document.analysis.completed")
	assert.Empty(t, notifications.created)
}

func TestNotifyFailedCreatesHighPriorityNotification(t *testing.T) {
	notifications := &fakeNotifications{}
	notifier := NewNotifier(notifications, &fakeEmitter{})

	notifier.NotifyFailed(context.Background(), acmeDoc(), "user-1", errors.New("run timed out"))
	assert.Equal(t, []models.NotificationType{models.NotificationProcessingFailed}, notifications.types())
	assert.Equal(t, "high", notifications.created[0].Priority)
}
