package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/storage"

	"github.com/govmatch/docanalysis/internal/ai"
	"github.com/govmatch/docanalysis/internal/extract"
	"github.com/govmatch/docanalysis/internal/gcp"
)

// NewAnalyzer assembles a fully wired Pipeline from environment
// configuration. It is the one-time initialization entry point of the
// analyzer Cloud Functions.
func NewAnalyzer(ctx context.Context) (*Pipeline, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	bucket := gcp.GetEnv("DOCUMENTS_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("DOCUMENTS_BUCKET environment variable must be set")
	}
	collection := gcp.GetEnv("FIRESTORE_COLLECTION", "documents")
	notifCollection := gcp.GetEnv("NOTIFICATIONS_COLLECTION", "notifications")

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	aiClient, err := newAIClient(ctx, projectID)
	if err != nil {
		return nil, err
	}

	store := gcp.NewDocumentStore(firestoreClient, collection)
	resolver := NewContentResolver(gcp.NewBlobStore(storageClient, bucket), extract.New())
	stages := NewStageAnalyzer(aiClient)
	tracker := NewProgressTracker(store)
	notifier := NewNotifier(gcp.NewNotificationStore(firestoreClient, notifCollection), newEmitter())

	cfg := PipelineConfig{
		RunTimeout:        time.Duration(envInt("ANALYSIS_TIMEOUT_SECONDS", 300)) * time.Second,
		MaxConcurrentRuns: int64(envInt("MAX_CONCURRENT_RUNS", defaultMaxConcurrent)),
	}
	slog.Info("Analyzer pipeline initialized.",
		"collection", collection,
		"bucket", bucket,
		"timeout", cfg.RunTimeout.String())
	return NewPipeline(cfg, store, resolver, stages, tracker, notifier), nil
}

// NewUploader assembles the upload trigger from environment configuration.
func NewUploader(ctx context.Context) (*UploadTrigger, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	collection := gcp.GetEnv("FIRESTORE_COLLECTION", "documents")

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	launcher, err := gcp.NewWorkflowLauncher(ctx,
		projectID,
		gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		gcp.GetEnv("WORKFLOW_ID", "document-analysis-orchestrator"),
	)
	if err != nil {
		return nil, err
	}

	store := gcp.NewDocumentStore(firestoreClient, collection)
	trigger := NewUploadTrigger(store, gcp.NewObjectStore(storageClient), launcher, gcp.GetEnv("UPLOAD_VARIANT", ""))
	slog.Info("Upload trigger initialized.", "collection", collection)
	return trigger, nil
}

// newAIClient picks the stage-analysis provider. Vertex AI is the default;
// ANALYZER_PROVIDER=openai switches to the OpenAI-compatible client.
func newAIClient(ctx context.Context, projectID string) (ai.Client, error) {
	switch provider := gcp.GetEnv("ANALYZER_PROVIDER", "vertex"); provider {
	case "openai":
		return ai.NewOpenAIClient(gcp.GetEnv("OPENAI_API_KEY", ""), gcp.GetEnv("OPENAI_MODEL", ""))
	case "vertex":
		return ai.NewVertexClient(ctx, projectID, gcp.GetEnv("VERTEX_REGION", "us-central1"), gcp.GetEnv("VERTEX_MODEL", ""))
	default:
		return nil, fmt.Errorf("unknown ANALYZER_PROVIDER %q", provider)
	}
}

// newEmitter prefers the CloudEvents sink; without one configured, events
// go to the log only.
func newEmitter() EventEmitter {
	publisher, err := gcp.NewCloudEventPublisher()
	if err != nil {
		slog.Warn("No event sink configured; lifecycle events will only be logged.", "reason", err)
		return gcp.LogPublisher{}
	}
	return publisher
}

func envInt(key string, fallback int) int {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring non-numeric environment value.", "key", key, "value", raw)
		return fallback
	}
	return n
}
