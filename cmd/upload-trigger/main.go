package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/govmatch/docanalysis/internal/services"
)

var (
	uploaderInstance *services.UploadTrigger
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Registered against google.cloud.storage.object.v1.finalized events.
	functions.CloudEvent("OnDocumentUploaded", onDocumentUploaded)
}

// main is required by the Go Functions Framework.
func main() {}

func onDocumentUploaded(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		uploaderInstance, initErr = services.NewUploader(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context inside Process; returning one marks
	// the invocation failed so the event is redelivered.
	return uploaderInstance.Process(ctx, gcsEvent)
}
