package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/govmatch/docanalysis/internal/models"
	"github.com/govmatch/docanalysis/internal/services"
)

var (
	pipelineInstance *services.Pipeline
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("CancelAnalysis", handleCancel)
}

// main is required by the Go Functions Framework.
func main() {}

func handleCancel(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		pipelineInstance, initErr = services.NewAnalyzer(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Pipeline initialization failed.", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body.", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" || req.OrganizationID == "" {
		http.Error(w, "Bad Request: documentId and organizationId are required", http.StatusBadRequest)
		return
	}

	res, err := pipelineInstance.Cancel(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Not Found: document does not exist in this organization", http.StatusNotFound)
			return
		}
		slog.Error("Cancellation failed.", "documentId", req.DocumentID, "error", err)
		http.Error(w, "Internal Server Error: cancellation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response.", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
