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

	// "AnalyzeDocument" is the entry point name registered in GCP.
	functions.HTTP("AnalyzeDocument", handleAnalyze)
}

// main is required by the Go Functions Framework.
func main() {}

// handleAnalyze is the HTTP handler invoked by the orchestration workflow.
func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// One-time initialization of all clients.
	once.Do(func() {
		pipelineInstance, initErr = services.NewAnalyzer(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Pipeline initialization failed.", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body.", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" || req.OrganizationID == "" {
		http.Error(w, "Bad Request: documentId and organizationId are required", http.StatusBadRequest)
		return
	}

	var (
		res models.AnalyzeResponse
		err error
	)
	switch req.Variant {
	case models.VariantBasic:
		res, err = pipelineInstance.RunBasic(r.Context(), &req)
	case models.VariantFull, "":
		res, err = pipelineInstance.RunFull(r.Context(), &req)
	default:
		http.Error(w, "Bad Request: unknown variant", http.StatusBadRequest)
		return
	}
	if err != nil {
		// The run error is already logged and persisted by the pipeline.
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Not Found: document does not exist in this organization", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal Server Error: analysis failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response.", "error", err)
		// This error is surfaced to the workflow, which will retry.
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
