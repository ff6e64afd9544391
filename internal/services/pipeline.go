package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/govmatch/docanalysis/internal/models"
)

// Fixed progress checkpoints. The UI polls these exact values, so they are
// constants rather than anything computed from real sub-progress.
const (
	progressFetched    = 10
	progressResolving  = 15
	progressResolved   = 20
	progressMetadata   = 30
	progressSections   = 40
	progressEntities   = 55
	progressContent    = 70
	progressSecurity   = 85
	progressContract   = 87
	progressQuality    = 92
	progressPersisting = 95
	progressDone       = 100
)

// Stage names used for the resume cursor.
const (
	stageMetadata = "contract_metadata"
	stageSections = "section_structure"
	stageEntities = "entity_extraction"
	stageContent  = "content_analysis"
	stageSecurity = "security_classification"
	stageContract = "contract_analysis"
	stageQuality  = "quality_scoring"
)

const (
	defaultRunTimeout    = 5 * time.Minute
	defaultMaxConcurrent = 3
	persistAttempts      = 4
	persistBackoff       = 200 * time.Millisecond
)

// withRetry runs fn with doubling backoff between attempts. It gives up
// early when the context is done.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// PipelineConfig tunes the orchestrator.
type PipelineConfig struct {
	// RunTimeout is the wall-clock ceiling on one run; exceeding it fails
	// the run through the normal failure path.
	RunTimeout time.Duration
	// MaxConcurrentRuns caps in-flight runs in this process. Cross-process
	// concurrency control belongs to the orchestrating workflow.
	MaxConcurrentRuns int64
}

// Pipeline sequences the analysis stages over a document. One run is a
// single logical thread of control: stages execute in a fixed order, each
// gated by a progress checkpoint, with per-stage failure isolation in the
// full variant. The orchestrating Cloud Workflow re-invokes a run after a
// crash; the persisted resume cursor lets the re-invocation skip stages
// that already completed.
type Pipeline struct {
	store    DocumentStore
	resolver *ContentResolver
	stages   *StageAnalyzer
	tracker  *ProgressTracker
	notifier *Notifier
	limiter  *semaphore.Weighted
	timeout  time.Duration
	now      func() time.Time
}

// NewPipeline wires the orchestrator from its collaborators.
func NewPipeline(cfg PipelineConfig, store DocumentStore, resolver *ContentResolver, stages *StageAnalyzer, tracker *ProgressTracker, notifier *Notifier) *Pipeline {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = defaultMaxConcurrent
	}
	return &Pipeline{
		store:    store,
		resolver: resolver,
		stages:   stages,
		tracker:  tracker,
		notifier: notifier,
		limiter:  semaphore.NewWeighted(cfg.MaxConcurrentRuns),
		timeout:  cfg.RunTimeout,
		now:      time.Now,
	}
}

// fetch loads the tenant-scoped document or reports ErrNotFound.
func (p *Pipeline) fetch(ctx context.Context, orgID, docID string) (*models.Document, error) {
	doc, err := p.store.FindOne(ctx, orgID, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", docID, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s in org %s: %w", docID, orgID, ErrNotFound)
	}
	return doc, nil
}

// failRun drives the terminal failure path: classify timeouts, flip the
// document to FAILED (progress 0), notify, and hand the original error back
// to the external runtime so its retry policy applies. It uses a fresh
// context because the run's own context may already be dead.
func (p *Pipeline) failRun(doc *models.Document, userID string, runErr error) error {
	if errors.Is(runErr, context.DeadlineExceeded) {
		runErr = fmt.Errorf("%w: %v", ErrRunTimeout, runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logCtx := slog.With("documentId", doc.ID)
	logCtx.Error("Analysis run failed.", "error", runErr)
	if err := p.tracker.Fail(ctx, doc, userID, runErr); err != nil {
		logCtx.Error("CRITICAL: Failed to record FAILED state after a run error.", "updateError", err)
	}
	p.notifier.NotifyFailed(ctx, doc, userID, runErr)
	return runErr
}

// RunBasic executes the basic pipeline variant: content resolution plus
// section structuring. With a single analysis stage there is nothing to
// isolate, so any error is fatal to the run.
func (p *Pipeline) RunBasic(ctx context.Context, req *models.AnalyzeRequest) (models.AnalyzeResponse, error) {
	if err := p.limiter.Acquire(ctx, 1); err != nil {
		return models.AnalyzeResponse{}, fmt.Errorf("failed to acquire run slot: %w", err)
	}
	defer p.limiter.Release(1)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := p.now()
	logCtx := slog.With("documentId", req.DocumentID, "executionId", req.ExecutionID, "variant", models.VariantBasic)
	logCtx.Info("Starting basic analysis run.")

	doc, err := p.fetch(ctx, req.OrganizationID, req.DocumentID)
	if err != nil {
		return models.AnalyzeResponse{}, err
	}

	runErr := func() error {
		if err := p.tracker.Start(ctx, doc, req.UserID, req.ExecutionID, false); err != nil {
			return err
		}
		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, "fetching_document", progressFetched, 0, nil); err != nil {
			return err
		}

		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, "resolving_content", progressResolving, 0, nil); err != nil {
			return err
		}
		content, err := p.resolver.Resolve(ctx, doc, ContentHints{HasFile: req.HasFile, HasEditorContent: req.HasEditor})
		if err != nil {
			return err
		}
		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, "content_resolved", progressResolved, 0, map[string]any{"source": content.Source}); err != nil {
			return err
		}

		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, stageSections, progressSections, 0, nil); err != nil {
			return err
		}
		sections := p.stages.Sections(ctx, stageInput(doc, content))
		if !sections.Success {
			return fmt.Errorf("section structuring failed: %s", sections.Error)
		}

		stats := ComputeTextStats(content.Text)
		analysis := &models.AnalysisResult{
			Structure: &models.StructureResult{
				Sections:       sections.Sections,
				SectionCount:   len(sections.Sections),
				WordCount:      stats.WordCount,
				CharacterCount: stats.CharacterCount,
			},
			Confidence: OverallConfidence(StageResults{Sections: sections}),
			AnalyzedAt: p.now(),
		}

		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, "persisting_results", progressPersisting, 0, nil); err != nil {
			return err
		}
		if err := p.persistResults(ctx, doc, content, analysis, nil); err != nil {
			return err
		}
		doc.Analysis = analysis

		return p.tracker.Complete(ctx, doc, req.UserID, p.now().Sub(started).Milliseconds())
	}()
	if runErr != nil {
		if errors.Is(runErr, ErrRunCancelled) {
			logCtx.Info("Run stopped at checkpoint: analysis was cancelled.")
			return models.AnalyzeResponse{Status: string(models.StatusPending), DocumentID: doc.ID}, nil
		}
		return models.AnalyzeResponse{}, p.failRun(doc, req.UserID, runErr)
	}

	if doc.Analysis != nil {
		p.notifier.NotifyCompleted(ctx, doc, req.UserID, doc.Analysis)
	}
	logCtx.Info("Basic analysis run complete.", "durationMs", p.now().Sub(started).Milliseconds())
	return models.AnalyzeResponse{
		Status:     string(models.StatusCompleted),
		DocumentID: doc.ID,
		Progress:   progressDone,
		Confidence: doc.Analysis.Confidence,
	}, nil
}

// fullStage is one entry in the fixed stage order of the full pipeline.
type fullStage struct {
	name     string
	progress int
	enabled  bool
	run      func(ctx context.Context) any
}

// RunFull executes the full pipeline variant. Stage adapter failures are
// isolated: each failed stage contributes its safe default and later stages
// still run. Content resolution and the final persistence write are fatal.
func (p *Pipeline) RunFull(ctx context.Context, req *models.AnalyzeRequest) (models.AnalyzeResponse, error) {
	if err := p.limiter.Acquire(ctx, 1); err != nil {
		return models.AnalyzeResponse{}, fmt.Errorf("failed to acquire run slot: %w", err)
	}
	defer p.limiter.Release(1)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := p.now()
	logCtx := slog.With("documentId", req.DocumentID, "executionId", req.ExecutionID, "variant", models.VariantFull)
	logCtx.Info("Starting full analysis run.")

	doc, err := p.fetch(ctx, req.OrganizationID, req.DocumentID)
	if err != nil {
		return models.AnalyzeResponse{}, err
	}

	var results StageResults
	runErr := func() error {
		resumed := p.restoreCheckpoint(doc, req.ExecutionID, &results, logCtx)
		if err := p.tracker.Start(ctx, doc, req.UserID, req.ExecutionID, resumed); err != nil {
			return err
		}
		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, "fetching_document", progressFetched, 0, nil); err != nil {
			return err
		}

		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, "resolving_content", progressResolving, 0, nil); err != nil {
			return err
		}
		content, err := p.resolver.Resolve(ctx, doc, ContentHints{HasFile: req.HasFile, HasEditorContent: req.HasEditor})
		if err != nil {
			return err
		}
		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, "content_resolved", progressResolved, 0, map[string]any{"source": content.Source}); err != nil {
			return err
		}

		in := stageInput(doc, content)
		// Metadata runs first so contract-detail fields are available
		// independent of section structure. The remaining order is fixed
		// for deterministic progress checkpoints, not for correctness.
		stages := []fullStage{
			{stageMetadata, progressMetadata, true,
				func(ctx context.Context) any { results.Metadata = p.stages.ContractMetadata(ctx, in); return results.Metadata }},
			{stageSections, progressSections, true,
				func(ctx context.Context) any { results.Sections = p.stages.Sections(ctx, in); return results.Sections }},
			{stageEntities, progressEntities, req.Options.EntityExtractionEnabled(),
				func(ctx context.Context) any { results.Entities = p.stages.Entities(ctx, in); return results.Entities }},
			{stageContent, progressContent, true,
				func(ctx context.Context) any { results.Content = p.stages.Content(ctx, in); return results.Content }},
			{stageSecurity, progressSecurity, req.Options.SecurityAnalysisEnabled(),
				func(ctx context.Context) any { results.Security = p.stages.Security(ctx, in); return results.Security }},
			{stageContract, progressContract, true,
				func(ctx context.Context) any { results.Contract = p.stages.Contract(ctx, in); return results.Contract }},
			{stageQuality, progressQuality, req.Options.QualityScoringEnabled(),
				func(ctx context.Context) any { results.Quality = p.stages.Quality(ctx, in); return results.Quality }},
		}

		completed := completedStages(doc)
		for _, stage := range stages {
			if !stage.enabled {
				logCtx.Info("Skipping disabled stage.", "stage", stage.name)
				continue
			}
			if completed[stage.name] {
				logCtx.Info("Skipping stage already completed by a previous invocation.", "stage", stage.name)
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := p.tracker.Checkpoint(ctx, doc, req.UserID, stage.name, stage.progress, 0, nil); err != nil {
				return err
			}
			stageStarted := p.now()
			result := stage.run(ctx)
			if err := p.tracker.RecordStage(ctx, doc, req.UserID, stage.name, result, p.now().Sub(stageStarted).Milliseconds()); err != nil {
				return err
			}
		}

		stats := ComputeTextStats(content.Text)
		analysis := Aggregate(results, stats)

		if err := p.tracker.Checkpoint(ctx, doc, req.UserID, "persisting_results", progressPersisting, 0, nil); err != nil {
			return err
		}
		if err := p.persistResults(ctx, doc, content, analysis, results.Entities.Entities); err != nil {
			return err
		}
		doc.Analysis = analysis
		doc.Entities = results.Entities.Entities

		return p.tracker.Complete(ctx, doc, req.UserID, p.now().Sub(started).Milliseconds())
	}()
	if runErr != nil {
		if errors.Is(runErr, ErrRunCancelled) {
			logCtx.Info("Run stopped at checkpoint: analysis was cancelled.")
			return models.AnalyzeResponse{Status: string(models.StatusPending), DocumentID: doc.ID}, nil
		}
		return models.AnalyzeResponse{}, p.failRun(doc, req.UserID, runErr)
	}

	p.notifier.NotifyCompleted(ctx, doc, req.UserID, doc.Analysis)
	logCtx.Info("Full analysis run complete.",
		"confidence", doc.Analysis.Confidence,
		"durationMs", p.now().Sub(started).Milliseconds())
	return models.AnalyzeResponse{
		Status:     string(models.StatusCompleted),
		DocumentID: doc.ID,
		Progress:   progressDone,
		Confidence: doc.Analysis.Confidence,
	}, nil
}

// Cancel resets a document's processing state to PENDING. It cannot
// interrupt a stage already in flight; a running invocation observes the
// reset at its next checkpoint at the earliest.
func (p *Pipeline) Cancel(ctx context.Context, req *models.CancelRequest) (models.CancelResponse, error) {
	doc, err := p.fetch(ctx, req.OrganizationID, req.DocumentID)
	if err != nil {
		return models.CancelResponse{}, err
	}
	if err := p.tracker.Cancel(ctx, doc, req.UserID, req.Reason); err != nil {
		return models.CancelResponse{}, err
	}
	p.notifier.NotifyCancelled(ctx, doc, req.UserID, req.Reason)
	slog.Info("Analysis cancelled.", "documentId", doc.ID, "reason", req.Reason)
	return models.CancelResponse{Status: string(models.StatusPending), DocumentID: doc.ID}, nil
}

// restoreCheckpoint rebuilds stage results from a previous invocation of the
// same execution. Returns whether the run is a resume.
func (p *Pipeline) restoreCheckpoint(doc *models.Document, runID string, results *StageResults, logCtx *slog.Logger) bool {
	cp := doc.Processing.Checkpoint
	if cp == nil || cp.RunID != runID || doc.Processing.CurrentStatus != models.StatusProcessing {
		return false
	}

	restorers := map[string]func(raw string) error{
		stageMetadata: func(raw string) error { return json.Unmarshal([]byte(raw), &results.Metadata) },
		stageSections: func(raw string) error { return json.Unmarshal([]byte(raw), &results.Sections) },
		stageEntities: func(raw string) error { return json.Unmarshal([]byte(raw), &results.Entities) },
		stageContent:  func(raw string) error { return json.Unmarshal([]byte(raw), &results.Content) },
		stageSecurity: func(raw string) error { return json.Unmarshal([]byte(raw), &results.Security) },
		stageContract: func(raw string) error { return json.Unmarshal([]byte(raw), &results.Contract) },
		stageQuality:  func(raw string) error { return json.Unmarshal([]byte(raw), &results.Quality) },
	}
	for name, raw := range cp.StageResults {
		restore, ok := restorers[name]
		if !ok {
			continue
		}
		if err := restore(raw); err != nil {
			// A corrupt checkpoint entry just means the stage re-runs.
			logCtx.Warn("Failed to restore checkpointed stage result.", "stage", name, "error", err)
			delete(cp.StageResults, name)
		}
	}
	logCtx.Info("Resuming run from checkpoint.", "cursor", cp.Cursor, "restoredStages", len(cp.StageResults))
	return true
}

func completedStages(doc *models.Document) map[string]bool {
	done := map[string]bool{}
	if doc.Processing.Checkpoint == nil {
		return done
	}
	for name := range doc.Processing.Checkpoint.StageResults {
		done[name] = true
	}
	return done
}

// persistResults writes the aggregated analysis, extracted entities, and
// refreshed content fields. A failure here is fatal to the run.
func (p *Pipeline) persistResults(ctx context.Context, doc *models.Document, content ResolvedContent, analysis *models.AnalysisResult, entities []models.Entity) error {
	now := p.now()
	updated := models.ContentPayload{LastUpdated: &now}
	if doc.Content != nil {
		updated = *doc.Content
		updated.LastUpdated = &now
	}
	updated.Summary = analysis.Summary
	updated.KeyPoints = analysis.KeyPoints

	fields := map[string]any{
		"analysis": analysis,
		"content":  updated,
	}
	if entities != nil {
		fields["entities"] = entities
	}
	if content.Source == "file" {
		// Cache the freshly extracted text for future runs.
		fields["extractedText"] = content.Text
	}

	err := withRetry(ctx, persistAttempts, persistBackoff, func() error {
		return p.store.Update(ctx, doc.ID, fields)
	})
	if err != nil {
		return &PersistenceError{Op: "final analysis write", Err: err}
	}
	doc.Content = &updated
	return nil
}

func stageInput(doc *models.Document, content ResolvedContent) StageInput {
	return StageInput{
		Text:         content.Text,
		DocumentName: doc.Name,
		DocumentType: doc.MimeType,
	}
}
