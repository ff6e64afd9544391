package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/govmatch/docanalysis/internal/ai"
	"github.com/govmatch/docanalysis/internal/models"
)

// StageInput is the shared input contract for every analysis stage.
type StageInput struct {
	Text         string
	DocumentName string
	DocumentType string
}

// StageStatus is embedded in every stage result. A failed stage carries its
// error message here and a safe-default payload in the result body; stage
// adapters never propagate an error to the caller.
type StageStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func stageOK() StageStatus { return StageStatus{Success: true} }

func stageFailed(err error) StageStatus {
	return StageStatus{Success: false, Error: err.Error()}
}

// MetadataResult is the contract-metadata stage result.
type MetadataResult struct {
	StageStatus
	Details models.ContractDetails `json:"details"`
}

// SectionsResult is the section-structuring stage result.
type SectionsResult struct {
	StageStatus
	Sections []models.Section `json:"sections"`
}

// EntitiesResult is the entity-extraction stage result.
type EntitiesResult struct {
	StageStatus
	Entities []models.Entity `json:"entities"`
}

// ContentResult is the content-analysis stage result.
type ContentResult struct {
	StageStatus
	Insights models.ContentInsights `json:"insights"`
}

// SecurityResult is the security-classification stage result. The safe
// default classification is UNCLASSIFIED.
type SecurityResult struct {
	StageStatus
	Assessment models.SecurityAssessment `json:"assessment"`
}

// ContractResult is the contract-analysis stage result.
type ContractResult struct {
	StageStatus
	Analysis models.ContractAnalysis `json:"analysis"`
}

// QualityResult is the quality-scoring stage result.
type QualityResult struct {
	StageStatus
	Report models.QualityReport `json:"report"`
}

// StageAnalyzer adapts the raw analyzer backend into the six typed stages.
// Adapters never mutate the document; they return data only, and they
// resolve to a result rather than failing, so one stage's failure cannot
// abort its siblings.
type StageAnalyzer struct {
	client ai.Client
}

// NewStageAnalyzer wraps an analyzer backend.
func NewStageAnalyzer(client ai.Client) *StageAnalyzer {
	return &StageAnalyzer{client: client}
}

func (a *StageAnalyzer) generate(ctx context.Context, task ai.Task, in StageInput) (string, error) {
	return a.client.GenerateJSON(ctx, ai.Request{
		Task:         task,
		Text:         in.Text,
		DocumentName: in.DocumentName,
		DocumentType: in.DocumentType,
	})
}

// ContractMetadata extracts contract-detail fields (deadline, value, agency).
func (a *StageAnalyzer) ContractMetadata(ctx context.Context, in StageInput) MetadataResult {
	raw, err := a.generate(ctx, ai.TaskContractMetadata, in)
	if err != nil {
		logStageFailure("contract-metadata", in, err)
		return MetadataResult{StageStatus: stageFailed(err)}
	}

	var wire struct {
		Title              string   `json:"title"`
		Agency             string   `json:"agency"`
		ContractNumber     string   `json:"contractNumber"`
		NAICSCodes         []string `json:"naicsCodes"`
		Deadline           string   `json:"deadline"`
		EstimatedValue     string   `json:"estimatedValue"`
		SetAside           string   `json:"setAside"`
		PlaceOfPerformance string   `json:"placeOfPerformance"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		logStageFailure("contract-metadata", in, err)
		return MetadataResult{StageStatus: stageFailed(err)}
	}

	return MetadataResult{
		StageStatus: stageOK(),
		Details: models.ContractDetails{
			Title:              wire.Title,
			Agency:             wire.Agency,
			ContractNumber:     wire.ContractNumber,
			NAICSCodes:         wire.NAICSCodes,
			Deadline:           wire.Deadline,
			EstimatedValue:     wire.EstimatedValue,
			SetAside:           wire.SetAside,
			PlaceOfPerformance: wire.PlaceOfPerformance,
		},
	}
}

// Sections splits the text into titled sections.
func (a *StageAnalyzer) Sections(ctx context.Context, in StageInput) SectionsResult {
	raw, err := a.generate(ctx, ai.TaskSections, in)
	if err != nil {
		logStageFailure("sections", in, err)
		return SectionsResult{StageStatus: stageFailed(err)}
	}

	type wireSection struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	var wire []wireSection
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		// Some backends wrap the array in an object even when asked not to.
		var wrapped struct {
			Sections []wireSection `json:"sections"`
		}
		if err2 := json.Unmarshal([]byte(raw), &wrapped); err2 != nil {
			logStageFailure("sections", in, err)
			return SectionsResult{StageStatus: stageFailed(err)}
		}
		wire = wrapped.Sections
	}

	sections := make([]models.Section, 0, len(wire))
	for i, s := range wire {
		sections = append(sections, models.Section{Title: s.Title, Content: s.Content, Order: i})
	}
	return SectionsResult{StageStatus: stageOK(), Sections: sections}
}

// Entities extracts named entities and maps raw type strings onto the
// closed enumeration; unrecognized types become MISC.
func (a *StageAnalyzer) Entities(ctx context.Context, in StageInput) EntitiesResult {
	raw, err := a.generate(ctx, ai.TaskEntities, in)
	if err != nil {
		logStageFailure("entities", in, err)
		return EntitiesResult{StageStatus: stageFailed(err)}
	}

	type wireEntity struct {
		Text       string  `json:"text"`
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
		Context    string  `json:"context"`
	}
	var wire []wireEntity
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		var wrapped struct {
			Entities []wireEntity `json:"entities"`
		}
		if err2 := json.Unmarshal([]byte(raw), &wrapped); err2 != nil {
			logStageFailure("entities", in, err)
			return EntitiesResult{StageStatus: stageFailed(err)}
		}
		wire = wrapped.Entities
	}

	entities := make([]models.Entity, 0, len(wire))
	for _, e := range wire {
		if e.Text == "" {
			continue
		}
		entities = append(entities, models.Entity{
			Text:       e.Text,
			Type:       models.MapEntityType(e.Type),
			Confidence: e.Confidence,
			Context:    e.Context,
		})
	}
	return EntitiesResult{StageStatus: stageOK(), Entities: entities}
}

// Content produces the summary, key points, sentiment, and quality score.
func (a *StageAnalyzer) Content(ctx context.Context, in StageInput) ContentResult {
	raw, err := a.generate(ctx, ai.TaskContent, in)
	if err != nil {
		logStageFailure("content-analysis", in, err)
		return ContentResult{StageStatus: stageFailed(err)}
	}

	var wire struct {
		Summary      string   `json:"summary"`
		KeyPoints    []string `json:"keyPoints"`
		Sentiment    string   `json:"sentiment"`
		QualityScore int      `json:"qualityScore"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		logStageFailure("content-analysis", in, err)
		return ContentResult{StageStatus: stageFailed(err)}
	}

	return ContentResult{
		StageStatus: stageOK(),
		Insights: models.ContentInsights{
			Summary:      wire.Summary,
			KeyPoints:    wire.KeyPoints,
			Sentiment:    wire.Sentiment,
			QualityScore: clampScore(wire.QualityScore),
		},
	}
}

// Security classifies document sensitivity. Its safe default is an
// UNCLASSIFIED assessment with no risks.
func (a *StageAnalyzer) Security(ctx context.Context, in StageInput) SecurityResult {
	fallback := models.SecurityAssessment{Classification: "UNCLASSIFIED"}

	raw, err := a.generate(ctx, ai.TaskSecurity, in)
	if err != nil {
		logStageFailure("security", in, err)
		return SecurityResult{StageStatus: stageFailed(err), Assessment: fallback}
	}

	var wire struct {
		Classification       string                `json:"classification"`
		ConfidenceScore      int                   `json:"confidenceScore"`
		Risks                []models.SecurityRisk `json:"risks"`
		HandlingInstructions []string              `json:"handlingInstructions"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		logStageFailure("security", in, err)
		return SecurityResult{StageStatus: stageFailed(err), Assessment: fallback}
	}
	if wire.Classification == "" {
		wire.Classification = "UNCLASSIFIED"
	}

	return SecurityResult{
		StageStatus: stageOK(),
		Assessment: models.SecurityAssessment{
			Classification:       wire.Classification,
			ConfidenceScore:      clampScore(wire.ConfidenceScore),
			Risks:                wire.Risks,
			HandlingInstructions: wire.HandlingInstructions,
		},
	}
}

// Contract extracts requirements, risks, and opportunities.
func (a *StageAnalyzer) Contract(ctx context.Context, in StageInput) ContractResult {
	raw, err := a.generate(ctx, ai.TaskContract, in)
	if err != nil {
		logStageFailure("contract-analysis", in, err)
		return ContractResult{StageStatus: stageFailed(err)}
	}

	var wire models.ContractAnalysis
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		logStageFailure("contract-analysis", in, err)
		return ContractResult{StageStatus: stageFailed(err)}
	}
	return ContractResult{StageStatus: stageOK(), Analysis: wire}
}

// Quality scores the document's overall quality.
func (a *StageAnalyzer) Quality(ctx context.Context, in StageInput) QualityResult {
	raw, err := a.generate(ctx, ai.TaskQuality, in)
	if err != nil {
		logStageFailure("quality", in, err)
		return QualityResult{StageStatus: stageFailed(err)}
	}

	var wire struct {
		Score           int      `json:"score"`
		Issues          []string `json:"issues"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		logStageFailure("quality", in, err)
		return QualityResult{StageStatus: stageFailed(err)}
	}

	return QualityResult{
		StageStatus: stageOK(),
		Report: models.QualityReport{
			Score:           clampScore(wire.Score),
			Issues:          wire.Issues,
			Recommendations: wire.Recommendations,
		},
	}
}

func logStageFailure(stage string, in StageInput, err error) {
	slog.Warn("Analysis stage failed, continuing with safe default.",
		"stage", stage, "documentName", in.DocumentName, "error", err)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
