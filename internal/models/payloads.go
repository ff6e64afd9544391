package models

// These structs define the JSON payloads for HTTP requests and responses
// between the orchestrating Cloud Workflow and the worker Cloud Functions.

// Pipeline variants.
const (
	VariantBasic = "basic"
	VariantFull  = "full"
)

// AnalyzeOptions toggles the skippable stages of the full pipeline. A nil
// field means the stage runs (the default).
type AnalyzeOptions struct {
	IncludeEntityExtraction *bool `json:"includeEntityExtraction,omitempty"`
	IncludeSecurityAnalysis *bool `json:"includeSecurityAnalysis,omitempty"`
	IncludeQualityScoring   *bool `json:"includeQualityScoring,omitempty"`
}

// EntityExtractionEnabled reports whether the entity stage should run.
func (o AnalyzeOptions) EntityExtractionEnabled() bool {
	return o.IncludeEntityExtraction == nil || *o.IncludeEntityExtraction
}

// SecurityAnalysisEnabled reports whether the security stage should run.
func (o AnalyzeOptions) SecurityAnalysisEnabled() bool {
	return o.IncludeSecurityAnalysis == nil || *o.IncludeSecurityAnalysis
}

// QualityScoringEnabled reports whether the quality stage should run.
func (o AnalyzeOptions) QualityScoringEnabled() bool {
	return o.IncludeQualityScoring == nil || *o.IncludeQualityScoring
}

// AnalyzeRequest is the input for the document-analyzer function.
type AnalyzeRequest struct {
	DocumentID     string         `json:"documentId"`
	OrganizationID string         `json:"organizationId"`
	UserID         string         `json:"userId"`
	Variant        string         `json:"variant"`
	Options        AnalyzeOptions `json:"options"`
	HasFile        bool           `json:"hasFile"`
	HasEditor      bool           `json:"hasEditorContent"`
	ExecutionID    string         `json:"executionId"`
}

// AnalyzeResponse is the output of the document-analyzer function.
type AnalyzeResponse struct {
	Status     string  `json:"status"`
	DocumentID string  `json:"documentId"`
	Progress   int     `json:"progress"`
	Confidence float64 `json:"confidence,omitempty"`
}

// CancelRequest is the input for the cancel-analysis function.
type CancelRequest struct {
	DocumentID     string `json:"documentId"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	Reason         string `json:"reason,omitempty"`
}

// CancelResponse is the output of the cancel-analysis function.
type CancelResponse struct {
	Status     string `json:"status"`
	DocumentID string `json:"documentId"`
}
