package services

import (
	"strings"
	"time"

	"github.com/govmatch/docanalysis/internal/models"
)

// StageResults collects the outputs of every full-pipeline stage. A skipped
// stage keeps its zero value (Success false, empty payload).
type StageResults struct {
	Metadata MetadataResult `json:"metadata"`
	Sections SectionsResult `json:"sections"`
	Entities EntitiesResult `json:"entities"`
	Content  ContentResult  `json:"content"`
	Security SecurityResult `json:"security"`
	Contract ContractResult `json:"contract"`
	Quality  QualityResult  `json:"quality"`
}

// TextStats are measures of the resolved raw text, computed independently of
// any analyzer so they survive stage failures.
type TextStats struct {
	WordCount      int `json:"wordCount"`
	CharacterCount int `json:"characterCount"`
}

// ComputeTextStats measures the resolved text.
func ComputeTextStats(text string) TextStats {
	return TextStats{
		WordCount:      len(strings.Fields(text)),
		CharacterCount: len(text),
	}
}

// Confidence weights per component. Each contributes only when its stage
// succeeded; the final score is normalized over the weights that actually
// contributed, so skipped or failed stages neither zero the score nor
// inflate it.
const (
	weightContentQuality = 0.4
	weightSections       = 0.2
	weightEntities       = 0.2
	weightSecurity       = 0.2

	defaultConfidence       = 0.75
	defaultEntityConfidence = 0.8
	minConfidence           = 0.10
	maxConfidence           = 1.00
)

// OverallConfidence derives the weighted confidence score in [0.10, 1.00].
// With no contributing component the score is exactly 0.75.
func OverallConfidence(results StageResults) float64 {
	var sum, weights float64

	if results.Content.Success {
		sum += weightContentQuality * float64(results.Content.Insights.QualityScore) / 100
		weights += weightContentQuality
	}
	if results.Sections.Success {
		ratio := float64(len(results.Sections.Sections)) / 5
		if ratio > 1 {
			ratio = 1
		}
		sum += weightSections * ratio
		weights += weightSections
	}
	if results.Entities.Success && len(results.Entities.Entities) > 0 {
		var total float64
		for _, e := range results.Entities.Entities {
			c := e.Confidence
			if c == 0 {
				c = defaultEntityConfidence
			}
			total += c
		}
		sum += weightEntities * total / float64(len(results.Entities.Entities))
		weights += weightEntities
	}
	if results.Security.Success {
		score := 0.8 // when the analyzer succeeded without a confidence score
		if results.Security.Assessment.ConfidenceScore > 0 {
			score = float64(results.Security.Assessment.ConfidenceScore) / 100
		}
		sum += weightSecurity * score
		weights += weightSecurity
	}

	confidence := defaultConfidence
	if weights > 0 {
		confidence = sum / weights
	}
	if confidence < minConfidence {
		confidence = minConfidence
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return confidence
}

// Aggregate merges stage outputs into the UI-facing analysis document,
// flattening per-stage field names to the top-level keys downstream
// consumers read. Failed stages contribute their documented safe defaults:
// security always appears (UNCLASSIFIED when the stage failed), other failed
// stages leave their fields absent.
func Aggregate(results StageResults, stats TextStats) *models.AnalysisResult {
	analysis := &models.AnalysisResult{
		Structure: &models.StructureResult{
			Sections:       results.Sections.Sections,
			SectionCount:   len(results.Sections.Sections),
			WordCount:      stats.WordCount,
			CharacterCount: stats.CharacterCount,
		},
		Confidence:  OverallConfidence(results),
		EntityCount: len(results.Entities.Entities),
		AnalyzedAt:  time.Now(),
	}

	if results.Metadata.Success {
		details := results.Metadata.Details
		analysis.Contract = &details
	}
	if results.Content.Success {
		analysis.Summary = results.Content.Insights.Summary
		analysis.KeyPoints = results.Content.Insights.KeyPoints
		analysis.Sentiment = results.Content.Insights.Sentiment
	}

	assessment := results.Security.Assessment
	if assessment.Classification == "" {
		assessment.Classification = "UNCLASSIFIED"
	}
	analysis.Security = &assessment

	if results.Contract.Success {
		contract := results.Contract.Analysis
		analysis.ContractAnalysis = &contract
	}
	if results.Quality.Success {
		report := results.Quality.Report
		analysis.Quality = &report
	}

	return analysis
}
