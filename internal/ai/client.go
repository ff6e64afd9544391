package ai

import (
	"context"
	"strings"
)

// Task identifies one of the analysis stages an analyzer model serves.
type Task string

const (
	TaskContractMetadata Task = "contract-metadata"
	TaskSections         Task = "section-structure"
	TaskEntities         Task = "entity-extraction"
	TaskContent          Task = "content-analysis"
	TaskSecurity         Task = "security-classification"
	TaskContract         Task = "contract-analysis"
	TaskQuality          Task = "quality-scoring"
)

// Request carries the document text and identifying context for one
// analyzer call.
type Request struct {
	Task         Task
	Text         string
	DocumentName string
	DocumentType string
}

// Client is a provider-neutral analyzer. GenerateJSON runs the model
// configured for the request's task and returns its raw JSON response.
// Calls may be slow (seconds) and may fail; callers own failure isolation.
type Client interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
	Close() error
}

// CleanJSON strips markdown fences the model may wrap around its output.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// IsRefusal reports whether a model response looks like an LLM refusal
// instead of an answer. Refusals must fail the stage rather than be parsed.
func IsRefusal(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
