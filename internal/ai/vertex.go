package ai

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// VertexClient holds one pre-configured generative model per analysis task.
type VertexClient struct {
	models     map[Task]*genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a client holding all task models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	models := make(map[Task]*genai.GenerativeModel, len(promptsByTask))
	for task, prompts := range promptsByTask {
		model := baseClient.GenerativeModel(modelName)
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(prompts.system)},
		}
		model.GenerationConfig = genai.GenerationConfig{
			// Force JSON output. This is a critical setting for these models.
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.0), // Low temp for deterministic, structured output
		}
		model.SafetySettings = []*genai.SafetySetting{
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		}
		models[task] = model
	}

	return &VertexClient{models: models, baseClient: baseClient}, nil
}

// GenerateJSON runs the task's model over the request text and returns the
// raw JSON response.
func (c *VertexClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	model, ok := c.models[req.Task]
	if !ok {
		return "", fmt.Errorf("no model configured for task %q", req.Task)
	}

	prompt := genai.Text(buildUserMessage(req))
	resp, err := model.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	content := extractText(resp)
	if content == "" {
		return "", fmt.Errorf("gemini returned an empty response for task %q", req.Task)
	}
	if IsRefusal(content) {
		return "", fmt.Errorf("gemini response indicates refusal for task %q", req.Task)
	}
	return CleanJSON(content), nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// extractText robustly gets the raw text content from the model response.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		return string(txt)
	}
	return ""
}

func buildUserMessage(req Request) string {
	prompts := promptsByTask[req.Task]
	return fmt.Sprintf("%s\n\nDocument name: %s\nDocument type: %s\n\n--- DOCUMENT ---\n%s",
		prompts.user, req.DocumentName, req.DocumentType, req.Text)
}
