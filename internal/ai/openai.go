package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openAIMaxTokens = 2048

// OpenAIClient is the alternate analyzer backend, selected when the
// deployment cannot use Vertex AI.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates the OpenAI-backed analyzer.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewOpenAIClient: apiKey cannot be empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}, nil
}

// GenerateJSON runs a chat completion in JSON mode for the request's task.
func (c *OpenAIClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	prompts, ok := promptsByTask[req.Task]
	if !ok {
		return "", fmt.Errorf("no prompts configured for task %q", req.Task)
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.system},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(req)},
		},
	}
	// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens.
	if strings.HasPrefix(c.model, "o1") || strings.HasPrefix(c.model, "o3") || strings.HasPrefix(c.model, "o4") || strings.HasPrefix(c.model, "gpt-5") {
		chatReq.MaxCompletionTokens = openAIMaxTokens
	} else {
		chatReq.MaxTokens = openAIMaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices for task %q", req.Task)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("openai returned an empty response for task %q", req.Task)
	}
	if IsRefusal(content) {
		return "", fmt.Errorf("openai response indicates refusal for task %q", req.Task)
	}
	return CleanJSON(content), nil
}

// Close satisfies the Client interface; the OpenAI client holds no
// connection state to release.
func (c *OpenAIClient) Close() error { return nil }
