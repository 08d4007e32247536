package generation

import (
	"context"
	"fmt"
	"math"

	"github.com/openai/openai-go"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/bull/contextiq/internal/provider"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxTokens caps the length of a generated answer.
	DefaultMaxTokens = 512
)

// OpenAICompleter calls chat completions through the official OpenAI SDK.
// Temperature is fixed at 0.
type OpenAICompleter struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAICompleter creates a completer. Empty model and non-positive
// maxTokens select the defaults.
func NewOpenAICompleter(client *openai.Client, model string, maxTokens int) *OpenAICompleter {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAICompleter{client: client, model: model, maxTokens: maxTokens}
}

// Complete sends prompt as a single user message.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return "", provider.Classify("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w: no choices returned", provider.ErrRequest)
	}
	return resp.Choices[0].Message.Content, nil
}

// CompatCompleter calls any OpenAI-compatible chat endpoint.
type CompatCompleter struct {
	client    *goopenai.Client
	model     string
	maxTokens int
}

// NewCompatCompleter creates a completer for baseURL.
func NewCompatCompleter(apiKey, baseURL, model string, maxTokens int) (*CompatCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", provider.ErrAuth)
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &CompatCompleter{
		client:    goopenai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Complete sends prompt as a single user message.
func (c *CompatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		// A literal 0 is dropped by omitempty and the server default applies.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", provider.Classify("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w: no choices returned", provider.ErrRequest)
	}
	return resp.Choices[0].Message.Content, nil
}
