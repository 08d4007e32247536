package embedding

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/bull/contextiq/internal/provider"
)

// CompatConfig holds the settings of an OpenAI-compatible endpoint
// (Gemini, Ollama, vLLM, Azure deployments behind a proxy).
type CompatConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
}

// CompatEmbedder is an embedding provider using any OpenAI-compatible API.
type CompatEmbedder struct {
	client     *goopenai.Client
	model      goopenai.EmbeddingModel
	dimensions int
	batchSize  int
	newBackOff func() backoff.BackOff
}

// NewCompatEmbedder creates an OpenAI-compatible embedding provider.
func NewCompatEmbedder(cfg CompatConfig) (*CompatEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", provider.ErrAuth)
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &CompatEmbedder{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      goopenai.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		newBackOff: rateLimitBackOff,
	}, nil
}

// Model returns the configured model name.
func (e *CompatEmbedder) Model() string { return string(e.model) }

// EmbedDocuments embeds texts in batches, one API call per batch.
func (e *CompatEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, e.batchSize, e.newBackOff, e.embedBatch)
}

// EmbedQuery embeds a single text.
func (e *CompatEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

func (e *CompatEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := goopenai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: goopenai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", provider.ErrRequest, data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}
