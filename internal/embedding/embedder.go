// Package embedding turns text into vectors through an OpenAI-compatible
// embeddings API.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/bull/contextiq/internal/provider"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
	DefaultBatchSize = 500
)

// Embedder is implemented by every embedding client in this package.
// Both methods are safe for concurrent use.
type Embedder interface {
	// EmbedDocuments returns one vector per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// batchFunc embeds one batch of at most batchSize texts.
type batchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// OpenAIEmbedder generates embeddings with the official OpenAI SDK.
// It batches requests and retries with exponential backoff on rate limit errors.
type OpenAIEmbedder struct {
	client     *Client
	model      string
	dimensions int
	batchSize  int
	newBackOff func() backoff.BackOff
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithDimensions requests a reduced output dimension from models that support it.
func WithDimensions(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n > 0 {
			e.dimensions = n
		}
	}
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewOpenAIEmbedder creates an embedder for model. An empty model selects DefaultModel.
func NewOpenAIEmbedder(client *Client, model string, opts ...OpenAIOption) *OpenAIEmbedder {
	if model == "" {
		model = DefaultModel
	}
	e := &OpenAIEmbedder{
		client:     client,
		model:      model,
		batchSize:  DefaultBatchSize,
		newBackOff: rateLimitBackOff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the configured model name.
func (e *OpenAIEmbedder) Model() string { return e.model }

// EmbedDocuments embeds texts in batches, one API call per batch.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, e.batchSize, e.newBackOff, e.embedBatch)
}

// EmbedQuery embeds a single text.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", provider.ErrRequest, data.Index)
		}
		embeddings[data.Index] = toFloat32(data.Embedding)
	}
	return embeddings, nil
}

// embedInBatches splits texts into batches and embeds each with retry.
// A batch that comes back short is a provider error.
func embedInBatches(
	ctx context.Context, texts []string, batchSize int,
	newBackOff func() backoff.BackOff, embed batchFunc,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))
		batch := texts[i:end]

		embeddings, err := withRateLimitRetry(ctx, newBackOff(), func() ([][]float32, error) {
			return embed(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, provider.Classify("embed", err))
		}
		for j, v := range embeddings {
			if len(v) == 0 {
				return nil, fmt.Errorf("batch %d-%d: %w: missing embedding for input %d",
					i, end, provider.ErrRequest, i+j)
			}
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// withRateLimitRetry retries op with exponential backoff on rate limit errors (HTTP 429).
// Other errors are treated as permanent and fail immediately.
func withRateLimitRetry(ctx context.Context, b backoff.BackOff, op func() ([][]float32, error)) ([][]float32, error) {
	var result [][]float32

	operation := func() error {
		out, err := op()
		if err != nil {
			if provider.IsRateLimit(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err)
		}
		result = out
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return result, err
}

func rateLimitBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
