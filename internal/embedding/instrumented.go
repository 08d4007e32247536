package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/bull/contextiq/internal/metrics"
)

// InstrumentedEmbedder records request metrics and logs failures.
type InstrumentedEmbedder struct {
	inner  Embedder
	logger *slog.Logger
}

// NewInstrumentedEmbedder wraps inner with Prometheus metrics.
func NewInstrumentedEmbedder(inner Embedder, logger *slog.Logger) *InstrumentedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedEmbedder{inner: inner, logger: logger}
}

// EmbedDocuments delegates to the inner embedder and records the outcome.
func (e *InstrumentedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := e.inner.EmbedDocuments(ctx, texts)
	e.observe("documents", start, len(texts), err)
	return vectors, err
}

// EmbedQuery delegates to the inner embedder and records the outcome.
func (e *InstrumentedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.inner.EmbedQuery(ctx, text)
	e.observe("query", start, 1, err)
	return vec, err
}

func (e *InstrumentedEmbedder) observe(op string, start time.Time, n int, err error) {
	duration := time.Since(start)
	metrics.EmbeddingRequestDuration.WithLabelValues(op).Observe(duration.Seconds())

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(op, "error").Inc()
		e.logger.Error("embedding request failed",
			"operation", op,
			"texts", n,
			"duration", duration,
			"error", err,
		)
		return
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(op, "success").Inc()
	metrics.EmbeddedTextsTotal.Add(float64(n))
	e.logger.Debug("embedding request completed", "operation", op, "texts", n, "duration", duration)
}
