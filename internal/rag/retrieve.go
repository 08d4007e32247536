package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/contextiq/internal/metrics"
	"github.com/bull/contextiq/internal/storage"
)

// Retriever finds the chunks most similar to a query.
type Retriever struct {
	cfg      Config
	embedder Embedder
	store    VectorStore
	logger   *slog.Logger
}

// NewRetriever creates a retriever. embedder must be the one used for ingestion.
func NewRetriever(cfg Config, embedder Embedder, store VectorStore, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{cfg: cfg, embedder: embedder, store: store, logger: logger}
}

// Retrieve returns up to topK chunks from namespace, most relevant first.
// Matches without text are skipped. Empty namespace and non-positive topK
// select the configured defaults.
func (r *Retriever) Retrieve(ctx context.Context, query, namespace string, topK int) ([]Source, error) {
	namespace = r.cfg.namespace(namespace)
	topK = r.cfg.topK(topK)

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) != r.cfg.Dimension {
		return nil, fmt.Errorf("embed query: %w: got %d dimensions, expected %d",
			storage.ErrDimensionMismatch, len(vector), r.cfg.Dimension)
	}

	idx, err := r.store.EnsureIndex(ctx, r.cfg.IndexName, r.cfg.Dimension)
	if err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	matches, err := r.store.Query(ctx, idx, namespace, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	sources := make([]Source, 0, len(matches))
	for _, m := range matches {
		text, ok := m.Text()
		if !ok {
			continue
		}
		sources = append(sources, Source{ID: m.ID, Text: text, Score: m.Score})
	}

	r.logger.Debug("retrieved context",
		"namespace", namespace,
		"index", idx.Name,
		"matches", len(matches),
		"sources", len(sources),
	)
	return sources, nil
}

// Answer is a generated answer with the sources it was grounded on.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Assistant answers questions about the ingested document.
type Assistant struct {
	retriever *Retriever
	generator Generator
	logger    *slog.Logger
}

// NewAssistant creates an assistant.
func NewAssistant(retriever *Retriever, generator Generator, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{retriever: retriever, generator: generator, logger: logger}
}

// Ask retrieves context for query and generates an answer from it.
func (a *Assistant) Ask(ctx context.Context, query, namespace string, topK int) (*Answer, error) {
	start := time.Now()

	sources, err := a.retriever.Retrieve(ctx, query, namespace, topK)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	contexts := make([]string, len(sources))
	for i, s := range sources {
		contexts[i] = s.Text
	}

	text, err := a.generator.Answer(ctx, query, contexts)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.QuestionsTotal.WithLabelValues("success").Inc()
	a.logger.Info("question answered", "sources", len(sources), "duration", time.Since(start))
	return &Answer{Text: text, Sources: sources}, nil
}
