package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bull/contextiq/internal/metrics"
	"github.com/bull/contextiq/internal/provider"
	"github.com/bull/contextiq/internal/storage"
)

// Stage is a step of the ingestion state machine.
type Stage string

const (
	StageReceived  Stage = "received"
	StageExtracted Stage = "extracted"
	StageChunked   Stage = "chunked"
	StageEmbedded  Stage = "embedded"
	StageIndexed   Stage = "indexed"
)

// IngestResult contains statistics about an ingestion.
type IngestResult struct {
	Namespace  string        `json:"namespace"`
	Index      string        `json:"index"`
	DocumentID string        `json:"document_id"`
	Chunks     int           `json:"chunks"`
	Characters int           `json:"characters"`
	Duration   time.Duration `json:"duration"`
}

// Ingestor replaces the contents of a namespace with one document.
type Ingestor struct {
	cfg       Config
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	store     VectorStore
	logger    *slog.Logger

	// Replacement is delete-then-insert; two concurrent ingestions into the
	// same namespace would interleave.
	mu sync.Mutex
}

// NewIngestor creates an ingestion pipeline with the given components.
func NewIngestor(cfg Config, extractor Extractor, chunker Chunker, embedder Embedder, store VectorStore, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		cfg:       cfg,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// Ingest extracts, chunks and embeds doc, then replaces namespace with the
// new chunks. Nothing in the index changes unless extraction and embedding
// both succeed. An empty namespace selects the configured default.
func (i *Ingestor) Ingest(ctx context.Context, doc Document, namespace string) (*IngestResult, error) {
	result, err := i.ingest(ctx, doc, i.cfg.namespace(namespace))
	if err != nil {
		metrics.IngestionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.IngestionsTotal.WithLabelValues("success").Inc()
	metrics.IngestedChunksTotal.Add(float64(result.Chunks))
	return result, nil
}

func (i *Ingestor) ingest(ctx context.Context, doc Document, namespace string) (*IngestResult, error) {
	if i.cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension not set", storage.ErrDimensionMismatch)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	start := time.Now()
	log := i.logger.With("namespace", namespace, "document", doc.Name)
	log.Debug("ingestion stage", "stage", StageReceived, "bytes", len(doc.Data))

	text, err := i.extractor.Extract(doc.Name, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoExtractableText
	}
	log.Debug("ingestion stage", "stage", StageExtracted, "characters", utf8.RuneCountInString(text))

	chunks := i.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, ErrNoExtractableText
	}
	log.Debug("ingestion stage", "stage", StageChunked, "chunks", len(chunks))

	vectors, err := i.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: %w: got %d vectors for %d chunks",
			provider.ErrRequest, len(vectors), len(chunks))
	}
	for n, v := range vectors {
		if len(v) != i.cfg.Dimension {
			return nil, fmt.Errorf("embed chunks: %w: chunk %d has %d dimensions, expected %d",
				storage.ErrDimensionMismatch, n, len(v), i.cfg.Dimension)
		}
	}
	log.Debug("ingestion stage", "stage", StageEmbedded)

	idx, err := i.store.EnsureIndex(ctx, i.cfg.IndexName, i.cfg.Dimension)
	if err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	if err := i.store.ReplaceNamespace(ctx, idx, namespace); err != nil {
		return nil, fmt.Errorf("replace namespace: %w", err)
	}

	docID := strings.ReplaceAll(uuid.NewString(), "-", "")
	records := make([]storage.Record, len(chunks))
	for n, chunk := range chunks {
		metadata := map[string]string{
			storage.MetadataText:       chunk,
			storage.MetadataChunkIndex: strconv.Itoa(n),
			storage.MetadataDocumentID: docID,
		}
		if doc.Name != "" {
			metadata[storage.MetadataSource] = doc.Name
		}
		records[n] = storage.Record{
			ID:       RecordID(namespace, docID, n),
			Values:   vectors[n],
			Metadata: metadata,
		}
	}
	if err := i.store.Upsert(ctx, idx, namespace, records); err != nil {
		return nil, fmt.Errorf("upsert chunks: %w", err)
	}

	result := &IngestResult{
		Namespace:  namespace,
		Index:      idx.Name,
		DocumentID: docID,
		Chunks:     len(chunks),
		Characters: utf8.RuneCountInString(text),
		Duration:   time.Since(start),
	}
	log.Info("document ingested",
		"stage", StageIndexed,
		"index", result.Index,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}

// RecordID formats the id of the n-th chunk of a document.
func RecordID(namespace, documentID string, n int) string {
	return fmt.Sprintf("%s-%s-%d", namespace, documentID, n)
}
