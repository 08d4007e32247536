package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// Service is the entry point used by the HTTP API, the MCP tools and the CLI.
type Service struct {
	cfg       Config
	ingestor  *Ingestor
	assistant *Assistant
	store     VectorStore
}

// Components groups the pipeline dependencies.
type Components struct {
	Extractor Extractor
	Chunker   Chunker
	Embedder  Embedder
	Store     VectorStore
	Generator Generator
}

// NewService builds both pipelines over the same embedder and store.
func NewService(cfg Config, c Components, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	retriever := NewRetriever(cfg, c.Embedder, c.Store, logger)
	return &Service{
		cfg:       cfg,
		ingestor:  NewIngestor(cfg, c.Extractor, c.Chunker, c.Embedder, c.Store, logger),
		assistant: NewAssistant(retriever, c.Generator, logger),
		store:     c.Store,
	}
}

// Config returns the pipeline configuration.
func (s *Service) Config() Config { return s.cfg }

// Ingest replaces namespace with doc. See Ingestor.Ingest.
func (s *Service) Ingest(ctx context.Context, doc Document, namespace string) (*IngestResult, error) {
	return s.ingestor.Ingest(ctx, doc, namespace)
}

// Ask answers query from namespace. See Assistant.Ask.
func (s *Service) Ask(ctx context.Context, query, namespace string, topK int) (*Answer, error) {
	return s.assistant.Ask(ctx, query, namespace, topK)
}

// Status describes the index a namespace lives in.
type Status struct {
	Index     string `json:"index"`
	Namespace string `json:"namespace"`
	Dimension int    `json:"dimension"`
	Records   int    `json:"records"`
}

// Status resolves the index and counts the records in namespace.
func (s *Service) Status(ctx context.Context, namespace string) (*Status, error) {
	namespace = s.cfg.namespace(namespace)

	idx, err := s.store.EnsureIndex(ctx, s.cfg.IndexName, s.cfg.Dimension)
	if err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	n, err := s.store.Count(ctx, idx, namespace)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	return &Status{
		Index:     idx.Name,
		Namespace: namespace,
		Dimension: idx.Dimension,
		Records:   n,
	}, nil
}
