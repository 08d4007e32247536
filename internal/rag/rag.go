// Package rag wires extraction, chunking, embedding, vector storage and
// answer generation into the ingestion and question-answering pipelines.
package rag

import (
	"context"

	"github.com/bull/contextiq/internal/storage"
)

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	Extract(name string, data []byte) (string, error)
}

// Chunker splits text into overlapping chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder maps text to vectors. Ingestion and retrieval must share one.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the index-manager surface the pipelines need.
type VectorStore interface {
	EnsureIndex(ctx context.Context, base string, dimension int) (storage.Index, error)
	ReplaceNamespace(ctx context.Context, idx storage.Index, namespace string) error
	Upsert(ctx context.Context, idx storage.Index, namespace string, records []storage.Record) error
	Query(ctx context.Context, idx storage.Index, namespace string, vector []float32, topK int) ([]storage.Match, error)
	Count(ctx context.Context, idx storage.Index, namespace string) (int, error)
}

// Generator answers a question from retrieved context.
type Generator interface {
	Answer(ctx context.Context, query string, contexts []string) (string, error)
}

// Config carries the values shared by both pipelines.
type Config struct {
	IndexName string // base index name
	Namespace string // default namespace
	Dimension int    // embedding dimension, probed once at startup
	TopK      int    // default number of chunks to retrieve
}

// Document is an uploaded file.
type Document struct {
	Name string // optional, used for format detection
	Data []byte
}

// Source is a retrieved chunk, in relevance order.
type Source struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

func (c Config) namespace(ns string) string {
	if ns == "" {
		return c.Namespace
	}
	return ns
}

func (c Config) topK(k int) int {
	if k <= 0 {
		return c.TopK
	}
	return k
}
