// Package metrics defines the Prometheus collectors exported by ContextIQ.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contextiq"

// Embedding metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding calls",
		},
		[]string{"operation", "status"}, // operation: documents / query
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	EmbeddedTextsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedded_texts_total",
			Help:      "Total number of texts sent for embedding",
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// Pipeline metrics.
var (
	IngestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Document ingestions by outcome",
		},
		[]string{"status"},
	)

	IngestedChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Chunks written to the vector index",
		},
	)

	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered by outcome",
		},
		[]string{"status"},
	)

	CompletionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)
)

// HTTP metrics.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demo_quota_rejections_total",
			Help:      "Requests rejected by the per-session demo limit",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddedTextsTotal,
			EmbeddingCacheTotal,
			IngestionsTotal,
			IngestedChunksTotal,
			QuestionsTotal,
			CompletionDuration,
			HTTPRequestsTotal,
			HTTPRequestDuration,
			QuotaRejectionsTotal,
		)
	})
}
