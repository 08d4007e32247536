package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/bull/contextiq/internal/metrics"
)

const cacheKeyPrefix = "contextiq:emb_cache:"

// ErrCacheMiss is returned by a KV store when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// KV is the consumer interface for the embedding cache.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder caches embeddings in a key-value store. Cache failures are
// logged and never fail the request.
type CachedEmbedder struct {
	inner  Embedder
	store  KV
	scope  string
	logger *slog.Logger
}

// CacheScope identifies an embedding configuration. Vectors cached under one
// scope are never served under another, so changing the provider, endpoint,
// model or output dimension starts from an empty cache.
func CacheScope(provider, baseURL, model string, dimensions int) string {
	return provider + "|" + baseURL + "|" + model + "|" + strconv.Itoa(dimensions)
}

// NewCachedEmbedder wraps inner. scope (see CacheScope) is part of every
// cache key.
func NewCachedEmbedder(inner Embedder, store KV, scope string, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{
		inner:  inner,
		store:  store,
		scope:  scope,
		logger: logger,
	}
}

// EmbedDocuments serves cached vectors and embeds only the misses, in a single
// call to the inner embedder.
func (c *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		keys[i] = c.cacheKey(text)
		if vec, ok := c.getFromCache(ctx, keys[i]); ok {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			out[i] = vec
			continue
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embed texts: got %d vectors for %d inputs", len(vectors), len(missTexts))
	}

	for j, i := range missIdx {
		out[i] = vectors[j]
		c.putToCache(ctx, keys[i], vectors[j])
	}
	return out, nil
}

// EmbedQuery returns a cached embedding or calls the inner embedder.
func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	c.putToCache(ctx, key, vec)
	return vec, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.scope + "|" + text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("failed to get cached embedding", "key", key, "error", err)
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("failed to parse cached embedding", "key", key, "error", err)
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, vectorToBytes(vec)); err != nil {
		c.logger.Warn("failed to cache embedding", "key", key, "error", err)
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
