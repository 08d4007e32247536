package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/contextiq/internal/metrics"
	"github.com/bull/contextiq/internal/provider"
)

// countingEmbedder returns [len(text)] for every text and records calls.
type countingEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (c *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls = append(c.calls, append([]string(nil), texts...))
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 0.25}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, c, text)
}

type mapKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMapKV() *mapKV { return &mapKV{data: map[string][]byte{}} }

func (m *mapKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *mapKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func TestCachedEmbedder_EmbedsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	kv := newMapKV()
	ce := NewCachedEmbedder(inner, kv, "m", nil)
	ctx := context.Background()

	_, err := ce.EmbedDocuments(ctx, []string{"a", "bb"})
	require.NoError(t, err)

	hits := testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("hit"))
	vectors, err := ce.EmbedDocuments(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{2, 0.25}, {3, 0.25}, {1, 0.25}}, vectors)
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])
	assert.Equal(t, hits+2, testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("hit")))
}

func TestCachedEmbedder_AllHitsSkipInner(t *testing.T) {
	inner := &countingEmbedder{}
	ce := NewCachedEmbedder(inner, newMapKV(), "m", nil)
	ctx := context.Background()

	first, err := ce.EmbedQuery(ctx, "question")
	require.NoError(t, err)
	second, err := ce.EmbedQuery(ctx, "question")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, inner.calls, 1)
}

func TestCachedEmbedder_ModelIsPartOfKey(t *testing.T) {
	kv := newMapKV()
	inner := &countingEmbedder{}
	ctx := context.Background()

	_, err := NewCachedEmbedder(inner, kv, "small", nil).EmbedQuery(ctx, "same text")
	require.NoError(t, err)
	_, err = NewCachedEmbedder(inner, kv, "large", nil).EmbedQuery(ctx, "same text")
	require.NoError(t, err)

	assert.Len(t, inner.calls, 2)
	assert.Len(t, kv.data, 2)
}

// fixedDimEmbedder returns a vector of dim ones for every text.
type fixedDimEmbedder struct{ dim int }

func (f fixedDimEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dim)
		for j := range v {
			v[j] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (f fixedDimEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, f, text)
}

func TestCachedEmbedder_DimensionsArePartOfKey(t *testing.T) {
	kv := newMapKV()
	ctx := context.Background()

	before := NewCachedEmbedder(fixedDimEmbedder{dim: 1536}, kv,
		CacheScope("openai", "", "text-embedding-3-small", 0), nil)
	dim, err := Probe(ctx, before)
	require.NoError(t, err)
	assert.Equal(t, 1536, dim)

	after := NewCachedEmbedder(fixedDimEmbedder{dim: 256}, kv,
		CacheScope("openai", "", "text-embedding-3-small", 256), nil)
	dim, err = Probe(ctx, after)
	require.NoError(t, err)
	assert.Equal(t, 256, dim)
}

func TestCacheScope(t *testing.T) {
	base := CacheScope("openai", "", "m", 0)
	assert.NotEqual(t, base, CacheScope("compat", "", "m", 0))
	assert.NotEqual(t, base, CacheScope("openai", "http://localhost:11434/v1", "m", 0))
	assert.NotEqual(t, base, CacheScope("openai", "", "m", 512))
	assert.Equal(t, base, CacheScope("openai", "", "m", 0))
}

func TestCachedEmbedder_StoreFailuresAreIgnored(t *testing.T) {
	kv := newMapKV()
	kv.getErr = errors.New("connection refused")
	kv.setErr = errors.New("connection refused")
	ce := NewCachedEmbedder(&countingEmbedder{}, kv, "m", nil)

	vec, err := ce.EmbedQuery(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 0.25}, vec)
}

func TestCachedEmbedder_CorruptEntryIsRefetched(t *testing.T) {
	kv := newMapKV()
	inner := &countingEmbedder{}
	ce := NewCachedEmbedder(inner, kv, "m", nil)
	kv.data[ce.cacheKey("abc")] = []byte{1, 2, 3}

	vec, err := ce.EmbedQuery(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 0.25}, vec)
	assert.Len(t, inner.calls, 1)
}

func TestCachedEmbedder_InnerErrorPropagates(t *testing.T) {
	inner := &countingEmbedder{err: provider.ErrRequest}
	ce := NewCachedEmbedder(inner, newMapKV(), "m", nil)

	_, err := ce.EmbedDocuments(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, provider.ErrRequest)
}

func TestVectorBytesRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := bytesToVector(vectorToBytes(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = bytesToVector([]byte{1, 2})
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	inner := &countingEmbedder{}
	dim, err := Probe(context.Background(), inner)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
	assert.Equal(t, [][]string{{ProbeText}}, inner.calls)
}

func TestProbe_Error(t *testing.T) {
	_, err := Probe(context.Background(), &countingEmbedder{err: provider.ErrAuth})
	assert.ErrorIs(t, err, provider.ErrAuth)
}

func TestInstrumentedEmbedder(t *testing.T) {
	ok := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("documents", "success"))
	failed := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("query", "error"))

	e := NewInstrumentedEmbedder(&countingEmbedder{}, nil)
	_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	failing := NewInstrumentedEmbedder(&countingEmbedder{err: provider.ErrRequest}, nil)
	_, err = failing.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, provider.ErrRequest)

	assert.Equal(t, ok+1, testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("documents", "success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("query", "error")))
}
