package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/contextiq/internal/provider"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

// fakeEmbeddingsAPI serves /embeddings. Each input gets the vector
// [len(input), index-in-batch, 1].
func fakeEmbeddingsAPI(t *testing.T, calls *atomic.Int32, failFirst int, failStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		n := calls.Add(1)

		w.Header().Set("Content-Type", "application/json")
		if int(n) <= failFirst {
			w.WriteHeader(failStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			return
		}

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(in)), float64(i), 1},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func newTestOpenAIEmbedder(t *testing.T, url string, opts ...OpenAIOption) *OpenAIEmbedder {
	t.Helper()
	client, err := NewClient("test-key", url+"/")
	require.NoError(t, err)
	e := NewOpenAIEmbedder(client, "", opts...)
	e.newBackOff = fastBackOff
	return e
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient("", "")
	assert.ErrorIs(t, err, provider.ErrAuth)
}

func TestOpenAIEmbedder_BatchesPreserveOrder(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingsAPI(t, &calls, 0, 0)
	defer srv.Close()

	e := newTestOpenAIEmbedder(t, srv.URL, WithBatchSize(2))
	assert.Equal(t, DefaultModel, e.Model())

	vectors, err := e.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load(), "5 texts in batches of 2 need 3 calls")
	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, float32(i+1), v[0], "vector %d belongs to input %d", i, i)
		assert.Len(t, v, 3)
	}
}

func TestOpenAIEmbedder_EmptyInput(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingsAPI(t, &calls, 0, 0)
	defer srv.Close()

	vectors, err := newTestOpenAIEmbedder(t, srv.URL).EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, calls.Load())
}

func TestOpenAIEmbedder_EmbedQuery(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingsAPI(t, &calls, 0, 0)
	defer srv.Close()

	vec, err := newTestOpenAIEmbedder(t, srv.URL).EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0, 1}, vec)
}

func TestOpenAIEmbedder_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingsAPI(t, &calls, 2, http.StatusTooManyRequests)
	defer srv.Close()

	vec, err := newTestOpenAIEmbedder(t, srv.URL).EmbedQuery(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0, 1}, vec)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIEmbedder_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, provider.ErrAuth},
		{"forbidden", http.StatusForbidden, provider.ErrAuth},
		{"server error", http.StatusInternalServerError, provider.ErrRequest},
		{"bad request", http.StatusBadRequest, provider.ErrRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := fakeEmbeddingsAPI(t, &calls, 100, tt.status)
			defer srv.Close()

			_, err := newTestOpenAIEmbedder(t, srv.URL).EmbedDocuments(context.Background(), []string{"x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load(), "non-429 errors are not retried")
		})
	}
}

func TestCompatEmbedder(t *testing.T) {
	var calls atomic.Int32
	var gotDimensions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotDimensions.Store(int32(req.Dimensions))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 0.5}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
	defer srv.Close()

	e, err := NewCompatEmbedder(CompatConfig{
		APIKey:     "k",
		BaseURL:    srv.URL + "/v1",
		Model:      "nomic-embed-text",
		Dimensions: 2,
		BatchSize:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", e.Model())

	vectors, err := e.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0.5}, {1, 0.5}, {2, 0.5}}, vectors)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(2), gotDimensions.Load())
}

func TestCompatEmbedder_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e, err := NewCompatEmbedder(CompatConfig{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = e.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, provider.ErrAuth)
}

func TestNewCompatEmbedder_MissingKey(t *testing.T) {
	_, err := NewCompatEmbedder(CompatConfig{BaseURL: "http://localhost"})
	assert.ErrorIs(t, err, provider.ErrAuth)
}
