package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/contextiq/internal/config"
	"github.com/bull/contextiq/internal/generation"
	"github.com/bull/contextiq/internal/rag"
)

// fakeProvider serves the embeddings and chat completions endpoints.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			var req struct {
				Input []string `json:"input"`
				Model string   `json:"model"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			data := make([]map[string]any, len(req.Input))
			for i, in := range req.Input {
				data[i] = map[string]any{
					"object":    "embedding",
					"index":     i,
					"embedding": []float64{1, float64(len(in)%7 + 1), float64(strings.Count(in, "sky") + 1)},
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"data":   data,
				"model":  req.Model,
				"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
			})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",` +
				`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" The sky is blue. "}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.BaseURL = baseURL
	cfg.Index.Name = "docs"
	cfg.Qdrant.Store = config.StoreMemory
	return cfg
}

func TestNew_EndToEnd(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()

	a, err := New(context.Background(), testConfig(srv.URL+"/"), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 3, a.Service.Config().Dimension)
	assert.NotNil(t, a.Fetcher)

	ctx := context.Background()
	result, err := a.Service.Ingest(ctx, rag.Document{Name: "sky.txt", Data: []byte("The sky is blue.")}, "")
	require.NoError(t, err)
	assert.Equal(t, "latest", result.Namespace)
	assert.Equal(t, 1, result.Chunks)

	answer, err := a.Service.Ask(ctx, "What color is the sky?", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "The sky is blue.", answer.Sources[0].Text)

	status, err := a.Service.Status(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Records)
	assert.Equal(t, 3, status.Dimension)
}

func TestNew_EmptyNamespaceFallsBack(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()

	a, err := New(context.Background(), testConfig(srv.URL+"/"), nil)
	require.NoError(t, err)
	defer a.Close()

	answer, err := a.Service.Ask(context.Background(), "anything?", "empty", 0)
	require.NoError(t, err)
	assert.Equal(t, generation.NoContextAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestNew_UnreachableRedisRunsUncached(t *testing.T) {
	srv := fakeProvider(t)
	defer srv.Close()

	cfg := testConfig(srv.URL + "/")
	cfg.Cache.RedisAddr = "127.0.0.1:1"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 3, a.Service.Config().Dimension)
	_, err = a.Service.Ingest(context.Background(), rag.Document{Name: "sky.txt", Data: []byte("The sky is blue.")}, "")
	require.NoError(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig("")
	cfg.LLM.APIKey = ""

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrMissingConfig)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
