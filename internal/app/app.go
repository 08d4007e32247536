// Package app assembles the pipeline from configuration. Both binaries
// build their components through it.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bull/contextiq/internal/chunker"
	"github.com/bull/contextiq/internal/config"
	"github.com/bull/contextiq/internal/embedding"
	"github.com/bull/contextiq/internal/extract"
	"github.com/bull/contextiq/internal/generation"
	ghclient "github.com/bull/contextiq/internal/github"
	"github.com/bull/contextiq/internal/rag"
	"github.com/bull/contextiq/internal/storage"
)

// App holds the assembled components.
type App struct {
	Config  *config.Config
	Service *rag.Service
	Store   *storage.IndexManager
	Fetcher *ghclient.Fetcher
	Logger  *slog.Logger

	closers []func()
}

// New validates cfg, connects to the vector store and the model provider,
// and probes the embedding dimension once.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	backend, err := a.newBackend(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = storage.NewIndexManager(backend, storage.ManagerConfig{
		Cloud:    cfg.Index.Cloud,
		Region:   cfg.Index.Region,
		MinScore: cfg.Retrieval.MinScore,
		Logger:   logger,
	})

	embedder, completer, err := newProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}
	embedder = a.withCache(ctx, embedder)
	embedder = embedding.NewInstrumentedEmbedder(embedder, logger)

	dimension, err := embedding.Probe(ctx, embedder)
	if err != nil {
		return nil, err
	}
	logger.Info("embedding model ready",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.EmbeddingModel,
		"dimension", dimension,
	)

	ghClient, err := ghclient.NewClient(cfg.GitHub.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}
	a.Fetcher = ghclient.NewFetcher(ghClient)

	a.Service = rag.NewService(rag.Config{
		IndexName: cfg.Index.Name,
		Namespace: cfg.Index.Namespace,
		Dimension: dimension,
		TopK:      cfg.Retrieval.TopK,
	}, rag.Components{
		Extractor: extract.New(),
		Chunker: chunker.New(
			chunker.WithChunkSize(cfg.Chunking.Size),
			chunker.WithOverlap(cfg.Chunking.Overlap),
		),
		Embedder:  embedder,
		Store:     a.Store,
		Generator: generation.NewGenerator(completer, logger),
	}, logger)

	ok = true
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) newBackend(ctx context.Context) (storage.Backend, error) {
	q := a.Config.Qdrant
	if q.Store == config.StoreMemory {
		a.Logger.Warn("using in-memory vector store, documents are lost on restart")
		return storage.NewMemoryStorage(), nil
	}

	a.Logger.Info("connecting to qdrant", "host", q.Host, "port", q.Port)
	store, err := storage.NewQdrantStorage(ctx, storage.QdrantConfig{
		Host:   q.Host,
		Port:   q.Port,
		APIKey: q.APIKey,
		UseTLS: q.UseTLS,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = store.Close() })
	return store, nil
}

// withCache wraps inner with the Redis embedding cache when REDIS_ADDR is set.
// An unreachable Redis disables the cache instead of failing startup.
func (a *App) withCache(ctx context.Context, inner embedding.Embedder) embedding.Embedder {
	c := a.Config.Cache
	if c.RedisAddr == "" {
		return inner
	}

	cache, err := embedding.NewRedisCache(c.RedisAddr, c.RedisPassword, 0)
	if err != nil {
		a.Logger.Warn("redis unavailable, embedding cache disabled", "addr", c.RedisAddr, "error", err)
		return inner
	}
	a.closers = append(a.closers, cache.Close)

	if err := cache.Ping(ctx); err != nil {
		a.Logger.Warn("redis unavailable, embedding cache disabled", "addr", c.RedisAddr, "error", err)
		return inner
	}
	a.Logger.Info("embedding cache enabled", "addr", c.RedisAddr)

	llm := a.Config.LLM
	scope := embedding.CacheScope(llm.Provider, llm.BaseURL, llm.EmbeddingModel, llm.EmbeddingDimensions)
	return embedding.NewCachedEmbedder(inner, cache, scope, a.Logger)
}

// newProvider builds the embedder and chat completer for the configured provider.
func newProvider(cfg config.LLMConfig) (embedding.Embedder, generation.Completer, error) {
	switch cfg.Provider {
	case config.ProviderCompat:
		embedder, err := embedding.NewCompatEmbedder(embedding.CompatConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, nil, err
		}
		completer, err := generation.NewCompatCompleter(cfg.APIKey, cfg.BaseURL, cfg.ChatModel, cfg.ChatMaxTokens)
		if err != nil {
			return nil, nil, err
		}
		return embedder, completer, nil

	default:
		client, err := embedding.NewClient(cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		embedder := embedding.NewOpenAIEmbedder(client, cfg.EmbeddingModel,
			embedding.WithDimensions(cfg.EmbeddingDimensions))
		completer := generation.NewOpenAICompleter(client.Client(), cfg.ChatModel, cfg.ChatMaxTokens)
		return embedder, completer, nil
	}
}

// NewLogger builds an slog logger from the logging settings.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
