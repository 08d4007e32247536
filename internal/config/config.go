// Package config loads ContextIQ settings from an optional YAML file and the
// environment. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingConfig signals a required credential or name that is not set.
	ErrMissingConfig = errors.New("missing required configuration")
	// ErrInvalidConfig signals a value that is set but unusable.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Provider values for LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderCompat = "compat"
)

// Vector store values for VECTOR_STORE.
const (
	StoreQdrant = "qdrant"
	StoreMemory = "memory"
)

// Config is the root configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Index     IndexConfig     `yaml:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	GitHub    GitHubConfig    `yaml:"github"`
}

// LLMConfig covers both the embedding and the chat model.
type LLMConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"-"`
	BaseURL             string `yaml:"base_url"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	ChatModel           string `yaml:"chat_model"`
	ChatMaxTokens       int    `yaml:"chat_max_tokens"`
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	Store  string `yaml:"store"` // qdrant or memory
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"-"`
	UseTLS bool   `yaml:"use_tls"`
}

// IndexConfig names the index and where it should be created.
type IndexConfig struct {
	Name      string `yaml:"name"`
	Cloud     string `yaml:"cloud"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// ChunkingConfig configures the text splitter.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float32 `yaml:"min_score"`
}

// CacheConfig enables the Redis embedding cache when Addr is set.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string `yaml:"port"`
	ServerMode     bool   `yaml:"server_mode"`
	DemoQueryLimit int    `yaml:"demo_query_limit"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// GitHubConfig holds the optional token used by the GitHub document source.
type GitHubConfig struct {
	Token string `yaml:"-"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
			ChatMaxTokens:  512,
		},
		Qdrant: QdrantConfig{
			Store: StoreQdrant,
			Host:  "localhost",
			Port:  6334,
		},
		Index: IndexConfig{
			Cloud:     "aws",
			Region:    "us-east-1",
			Namespace: "latest",
		},
		Chunking:  ChunkingConfig{Size: 1000, Overlap: 150},
		Retrieval: RetrievalConfig{TopK: 5},
		Server:    ServerConfig{Port: "8080"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.EmbeddingModel, "EMBEDDING_MODEL")
	setString(&c.LLM.ChatModel, "CHAT_MODEL")

	setString(&c.Qdrant.Store, "VECTOR_STORE")
	setString(&c.Qdrant.Host, "QDRANT_HOST")
	setString(&c.Qdrant.APIKey, "QDRANT_API_KEY")

	setString(&c.Index.Name, "INDEX_NAME")
	setString(&c.Index.Cloud, "INDEX_CLOUD")
	setString(&c.Index.Region, "INDEX_REGION")
	setString(&c.Index.Namespace, "NAMESPACE")

	setString(&c.Cache.RedisAddr, "REDIS_ADDR")
	setString(&c.Cache.RedisPassword, "REDIS_PASSWORD")

	setString(&c.Server.Port, "PORT")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.GitHub.Token, "GITHUB_TOKEN")

	ints := []struct {
		key string
		dst *int
	}{
		{"EMBEDDING_DIMENSIONS", &c.LLM.EmbeddingDimensions},
		{"CHAT_MAX_TOKENS", &c.LLM.ChatMaxTokens},
		{"QDRANT_PORT", &c.Qdrant.Port},
		{"CHUNK_SIZE", &c.Chunking.Size},
		{"CHUNK_OVERLAP", &c.Chunking.Overlap},
		{"TOP_K", &c.Retrieval.TopK},
		{"DEMO_QUERY_LIMIT", &c.Server.DemoQueryLimit},
	}
	for _, e := range ints {
		if err := setInt(e.dst, e.key); err != nil {
			return err
		}
	}

	if err := setBool(&c.Qdrant.UseTLS, "QDRANT_USE_TLS"); err != nil {
		return err
	}
	if err := setBool(&c.Server.ServerMode, "SERVER_MODE"); err != nil {
		return err
	}

	if v := strings.TrimSpace(os.Getenv("MIN_SCORE")); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%w: MIN_SCORE=%q", ErrInvalidConfig, v)
		}
		c.Retrieval.MinScore = float32(f)
	}

	return nil
}

// Validate fails fast before any network call when a required value is
// missing. Only the settings the pipeline needs are checked.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if strings.TrimSpace(c.Index.Name) == "" {
		missing = append(missing, "INDEX_NAME")
	}
	if c.LLM.Provider == ProviderCompat && strings.TrimSpace(c.LLM.BaseURL) == "" {
		missing = append(missing, "LLM_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderCompat:
	default:
		return fmt.Errorf("%w: LLM_PROVIDER must be %q or %q, got %q",
			ErrInvalidConfig, ProviderOpenAI, ProviderCompat, c.LLM.Provider)
	}

	switch c.Qdrant.Store {
	case StoreQdrant, StoreMemory:
	default:
		return fmt.Errorf("%w: VECTOR_STORE must be %q or %q, got %q",
			ErrInvalidConfig, StoreQdrant, StoreMemory, c.Qdrant.Store)
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalidConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidConfig)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: TOP_K must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Index.Namespace) == "" {
		return fmt.Errorf("%w: NAMESPACE must not be empty", ErrInvalidConfig)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
	}
	*dst = i
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v)
	}
	*dst = b
	return nil
}
