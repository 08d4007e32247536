package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("INDEX_NAME", "contextiq")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 512, cfg.LLM.ChatMaxTokens)
	assert.Equal(t, "aws", cfg.Index.Cloud)
	assert.Equal(t, "us-east-1", cfg.Index.Region)
	assert.Equal(t, "latest", cfg.Index.Namespace)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 150, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contextiq.yaml")
	yml := `
index:
  name: from-file
  namespace: docs
chunking:
  size: 400
  overlap: 40
retrieval:
  top_k: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("INDEX_NAME", "from-env")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("MIN_SCORE", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Index.Name)
	assert.Equal(t, "docs", cfg.Index.Namespace)
	assert.Equal(t, 400, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.25, cfg.Retrieval.MinScore, 1e-6)
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CHUNK_SIZE", "big")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.LLM.APIKey = "sk-test"
		cfg.Index.Name = "contextiq"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		wantMsg string
	}{
		{"valid", func(*Config) {}, nil, ""},
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }, ErrMissingConfig, "OPENAI_API_KEY"},
		{"missing index", func(c *Config) { c.Index.Name = " " }, ErrMissingConfig, "INDEX_NAME"},
		{"compat without base url", func(c *Config) { c.LLM.Provider = ProviderCompat }, ErrMissingConfig, "LLM_BASE_URL"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gemini" }, ErrInvalidConfig, "LLM_PROVIDER"},
		{"unknown store", func(c *Config) { c.Qdrant.Store = "pinecone" }, ErrInvalidConfig, "VECTOR_STORE"},
		{"overlap too large", func(c *Config) { c.Chunking.Overlap = 1000 }, ErrInvalidConfig, "CHUNK_OVERLAP"},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }, ErrInvalidConfig, "TOP_K"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}
