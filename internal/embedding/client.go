package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bull/contextiq/internal/provider"
)

// Client wraps the OpenAI client shared by embedding and answer generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client for the given key. baseURL is optional.
// SDK-level retries are disabled; rate limits are retried by the embedder.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", provider.ErrAuth)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., answer generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
