package github

import (
	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// NewClient creates a GitHub client with rate limiting. token is optional;
// when set, the client is authenticated for higher rate limits.
func NewClient(token string) (*Client, error) {
	// Handles both primary and secondary (abuse detection) rate limits by
	// sleeping until the limit resets
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	return &Client{Client: ghClient}, nil
}
