package provider

import (
	"errors"
	"fmt"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &goopenai.APIError{HTTPStatusCode: 401, Message: "bad key"}, ErrAuth},
		{"forbidden", &goopenai.RequestError{HTTPStatusCode: 403}, ErrAuth},
		{"rate limited", &goopenai.APIError{HTTPStatusCode: 429}, ErrRequest},
		{"server error", &goopenai.APIError{HTTPStatusCode: 503}, ErrRequest},
		{"network", errors.New("dial tcp: connection refused"), ErrRequest},
		{"wrapped", fmt.Errorf("batch 0-3: %w", &goopenai.APIError{HTTPStatusCode: 401}), ErrAuth},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify("embed", tc.err)
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), "embed")
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, Classify("chat", nil))
}

func TestClassify_AlreadyClassified(t *testing.T) {
	original := fmt.Errorf("chat: %w", ErrAuth)
	assert.Same(t, original, Classify("embed", original))
}

func TestIsRateLimit(t *testing.T) {
	assert.True(t, IsRateLimit(&goopenai.APIError{HTTPStatusCode: 429}))
	assert.False(t, IsRateLimit(&goopenai.APIError{HTTPStatusCode: 500}))
	assert.False(t, IsRateLimit(errors.New("boom")))
}
