// Package provider classifies failures returned by the embedding and chat
// model SDKs into the two error kinds the rest of the system reasons about.
package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	goopenai "github.com/sashabaranov/go-openai"
)

var (
	// ErrAuth means the provider rejected or never received credentials.
	ErrAuth = errors.New("provider authentication failed")
	// ErrRequest covers every other provider failure (network, 5xx, 4xx, rate limits).
	ErrRequest = errors.New("provider request failed")
)

// Classify wraps err with ErrAuth or ErrRequest depending on the HTTP status
// reported by either SDK. op names the failed operation ("embed", "chat").
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrRequest) {
		return err
	}

	status := StatusCode(err)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%s: %w: %v", op, ErrAuth, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrRequest, err)
}

// StatusCode extracts the HTTP status from an SDK error, or 0 when the error
// did not come from an HTTP response.
func StatusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	var compatAPIErr *goopenai.APIError
	if errors.As(err, &compatAPIErr) {
		return compatAPIErr.HTTPStatusCode
	}

	var compatReqErr *goopenai.RequestError
	if errors.As(err, &compatReqErr) {
		return compatReqErr.HTTPStatusCode
	}

	return 0
}

// IsRateLimit reports whether err is an HTTP 429 from either SDK.
func IsRateLimit(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}
