package api

import (
	"errors"
	"net/http"

	"github.com/bull/contextiq/internal/config"
	"github.com/bull/contextiq/internal/extract"
	"github.com/bull/contextiq/internal/provider"
	"github.com/bull/contextiq/internal/rag"
	"github.com/bull/contextiq/internal/storage"
)

type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// errorMappings is checked in order; the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{config.ErrMissingConfig, http.StatusInternalServerError, "configuration_error"},
	{config.ErrInvalidConfig, http.StatusInternalServerError, "configuration_error"},
	{rag.ErrNoExtractableText, http.StatusUnprocessableEntity, "no_extractable_text"},
	{extract.ErrExtraction, http.StatusUnprocessableEntity, "extraction_failed"},
	{storage.ErrDimensionMismatch, http.StatusConflict, "dimension_mismatch"},
	{provider.ErrAuth, http.StatusBadGateway, "provider_auth_failed"},
	{provider.ErrRequest, http.StatusBadGateway, "provider_request_failed"},
	{storage.ErrQdrantUnreachable, http.StatusServiceUnavailable, "vector_store_unavailable"},
}

func classify(err error) (int, string, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.status, m.code, true
		}
	}
	return http.StatusInternalServerError, "internal_error", false
}

// handlePipelineError writes an actionable message for known errors and a
// generic one for everything else.
func (s *Server) handlePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, known := classify(err)
	if !known {
		s.logger.Error("internal error", "path", r.URL.Path, "error", err)
		writeError(w, status, code, "internal error")
		return
	}
	s.logger.Warn("request failed", "path", r.URL.Path, "code", code, "error", err)
	writeError(w, status, code, rag.Explain(err))
}
