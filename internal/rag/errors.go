package rag

import (
	"errors"

	"github.com/bull/contextiq/internal/config"
	"github.com/bull/contextiq/internal/extract"
	"github.com/bull/contextiq/internal/provider"
	"github.com/bull/contextiq/internal/storage"
)

// ErrNoExtractableText means the document opened but has no text layer,
// typically a scanned PDF.
var ErrNoExtractableText = errors.New("no extractable text in document")

// Explain turns a pipeline error into an instruction the user can act on.
func Explain(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrMissingConfig), errors.Is(err, config.ErrInvalidConfig):
		return "Configuration problem: " + err.Error() + ". Set the missing values in your environment or .env file and restart."
	case errors.Is(err, ErrNoExtractableText):
		return "No extractable text found in the document. It may be a scanned PDF; run OCR on it and upload again."
	case errors.Is(err, extract.ErrExtraction):
		return "The document could not be read. Upload a valid, unencrypted PDF or a UTF-8 text file."
	case errors.Is(err, storage.ErrDimensionMismatch):
		return "The vector index dimension does not match the embedding model. Use a different INDEX_NAME or switch back to the model the index was built with."
	case errors.Is(err, provider.ErrAuth):
		return "The model provider rejected the credentials. Check OPENAI_API_KEY and LLM_PROVIDER."
	case errors.Is(err, provider.ErrRequest):
		return "The model provider request failed. Check LLM_BASE_URL, the model names and your quota, then try again."
	case errors.Is(err, storage.ErrQdrantUnreachable):
		return "The vector store is unreachable. Check QDRANT_HOST and QDRANT_PORT."
	default:
		return "Unexpected error: " + err.Error()
	}
}
