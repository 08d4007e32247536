package embedding

import (
	"context"
	"fmt"

	"github.com/bull/contextiq/internal/provider"
)

// ProbeText is embedded once at startup to learn the model's output dimension.
const ProbeText = "dimension probe"

// Probe embeds ProbeText and returns the vector length. The result is meant
// to be passed explicitly to the pipeline, not stored globally.
func Probe(ctx context.Context, e Embedder) (int, error) {
	vec, err := e.EmbedQuery(ctx, ProbeText)
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("probe embedding dimension: %w: empty vector", provider.ErrRequest)
	}
	return len(vec), nil
}
