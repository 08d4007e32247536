// Package generation produces the final answer from retrieved context.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/contextiq/internal/metrics"
)

// NoContextAnswer is returned without calling the model when retrieval found nothing.
const NoContextAnswer = "I could not find relevant context in the document."

// Completer sends a single user prompt to a chat model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator builds the grounded prompt and asks the chat model.
type Generator struct {
	completer Completer
	logger    *slog.Logger
}

// NewGenerator creates a Generator. A nil logger uses slog.Default().
func NewGenerator(completer Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{completer: completer, logger: logger}
}

// Answer answers query from contexts only. With no contexts it returns
// NoContextAnswer and makes no model call.
func (g *Generator) Answer(ctx context.Context, query string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		g.logger.Debug("no context retrieved, skipping model call")
		return NoContextAnswer, nil
	}

	start := time.Now()
	answer, err := g.completer.Complete(ctx, BuildPrompt(query, contexts))
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	g.logger.Debug("answer generated", "contexts", len(contexts), "duration", time.Since(start))
	return strings.TrimSpace(answer), nil
}

// BuildPrompt renders the single-turn prompt sent to the model.
func BuildPrompt(query string, contexts []string) string {
	var b strings.Builder
	b.WriteString("You are a PDF assistant. Answer the question using ONLY the context below. ")
	b.WriteString("If the answer is not in the context, say you do not know.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(contexts, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
