package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	ghclient "github.com/bull/contextiq/internal/github"
	"github.com/bull/contextiq/internal/rag"
)

var (
	errNoSource       = errors.New("set exactly one of path or github")
	errGitHubDisabled = errors.New("github sources are not enabled on this server")
)

// toolError wraps a pipeline failure with the message a user can act on.
func toolError(err error) error {
	return fmt.Errorf("%s: %w", rag.Explain(err), err)
}

// makeAskHandler creates the ask_document tool handler.
func makeAskHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, AskDocumentInput,
) (*mcp.CallToolResult, AskDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocumentInput) (
		*mcp.CallToolResult, AskDocumentOutput, error,
	) {
		question := strings.TrimSpace(input.Question)
		if question == "" {
			return nil, AskDocumentOutput{}, errors.New("question is required")
		}

		answer, err := svc.Ask(ctx, question, input.Namespace, input.TopK)
		if err != nil {
			return nil, AskDocumentOutput{}, toolError(err)
		}

		sources := make([]SourceResult, 0, len(answer.Sources))
		for _, s := range answer.Sources {
			sources = append(sources, SourceResult{ID: s.ID, Text: s.Text, Score: s.Score})
		}
		return nil, AskDocumentOutput{Answer: answer.Text, Sources: sources}, nil
	}
}

// makeIngestHandler creates the ingest_document tool handler.
// Local files are read from disk; GitHub files are downloaded at the
// latest commit touching them unless a ref is given.
func makeIngestHandler(svc Service, fetcher Fetcher) func(
	context.Context, *mcp.CallToolRequest, IngestDocumentInput,
) (*mcp.CallToolResult, IngestDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestDocumentInput) (
		*mcp.CallToolResult, IngestDocumentOutput, error,
	) {
		path := strings.TrimSpace(input.Path)
		ref := strings.TrimSpace(input.GitHub)
		if (path == "") == (ref == "") {
			return nil, IngestDocumentOutput{}, errNoSource
		}

		var (
			doc    rag.Document
			commit string
		)
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, IngestDocumentOutput{}, fmt.Errorf("failed to read %s: %w", path, err)
			}
			doc = rag.Document{Name: filepath.Base(path), Data: data}
		} else {
			if fetcher == nil {
				return nil, IngestDocumentOutput{}, errGitHubDisabled
			}
			src, err := ghclient.ParseSource(ref)
			if err != nil {
				return nil, IngestDocumentOutput{}, err
			}
			file, err := fetcher.Fetch(ctx, src)
			if err != nil {
				return nil, IngestDocumentOutput{}, err
			}
			doc = rag.Document{Name: file.Name, Data: file.Content}
			commit = file.CommitSHA
		}

		result, err := svc.Ingest(ctx, doc, input.Namespace)
		if err != nil {
			return nil, IngestDocumentOutput{}, toolError(err)
		}

		return nil, IngestDocumentOutput{
			Index:        result.Index,
			Namespace:    result.Namespace,
			DocumentID:   result.DocumentID,
			Chunks:       result.Chunks,
			Characters:   result.Characters,
			SourceCommit: commit,
		}, nil
	}
}

// makeStatusHandler creates the document_status tool handler.
func makeStatusHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		status, err := svc.Status(ctx, input.Namespace)
		if err != nil {
			return nil, StatusOutput{}, toolError(err)
		}

		out := StatusOutput{
			Index:     status.Index,
			Namespace: status.Namespace,
			Dimension: status.Dimension,
			Records:   status.Records,
		}
		if status.Records == 0 {
			out.Message = "No document ingested in this namespace. Use ingest_document first."
		}
		return nil, out, nil
	}
}
