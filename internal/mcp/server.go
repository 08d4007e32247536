package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	ghclient "github.com/bull/contextiq/internal/github"
	"github.com/bull/contextiq/internal/rag"
)

// Service is the pipeline surface the tools call into.
type Service interface {
	Ingest(ctx context.Context, doc rag.Document, namespace string) (*rag.IngestResult, error)
	Ask(ctx context.Context, query, namespace string, topK int) (*rag.Answer, error)
	Status(ctx context.Context, namespace string) (*rag.Status, error)
}

// Fetcher downloads documents from GitHub.
type Fetcher interface {
	Fetch(ctx context.Context, src ghclient.Source) (*ghclient.FetchedFile, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Service Service
	// Fetcher enables GitHub sources in ingest_document; nil disables them.
	Fetcher Fetcher
	// Version is reported to clients.
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "contextiq",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Answer a question using only the ingested document. Returns the answer and the chunks it was based on.",
	}, makeAskHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Replace the document in a namespace with a PDF, markdown or text file from a local path or GitHub.",
	}, makeIngestHandler(cfg.Service, cfg.Fetcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "document_status",
		Description: "Report the index, embedding dimension and record count for a namespace.",
	}, makeStatusHandler(cfg.Service))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
