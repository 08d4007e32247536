// Package mcp exposes document ingestion and question answering as MCP tools.
package mcp

// AskDocumentInput defines the input parameters for the ask_document tool.
type AskDocumentInput struct {
	// Question is answered from the ingested document only.
	Question string `json:"question" jsonschema:"the question to answer from the ingested document"`
	// TopK is the number of chunks retrieved as context.
	TopK int `json:"top_k,omitempty" jsonschema:"number of document chunks to retrieve as context (default from server config)"`
	// Namespace selects the document set; empty uses the server default.
	Namespace string `json:"namespace,omitempty" jsonschema:"document namespace to search (default from server config)"`
}

// AskDocumentOutput contains the grounded answer.
type AskDocumentOutput struct {
	// Answer is the generated answer or the fallback message.
	Answer string `json:"answer"`
	// Sources lists the chunks the answer was generated from.
	Sources []SourceResult `json:"sources"`
}

// SourceResult is one retrieved chunk.
type SourceResult struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// IngestDocumentInput defines the input parameters for the ingest_document tool.
// Exactly one of Path and GitHub must be set.
type IngestDocumentInput struct {
	// Path is a file on the server's filesystem.
	Path string `json:"path,omitempty" jsonschema:"local path of a PDF, markdown or text file"`
	// GitHub is owner/repo/path[@ref].
	GitHub string `json:"github,omitempty" jsonschema:"GitHub file reference as owner/repo/path with optional @ref"`
	// Namespace is replaced by the new document.
	Namespace string `json:"namespace,omitempty" jsonschema:"namespace to replace with this document (default from server config)"`
}

// IngestDocumentOutput summarizes a completed ingestion.
type IngestDocumentOutput struct {
	Index      string `json:"index"`
	Namespace  string `json:"namespace"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Characters int    `json:"characters"`
	// SourceCommit is set for GitHub sources.
	SourceCommit string `json:"source_commit,omitempty"`
}

// StatusInput defines the input parameters for the document_status tool.
type StatusInput struct {
	Namespace string `json:"namespace,omitempty" jsonschema:"namespace to inspect (default from server config)"`
}

// StatusOutput reports what is stored for a namespace.
type StatusOutput struct {
	Index     string `json:"index"`
	Namespace string `json:"namespace"`
	Dimension int    `json:"dimension"`
	Records   int    `json:"records"`
	// Message is set when the namespace holds no document.
	Message string `json:"message,omitempty"`
}
