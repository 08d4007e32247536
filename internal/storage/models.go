package storage

// Record metadata keys. MetadataText is always present.
const (
	MetadataText       = "text"
	MetadataChunkIndex = "chunk_index"
	MetadataDocumentID = "document_id"
	MetadataSource     = "source" // file name, when known
)

// MetricCosine is the only similarity metric indexes are created with.
const MetricCosine = "cosine"

// DefaultUpsertBatchSize is the number of records written per backend call.
const DefaultUpsertBatchSize = 100

// Record is one embedded chunk as stored in a namespace.
type Record struct {
	ID       string            // "{namespace}-{document uuid hex}-{chunk index}"
	Values   []float32         // embedding, length == index dimension
	Metadata map[string]string // at least MetadataText
}

// Match is a query hit, ordered by descending similarity.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Text returns the chunk text stored with the match, if any.
func (m Match) Text() (string, bool) {
	text, ok := m.Metadata[MetadataText]
	return text, ok && text != ""
}

// IndexSpec describes an index to create.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    string
	Cloud     string // placement hint; informational for self-hosted backends
	Region    string
}

// IndexDescription is what the backend reports about an existing index.
// Dimension is 0 when the backend cannot report it.
type IndexDescription struct {
	Name      string
	Dimension int
}

// Index is a resolved, verified index handle.
type Index struct {
	Name      string
	Dimension int
}
