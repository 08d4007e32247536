// Package chunker splits extracted document text into overlapping chunks.
//
// The splitter is recursive: it tries the coarsest separator first and only
// re-splits pieces that are still too large with the next, finer separator.
// The empty separator splits between characters and is the last resort.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters shared by adjacent chunks.
const DefaultChunkOverlap = 150

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter splits text into chunks of at most chunkSize characters.
// Lengths are counted in Unicode code points, not bytes.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the number of characters carried over between chunks.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator list, coarsest first.
func WithSeparators(separators ...string) Option {
	return func(s *Splitter) {
		if len(separators) > 0 {
			s.separators = append([]string(nil), separators...)
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room for new content in every chunk
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// ChunkSize returns the configured maximum chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the ordered chunks of text. Identical input always yields
// identical output. Whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var chunks, pending []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(finer) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, finer)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge greedily packs small pieces into chunks. When a chunk is emitted,
// pieces are dropped from its front until at most overlap characters remain;
// those become the head of the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks, current []string
	total := 0

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			if chunk := joinPieces(current); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk := joinPieces(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepingSeparator splits text on sep and re-attaches each separator to
// the start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, part := range parts[1:] {
		pieces = append(pieces, sep+part)
	}
	return pieces
}

func joinPieces(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}
