package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		s := New()
		assert.Equal(t, DefaultChunkSize, s.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, s.Overlap())
		assert.Equal(t, DefaultSeparators, s.separators)
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		s := New(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, s.Overlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		s := New(WithChunkSize(0), WithOverlap(-1), WithSeparators())
		assert.Equal(t, DefaultChunkSize, s.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, s.Overlap())
		assert.Equal(t, DefaultSeparators, s.separators)
	})
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	text := "The sky is blue. Grass is green."
	chunks := New(WithChunkSize(1000), WithOverlap(150)).Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, New().Split(""))
	assert.Empty(t, New().Split(" \n\n \n "))
}

func TestSplit_PrefersParagraphs(t *testing.T) {
	text := "para one.\n\npara two."
	chunks := New(WithChunkSize(12), WithOverlap(0)).Split(text)
	assert.Equal(t, []string{"para one.", "para two."}, chunks)
}

func TestSplit_CharacterFallback(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxy"
	chunks := New(WithChunkSize(10), WithOverlap(3)).Split(text)
	assert.Equal(t, []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxy"}, chunks)
}

func TestSplit_OversizedParagraphIsResplit(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 30)) // 149 chars, no newlines
	text := "short intro\n\n" + long

	chunks := New(WithChunkSize(40), WithOverlap(0)).Split(text)
	require.Greater(t, len(chunks), 2)
	assert.Equal(t, "short intro", chunks[0])
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 40, "chunk %q too long", c)
		assert.False(t, strings.Contains(c, "wordword"), "split must not cut inside words: %q", c)
	}
}

func TestSplit_ChunksRespectSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "Sentence number %d talks about something.", i)
		if i%7 == 6 {
			b.WriteString("\n\n")
		} else if i%3 == 2 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}

	s := New(WithChunkSize(200), WithOverlap(40))
	for _, c := range s.Split(b.String()) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200)
		assert.Equal(t, strings.TrimSpace(c), c)
		assert.NotEmpty(t, c)
	}
}

func TestSplit_AdjacentChunksOverlap(t *testing.T) {
	words := make([]string, 60)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	text := strings.Join(words, " ")

	chunks := New(WithChunkSize(50), WithOverlap(15)).Split(text)
	require.Greater(t, len(chunks), 2)

	for i := 0; i+1 < len(chunks); i++ {
		shared := sharedBoundary(chunks[i], chunks[i+1])
		assert.Greater(t, shared, 0, "chunks %d and %d do not overlap", i, i+1)
		assert.LessOrEqual(t, shared, 15, "overlap between %d and %d exceeds budget", i, i+1)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet.\nConsectetur adipiscing elit.\n\n", 50)
	s := New(WithChunkSize(120), WithOverlap(30))
	assert.Equal(t, s.Split(text), s.Split(text))
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("é", 12)
	chunks := New(WithChunkSize(6), WithOverlap(0)).Split(text)
	assert.Equal(t, []string{"éééééé", "éééééé"}, chunks)
}

func TestSplitKeepingSeparator(t *testing.T) {
	assert.Equal(t, []string{"a", " b", " c"}, splitKeepingSeparator("a b c", " "))
	assert.Equal(t, []string{"\n\nb"}, splitKeepingSeparator("\n\nb", "\n\n"))
	assert.Equal(t, []string{"x", "y"}, splitKeepingSeparator("xy", ""))
}

// sharedBoundary returns the length of the longest suffix of a that is also a
// prefix of b.
func sharedBoundary(a, b string) int {
	for n := min(len(a), len(b)); n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) {
			return n
		}
	}
	return 0
}
