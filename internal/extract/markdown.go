package extract

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor renders Markdown to plain text, one paragraph per block.
type MarkdownExtractor struct {
	md goldmark.Markdown
}

// NewMarkdownExtractor creates an extractor backed by a goldmark parser.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{md: goldmark.New()}
}

// Text drops Markdown syntax and keeps the readable text. Blocks (headings,
// paragraphs, list items, code blocks) are separated by a blank line.
func (m *MarkdownExtractor) Text(source []byte) (string, error) {
	doc := m.md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				buf.WriteString(PageSeparator)
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.URL(source))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				buf.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	return normalizeBlocks(buf.String()), nil
}

// normalizeBlocks trims every block and collapses runs of empty blocks.
func normalizeBlocks(s string) string {
	blocks := strings.Split(s, PageSeparator)
	kept := blocks[:0]
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, PageSeparator)
}
