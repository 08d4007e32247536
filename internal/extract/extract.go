// Package extract converts uploaded document bytes into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrExtraction means the document could not be opened at all.
// Documents that open but contain no text are not an extraction error.
var ErrExtraction = errors.New("document could not be parsed")

// PageSeparator joins the text of consecutive pages or sections.
const PageSeparator = "\n\n"

// Format identifies how a document is decoded.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

var pdfMagic = []byte("%PDF-")

// Extractor dispatches on the document format.
type Extractor struct {
	markdown *MarkdownExtractor
}

// New creates an extractor for all supported formats.
func New() *Extractor {
	return &Extractor{markdown: NewMarkdownExtractor()}
}

// Detect picks the format from the PDF header, then the file name. Without an
// extension, content opening with an ATX heading is treated as Markdown.
func Detect(name string, data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if bytes.HasPrefix(trimmed, pdfMagic) {
		return FormatPDF
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".md", ".markdown":
		return FormatMarkdown
	case "":
		if startsWithHeading(trimmed) {
			return FormatMarkdown
		}
	}
	return FormatText
}

// startsWithHeading reports whether data opens with "#" to "######" followed
// by a space.
func startsWithHeading(data []byte) bool {
	level := 0
	for level < len(data) && data[level] == '#' {
		level++
	}
	return level >= 1 && level <= 6 && level < len(data) && data[level] == ' '
}

// Extract returns the plain text of data. name is an optional hint (an
// upload's file name) used to recognise Markdown.
func (e *Extractor) Extract(name string, data []byte) (string, error) {
	switch Detect(name, data) {
	case FormatPDF:
		return PDFText(data)
	case FormatMarkdown:
		return e.markdown.Text(data)
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: not a PDF and not UTF-8 text", ErrExtraction)
		}
		return string(data), nil
	}
}
