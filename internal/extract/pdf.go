package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the text of every page and joins pages with a blank line.
// Pages without a text layer contribute an empty string.
func PDFText(data []byte) (text string, err error) {
	// The parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		pages = append(pages, pageText(reader.Page(i)))
	}
	return strings.Join(pages, PageSeparator), nil
}

func pageText(page pdf.Page) string {
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return content
}
