package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the extracted plain text of one PDF page; Number starts at 1.
type Page struct {
	Number int
	Text   string
}

// ExtractPages pulls per-page plain text out of an in-memory PDF. Pages
// without extractable text are omitted; an error is returned only when the
// document itself cannot be opened.
func ExtractPages(raw []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		text := strings.TrimSpace(content)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
