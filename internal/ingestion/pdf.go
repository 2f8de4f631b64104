package ingestion

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Page is the plain text of a single PDF page.
type Page struct {
	// Number is the 1-based page number.
	Number int
	// Text is the extracted plain text of the page.
	Text string
}

// PageExtractor extracts the text of each page of a PDF file.
// Implementations return pages in document order.
type PageExtractor interface {
	ExtractPages(path string) ([]Page, error)
}

// pdfExtractor is a PageExtractor backed by the ledongthuc/pdf reader.
type pdfExtractor struct{}

// NewPDFExtractor returns a PageExtractor that reads real PDF files.
func NewPDFExtractor() PageExtractor {
	return pdfExtractor{}
}

// ExtractPages opens the PDF at path and extracts plain text page by page.
// Pages whose content cannot be decoded are skipped rather than failing the
// whole file; scanned-image pages simply produce no text.
func (pdfExtractor) ExtractPages(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: open %s: %w", path, err)
	}
	defer f.Close()

	pages := make([]Page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
