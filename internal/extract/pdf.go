package extract

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/starford/raido/internal/apperr"
)

// PDFExtractor extracts plain text from PDF files.
type PDFExtractor struct {
	// Validate runs a structural check on each file before text
	// extraction, so malformed PDFs fail with a clear error instead of
	// producing partial garbage text.
	Validate bool
}

// NewPDFExtractor returns an extractor with validation enabled.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{Validate: true}
}

// Extract opens the PDF at absPath and returns the plain text of every
// page. Pages whose text cannot be decoded yield an empty Text rather
// than failing the document; only a document-level failure (unreadable,
// encrypted, structurally invalid) is an error.
func (e *PDFExtractor) Extract(ctx context.Context, absPath string) ([]Page, error) {
	if e.Validate {
		if err := api.ValidateFile(absPath, nil); err != nil {
			return nil, fmt.Errorf("extract: validate %s: %v: %w", absPath, err, apperr.ErrExtraction)
		}
	}

	f, r, err := pdf.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract: open %s: %v: %w", absPath, err, apperr.ErrExtraction)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract: %s: %w", absPath, err)
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{Index: i - 1})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// Undecodable page content; index the document's other pages.
			pages = append(pages, Page{Index: i - 1})
			continue
		}
		pages = append(pages, Page{Index: i - 1, Text: text})
	}
	return pages, nil
}
