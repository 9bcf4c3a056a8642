// Package extract defines the text-extraction contract the indexer
// consumes, plus the production PDF implementation. The indexing core
// never parses PDFs itself; any type satisfying Extractor can feed it.
package extract

import "context"

// Page is the extracted text of one document page. Index is 0-based.
type Page struct {
	Index int
	Text  string
}

// Extractor yields per-page text for a document on disk.
// Implementations report unreadable or malformed documents with errors
// wrapping apperr.ErrExtraction so the caller can skip the document and
// keep the run alive.
type Extractor interface {
	Extract(ctx context.Context, absPath string) ([]Page, error)
}
