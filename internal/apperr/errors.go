// Package apperr defines the sentinel errors shared across the indexing
// and search core. Callers classify failures with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound reports a missing document record.
	ErrNotFound = errors.New("not found")

	// ErrIndexCorrupt reports that the on-disk index failed its
	// integrity check at open. The store is never repaired silently.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrExtraction reports that a document's text could not be
	// obtained. Per-document: the surrounding run records it and
	// continues.
	ErrExtraction = errors.New("extraction failed")

	// ErrCommitFailed reports that an index batch could not be durably
	// written. The store remains at its pre-batch state.
	ErrCommitFailed = errors.New("commit failed")

	// ErrQuerySyntax reports a query that yields no searchable terms.
	ErrQuerySyntax = errors.New("invalid query")
)
