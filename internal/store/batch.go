package store

import (
	"database/sql"
	"fmt"

	"github.com/starford/raido/internal/apperr"
)

// Entry is one posting scheduled for insertion: an occurrence of Term
// on a page of the document being written.
type Entry struct {
	Term  string
	Page  int
	Start int
	End   int
}

// Batch groups store mutations into one atomic commit. Nothing inside
// a batch is visible to Lookup until Commit returns nil; on failure or
// rollback the store keeps its pre-batch state. Exactly one batch may
// be open at a time.
type Batch struct {
	s    *Store
	tx   txLike
	done bool
}

// txLike is the slice of sql.Tx the batch uses; tests substitute a
// failing implementation to exercise commit-failure handling.
type txLike interface {
	Exec(query string, args ...any) (execResult, error)
	Commit() error
	Rollback() error
}

type execResult interface {
	LastInsertId() (int64, error)
}

// sqlTx adapts *sql.Tx to txLike.
type sqlTx struct{ tx *sql.Tx }

func (t sqlTx) Exec(query string, args ...any) (execResult, error) {
	res, err := t.tx.Exec(query, args...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (t sqlTx) Commit() error   { return t.tx.Commit() }
func (t sqlTx) Rollback() error { return t.tx.Rollback() }

// Begin opens a batch, blocking until any in-flight batch finishes.
func (s *Store) Begin() (*Batch, error) {
	s.mu.Lock()
	tx, err := s.conn.Begin()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("store: begin batch: %w", err)
	}
	return &Batch{s: s, tx: sqlTx{tx}}, nil
}

// DeleteDocument removes the document record at path together with all
// of its pages and postings. Deleting an unknown path is a no-op.
func (b *Batch) DeleteDocument(path string) error {
	_, err := b.tx.Exec(`
		DELETE FROM postings WHERE doc_id IN (SELECT id FROM documents WHERE path = ?)
	`, path)
	if err != nil {
		return fmt.Errorf("store: delete postings: %w", err)
	}
	if _, err := b.tx.Exec(`
		DELETE FROM pages WHERE doc_id IN (SELECT id FROM documents WHERE path = ?)
	`, path); err != nil {
		return fmt.Errorf("store: delete pages: %w", err)
	}
	if _, err := b.tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	return nil
}

// PutDocument writes the document record plus its page text and
// postings, replacing any previous content for the same path so no
// stale postings survive a reindex of a changed file.
func (b *Batch) PutDocument(path, fingerprint string, pages []PageText, entries []Entry) error {
	if err := b.DeleteDocument(path); err != nil {
		return err
	}
	res, err := b.tx.Exec(`
		INSERT INTO documents (path, fingerprint) VALUES (?, ?)
	`, path, fingerprint)
	if err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: document id: %w", err)
	}
	for _, pg := range pages {
		if _, err := b.tx.Exec(`
			INSERT INTO pages (doc_id, page, text) VALUES (?, ?, ?)
		`, docID, pg.Page, pg.Text); err != nil {
			return fmt.Errorf("store: insert page: %w", err)
		}
	}
	for _, e := range entries {
		if _, err := b.tx.Exec(`
			INSERT INTO postings (term, doc_id, page, start_offset, end_offset) VALUES (?, ?, ?, ?, ?)
		`, e.Term, docID, e.Page, e.Start, e.End); err != nil {
			return fmt.Errorf("store: insert posting: %w", err)
		}
	}
	return nil
}

// Commit durably persists the batch. A failure rolls the store back to
// its pre-batch state and is reported as apperr.ErrCommitFailed.
func (b *Batch) Commit() error {
	if b.done {
		return fmt.Errorf("store: batch already finished")
	}
	b.done = true
	defer b.s.mu.Unlock()
	if err := b.tx.Commit(); err != nil {
		// SQLite rolls an unfinished transaction back on its own, but
		// be explicit so the contract is visible here.
		_ = b.tx.Rollback()
		return fmt.Errorf("store: %w: %v", apperr.ErrCommitFailed, err)
	}
	return nil
}

// Rollback discards the batch. Safe to defer after Commit.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	defer b.s.mu.Unlock()
	return b.tx.Rollback()
}
