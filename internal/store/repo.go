package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
)

// DocumentRecord is one indexed corpus file.
type DocumentRecord struct {
	ID          int64
	Path        string
	Fingerprint string
	IndexedAt   time.Time
}

// PageText is the stored text of one page, kept so search matches can
// be sliced back out of the original text.
type PageText struct {
	Page int
	Text string
}

// Posting is one recorded occurrence of a term. Start and End are rune
// offsets into the page text.
type Posting struct {
	Path  string
	Page  int
	Start int
	End   int
}

// Stats summarizes the index content.
type Stats struct {
	Documents int `json:"documents"`
	Terms     int `json:"terms"`
	Postings  int `json:"postings"`
}

// Lookup returns every posting for term, in document path then page
// then offset order. Unknown terms yield an empty slice, not an error.
func (s *Store) Lookup(term string) ([]Posting, error) {
	rows, err := s.conn.Query(`
		SELECT d.path, p.page, p.start_offset, p.end_offset
		FROM postings p
		JOIN documents d ON d.id = p.doc_id
		WHERE p.term = ?
		ORDER BY d.path, p.page, p.start_offset
	`, term)
	if err != nil {
		return nil, fmt.Errorf("store: lookup %q: %w", term, err)
	}
	defer rows.Close()

	out := []Posting{}
	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.Path, &p.Page, &p.Start, &p.End); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetDocument returns the record for path, or apperr.ErrNotFound.
func (s *Store) GetDocument(path string) (DocumentRecord, error) {
	var d DocumentRecord
	err := s.conn.QueryRow(`
		SELECT id, path, fingerprint, indexed_at FROM documents WHERE path = ?
	`, path).Scan(&d.ID, &d.Path, &d.Fingerprint, &d.IndexedAt)
	if err == sql.ErrNoRows {
		return DocumentRecord{}, fmt.Errorf("store: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("store: get document: %w", err)
	}
	return d, nil
}

// AllFingerprints returns path → fingerprint for every indexed
// document. The updater diffs this against a fresh corpus scan.
func (s *Store) AllFingerprints() (map[string]string, error) {
	rows, err := s.conn.Query(`SELECT path, fingerprint FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("store: all fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, fp string
		if err := rows.Scan(&p, &fp); err != nil {
			return nil, err
		}
		out[p] = fp
	}
	return out, rows.Err()
}

// Documents returns every document record in path order.
func (s *Store) Documents() ([]DocumentRecord, error) {
	rows, err := s.conn.Query(`
		SELECT id, path, fingerprint, indexed_at FROM documents ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("store: documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRecord
	for rows.Next() {
		var d DocumentRecord
		if err := rows.Scan(&d.ID, &d.Path, &d.Fingerprint, &d.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PageText returns the stored text of one page of a document.
func (s *Store) PageText(path string, page int) (string, error) {
	var text string
	err := s.conn.QueryRow(`
		SELECT pg.text
		FROM pages pg
		JOIN documents d ON d.id = pg.doc_id
		WHERE d.path = ? AND pg.page = ?
	`, path, page).Scan(&text)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("store: page %s#%d: %w", path, page, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("store: page text: %w", err)
	}
	return text, nil
}

// Stats counts documents, distinct terms, and postings.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	if err := s.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&st.Documents); err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	if err := s.conn.QueryRow(`SELECT count(DISTINCT term) FROM postings`).Scan(&st.Terms); err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	if err := s.conn.QueryRow(`SELECT count(*) FROM postings`).Scan(&st.Postings); err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}
