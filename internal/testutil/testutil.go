// Package testutil provides shared test helpers: temporary index
// stores, corpus directories, and a scripted extractor so indexing
// tests run on plain-text fixtures instead of real PDFs.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/source"
	"github.com/starford/raido/internal/store"
)

// TestStore creates a temporary index store that is cleaned up
// automatically.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "raido-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestCorpus creates a temporary corpus directory with a Scanner.
func TestCorpus(t *testing.T) (string, *source.Scanner) {
	t.Helper()
	dir := t.TempDir()
	scanner, err := source.NewScanner(dir)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	return dir, scanner
}

// WriteDoc writes a fixture document under root. Despite the .pdf
// extension the content is plain text, read back by PlainTextExtractor;
// pages are separated by form feed characters.
func WriteDoc(t *testing.T, root, rel string, pages ...string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(strings.Join(pages, "\f")), 0o644); err != nil {
		t.Fatal(err)
	}
}

// PlainTextExtractor implements extract.Extractor over plain-text
// fixture files. Documents listed in Fail (by base name) error with
// apperr.ErrExtraction, and Calls records the base name of every
// successful extraction in order.
type PlainTextExtractor struct {
	Fail  map[string]bool
	Calls []string
}

// Extract reads absPath and splits it into pages on form feeds.
func (e *PlainTextExtractor) Extract(_ context.Context, absPath string) ([]extract.Page, error) {
	base := filepath.Base(absPath)
	if e.Fail[base] {
		return nil, fmt.Errorf("testutil: scripted failure for %s: %w", base, apperr.ErrExtraction)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("testutil: read %s: %v: %w", absPath, err, apperr.ErrExtraction)
	}
	e.Calls = append(e.Calls, base)

	var pages []extract.Page
	for i, text := range strings.Split(string(data), "\f") {
		pages = append(pages, extract.Page{Index: i, Text: text})
	}
	return pages, nil
}
