package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/apperr"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func putDoc(t *testing.T, s *Store, path, fp, text string, entries []Entry) {
	t.Helper()
	b, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer b.Rollback()
	if err := b.PutDocument(path, fp, []PageText{{Page: 0, Text: text}}, entries); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := testStore(t)
	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Documents != 0 || st.Terms != 0 || st.Postings != 0 {
		t.Errorf("fresh store stats = %+v, want zeros", st)
	}
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.db")

	// A database claimed by some other application.
	other, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.conn.Exec(`PRAGMA application_id = 999`); err != nil {
		t.Fatal(err)
	}
	other.Close()

	if _, err := Open(path); !errors.Is(err, apperr.ErrIndexCorrupt) {
		t.Errorf("Open foreign file err = %v, want ErrIndexCorrupt", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	if err := os.WriteFile(path, []byte("this is not a database"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error opening garbage file")
	}
}

func TestLookupUnknownTerm(t *testing.T) {
	s := testStore(t)
	ps, err := s.Lookup("nothing")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(ps) != 0 {
		t.Errorf("unknown term postings = %v, want none", ps)
	}
}

func TestPutAndLookup(t *testing.T) {
	s := testStore(t)
	putDoc(t, s, "a.pdf", "fp1", "hello world", []Entry{
		{Term: "hello", Page: 0, Start: 0, End: 5},
		{Term: "world", Page: 0, Start: 6, End: 11},
	})

	ps, err := s.Lookup("hello")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(ps) != 1 || ps[0].Path != "a.pdf" || ps[0].Page != 0 || ps[0].Start != 0 || ps[0].End != 5 {
		t.Errorf("postings = %+v", ps)
	}

	rec, err := s.GetDocument("a.pdf")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if rec.Fingerprint != "fp1" {
		t.Errorf("fingerprint = %q, want fp1", rec.Fingerprint)
	}

	text, err := s.PageText("a.pdf", 0)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}
	if text != "hello world" {
		t.Errorf("page text = %q", text)
	}
}

func TestReindexReplacesPostings(t *testing.T) {
	s := testStore(t)
	putDoc(t, s, "a.pdf", "fp1", "old text", []Entry{
		{Term: "old", Page: 0, Start: 0, End: 3},
		{Term: "text", Page: 0, Start: 4, End: 8},
	})
	putDoc(t, s, "a.pdf", "fp2", "new text", []Entry{
		{Term: "new", Page: 0, Start: 0, End: 3},
		{Term: "text", Page: 0, Start: 4, End: 8},
	})

	if ps, _ := s.Lookup("old"); len(ps) != 0 {
		t.Errorf("stale postings survived reindex: %+v", ps)
	}
	if ps, _ := s.Lookup("text"); len(ps) != 1 {
		t.Errorf("duplicate postings after reindex: %+v", ps)
	}
	rec, _ := s.GetDocument("a.pdf")
	if rec.Fingerprint != "fp2" {
		t.Errorf("fingerprint = %q, want fp2", rec.Fingerprint)
	}
}

func TestDeleteDocumentPurgesEverything(t *testing.T) {
	s := testStore(t)
	putDoc(t, s, "gone.pdf", "fp", "ephemeral words", []Entry{
		{Term: "ephemeral", Page: 0, Start: 0, End: 9},
		{Term: "words", Page: 0, Start: 10, End: 15},
	})

	b, err := s.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteDocument("gone.pdf"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	for _, term := range []string{"ephemeral", "words"} {
		if ps, _ := s.Lookup(term); len(ps) != 0 {
			t.Errorf("postings for %q survived delete: %+v", term, ps)
		}
	}
	if _, err := s.GetDocument("gone.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetDocument err = %v, want ErrNotFound", err)
	}
	if _, err := s.PageText("gone.pdf", 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("PageText err = %v, want ErrNotFound", err)
	}
}

func TestBatchInvisibleUntilCommit(t *testing.T) {
	s := testStore(t)
	b, err := s.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.PutDocument("pending.pdf", "fp", []PageText{{Page: 0, Text: "draft"}},
		[]Entry{{Term: "draft", Page: 0, Start: 0, End: 5}}); err != nil {
		t.Fatal(err)
	}

	if ps, _ := s.Lookup("draft"); len(ps) != 0 {
		t.Errorf("uncommitted postings visible: %+v", ps)
	}

	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ps, _ := s.Lookup("draft"); len(ps) != 1 {
		t.Errorf("committed postings missing: %+v", ps)
	}
}

func TestRollbackRestoresPreBatchState(t *testing.T) {
	s := testStore(t)
	putDoc(t, s, "keep.pdf", "fp", "keep", []Entry{{Term: "keep", Page: 0, Start: 0, End: 4}})

	b, err := s.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteDocument("keep.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := b.PutDocument("new.pdf", "fp", nil, []Entry{{Term: "new", Page: 0, Start: 0, End: 3}}); err != nil {
		t.Fatal(err)
	}
	if err := b.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if ps, _ := s.Lookup("keep"); len(ps) != 1 {
		t.Errorf("pre-batch postings lost: %+v", ps)
	}
	if ps, _ := s.Lookup("new"); len(ps) != 0 {
		t.Errorf("rolled-back postings visible: %+v", ps)
	}
}

// failingTx wraps a real transaction but refuses to commit, standing in
// for a disk write failure at the commit instant.
type failingTx struct {
	inner txLike
	err   error
}

func (f failingTx) Exec(query string, args ...any) (execResult, error) {
	return f.inner.Exec(query, args...)
}
func (f failingTx) Commit() error   { _ = f.inner.Rollback(); return f.err }
func (f failingTx) Rollback() error { return f.inner.Rollback() }

func TestCommitFailureLeavesStoreUntouched(t *testing.T) {
	s := testStore(t)
	putDoc(t, s, "stable.pdf", "fp", "stable", []Entry{{Term: "stable", Page: 0, Start: 0, End: 6}})

	b, err := s.Begin()
	if err != nil {
		t.Fatal(err)
	}
	b.tx = failingTx{inner: b.tx, err: errors.New("disk full")}

	if err := b.PutDocument("doomed.pdf", "fp", nil,
		[]Entry{{Term: "doomed", Page: 0, Start: 0, End: 6}}); err != nil {
		t.Fatal(err)
	}
	err = b.Commit()
	if !errors.Is(err, apperr.ErrCommitFailed) {
		t.Fatalf("Commit err = %v, want ErrCommitFailed", err)
	}

	// Visible store content equals pre-batch content exactly.
	if ps, _ := s.Lookup("doomed"); len(ps) != 0 {
		t.Errorf("failed batch leaked postings: %+v", ps)
	}
	if ps, _ := s.Lookup("stable"); len(ps) != 1 {
		t.Errorf("pre-batch content damaged: %+v", ps)
	}

	// The writer lock must have been released.
	b2, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin after failed commit: %v", err)
	}
	b2.Rollback()
}

func TestAllFingerprints(t *testing.T) {
	s := testStore(t)
	putDoc(t, s, "a.pdf", "fa", "a", nil)
	putDoc(t, s, "b.pdf", "fb", "b", nil)

	fps, err := s.AllFingerprints()
	if err != nil {
		t.Fatalf("AllFingerprints: %v", err)
	}
	if len(fps) != 2 || fps["a.pdf"] != "fa" || fps["b.pdf"] != "fb" {
		t.Errorf("fingerprints = %v", fps)
	}
}
