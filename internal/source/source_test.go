package source

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewScannerMissingRoot(t *testing.T) {
	if _, err := NewScanner(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestEnumerateSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.pdf"), "two")
	writeFile(t, filepath.Join(root, "sub", "c.PDF"), "three")
	writeFile(t, filepath.Join(root, "a.pdf"), "one")
	writeFile(t, filepath.Join(root, "notes.md"), "not a pdf")

	s, err := NewScanner(root)
	if err != nil {
		t.Fatal(err)
	}
	cands, skipped, err := s.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("unexpected skipped files: %v", skipped)
	}
	var paths []string
	for _, c := range cands {
		paths = append(paths, c.Path)
		if c.Fingerprint == "" {
			t.Errorf("empty fingerprint for %s", c.Path)
		}
	}
	want := []string{"a.pdf", "b.pdf", "sub/c.PDF"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestEnumerateDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.pdf"), "x")
	writeFile(t, filepath.Join(root, "y.pdf"), "y")

	s, _ := NewScanner(root)
	first, _, err := s.Enumerate()
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := s.Enumerate()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated scans over unchanged corpus differ")
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "doc.pdf")
	writeFile(t, p, "v1")

	s, _ := NewScanner(root)
	before, err := s.Stat("doc.pdf")
	if err != nil {
		t.Fatal(err)
	}

	// Force a distinct mtime even on coarse-grained filesystems.
	writeFile(t, p, "v2 is longer")
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(p, later, later); err != nil {
		t.Fatal(err)
	}

	after, err := s.Stat("doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if before.Fingerprint == after.Fingerprint {
		t.Error("fingerprint unchanged after modification")
	}
}

func TestAbsRejectsTraversal(t *testing.T) {
	s, _ := NewScanner(t.TempDir())
	if _, err := s.Abs("../escape.pdf"); err == nil {
		t.Error("expected traversal rejection")
	}
	if _, err := s.Abs("/etc/passwd"); err == nil {
		t.Error("expected absolute path rejection")
	}
}
