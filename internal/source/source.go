// Package source enumerates the PDF corpus on disk and assigns each
// file a cheap change-detection fingerprint.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Candidate identifies one corpus file by relative path plus its
// current fingerprint.
type Candidate struct {
	Path        string
	Fingerprint string
}

// SkippedFile records a file the scan could not stat or read.
type SkippedFile struct {
	Path string
	Err  error
}

// Scanner walks a corpus root for PDF files.
type Scanner struct {
	root string // absolute path to the corpus directory
}

// NewScanner creates a Scanner rooted at dir. The directory must
// already exist.
func NewScanner(dir string) (*Scanner, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("source: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source: root is not a directory: %s", abs)
	}
	return &Scanner{root: abs}, nil
}

// Root returns the absolute corpus root.
func (s *Scanner) Root() string { return s.root }

// Abs resolves a candidate's relative path against the corpus root,
// rejecting any result that escapes it (directory traversal).
func (s *Scanner) Abs(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("source: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(s.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("source: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) && abs != s.root {
		return "", fmt.Errorf("source: path escapes corpus root: %s", rel)
	}
	return abs, nil
}

// Enumerate walks the corpus recursively and returns every PDF file as
// a Candidate, sorted by path so that repeated scans over an unchanged
// directory produce identical sequences. Files that cannot be statted
// are skipped and reported in the second return value; only a failure
// on the root itself is fatal.
func (s *Scanner) Enumerate() ([]Candidate, []SkippedFile, error) {
	var out []Candidate
	var skipped []SkippedFile

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == s.root {
				return walkErr
			}
			skipped = append(skipped, SkippedFile{Path: p, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPDF(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			skipped = append(skipped, SkippedFile{Path: p, Err: err})
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		out = append(out, Candidate{
			Path:        filepath.ToSlash(rel),
			Fingerprint: Fingerprint(info),
		})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("source: walk %s: %w", s.root, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, skipped, nil
}

// Stat fingerprints a single file by relative path.
func (s *Scanner) Stat(rel string) (Candidate, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return Candidate{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Candidate{}, fmt.Errorf("source: stat %s: %w", rel, err)
	}
	return Candidate{Path: filepath.ToSlash(rel), Fingerprint: Fingerprint(info)}, nil
}

// Fingerprint derives the change-detection fingerprint from file
// metadata: size plus modification time. Content never needs reading,
// so scans stay cheap regardless of corpus size.
func Fingerprint(info fs.FileInfo) string {
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano())
}

// IsPDF reports whether name carries the PDF extension,
// case-insensitively.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
