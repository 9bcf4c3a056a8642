// Package updater brings the index up to date with the corpus through
// a resumable, batch-committing state machine. One Continue step does a
// bounded amount of work (a scan, a diff, or one extract+commit batch)
// and returns control, so callers can pause between steps and abandon a
// run at any point without losing committed work.
package updater

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/progress"
	"github.com/starford/raido/internal/source"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/token"
)

type phase int

const (
	phaseScanning phase = iota
	phaseDiffing
	phaseExtracting
	phaseFinished
	phaseError
)

// EventCallback is called after index mutations and progress changes.
// kind is one of "indexed", "removed", "skipped", "progress".
type EventCallback func(kind string, path string)

// DocError records a document that could not be processed. The run
// continues past it.
type DocError struct {
	Path string
	Err  error
}

// Options configures one update run.
type Options struct {
	// Reupdate schedules every document on disk for re-extraction
	// regardless of fingerprint match.
	Reupdate bool
	// BatchSize is the number of documents extracted per commit.
	// Values below 1 fall back to DefaultBatchSize.
	BatchSize int
	// OnEvent, if non-nil, is invoked after each mutation.
	OnEvent EventCallback
}

// DefaultBatchSize bounds how much extraction work sits uncommitted.
const DefaultBatchSize = 8

// Updater is a single progressive update run. Zero or more Continue
// calls advance it; it is not safe for concurrent use.
type Updater struct {
	store   *store.Store
	scanner *source.Scanner
	ext     extract.Extractor
	opts    Options
	logger  *slog.Logger

	phase     phase
	err       error
	deletions []string
	pending   []source.Candidate
	next      int // index into pending of the next unprocessed document
	total     int // scheduled work units: deletions + pending documents
	done      int // committed work units
	docErrs   []DocError
}

// New prepares an update run. Nothing touches disk until Continue.
func New(st *store.Store, scanner *source.Scanner, ext extract.Extractor, logger *slog.Logger, opts Options) *Updater {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{store: st, scanner: scanner, ext: ext, opts: opts, logger: logger}
}

var _ progress.Progressive = (*Updater)(nil)

// Continue performs one bounded step and reports whether more remain.
// Calling it again after Finished or Error is a no-op returning the
// same state.
func (u *Updater) Continue(ctx context.Context) progress.State {
	switch u.phase {
	case phaseScanning:
		u.stepScan()
	case phaseDiffing:
		u.stepDiff()
	case phaseExtracting:
		u.stepBatch(ctx)
	}
	return u.State()
}

// State reports the run's current progressive state.
func (u *Updater) State() progress.State {
	switch u.phase {
	case phaseFinished:
		return progress.Finished
	case phaseError:
		return progress.Error
	default:
		return progress.ToBeContinued
	}
}

// RateOfProgress reports committed work scaled to 0..100, or -1 until
// the diff has sized the run.
func (u *Updater) RateOfProgress() int {
	if u.phase <= phaseDiffing {
		return -1
	}
	if u.total == 0 {
		return 100
	}
	return u.done * 100 / u.total
}

// Err returns the terminal error of a failed run.
func (u *Updater) Err() error { return u.err }

// Errs returns the per-document failures recorded so far.
func (u *Updater) Errs() []DocError { return u.docErrs }

func (u *Updater) fail(err error) {
	u.phase = phaseError
	u.err = err
	u.logger.Error("update: failed", slog.String("error", err.Error()))
}

func (u *Updater) stepScan() {
	cands, skipped, err := u.scanner.Enumerate()
	if err != nil {
		u.fail(fmt.Errorf("update: scan: %w", err))
		return
	}
	for _, sk := range skipped {
		u.docErrs = append(u.docErrs, DocError{Path: sk.Path, Err: sk.Err})
		u.logger.Warn("update: scan skipped file",
			slog.String("path", sk.Path), slog.String("error", sk.Err.Error()))
	}
	u.pending = cands // reduced to the changed subset by the diff step
	u.phase = phaseDiffing
}

// stepDiff compares the scan against stored fingerprints: store-only
// paths are scheduled for deletion, new or changed files for
// (re)extraction, unchanged files skipped entirely.
func (u *Updater) stepDiff() {
	indexed, err := u.store.AllFingerprints()
	if err != nil {
		u.fail(fmt.Errorf("update: diff: %w", err))
		return
	}

	scanned := u.pending
	u.pending = u.pending[:0]
	onDisk := make(map[string]struct{}, len(scanned))
	for _, c := range scanned {
		onDisk[c.Path] = struct{}{}
		if !u.opts.Reupdate && indexed[c.Path] == c.Fingerprint {
			continue
		}
		u.pending = append(u.pending, c)
	}
	for p := range indexed {
		if _, ok := onDisk[p]; !ok {
			u.deletions = append(u.deletions, p)
		}
	}

	u.total = len(u.deletions) + len(u.pending)
	u.logger.Info("update: diffed",
		slog.Int("scanned", len(scanned)),
		slog.Int("scheduled", len(u.pending)),
		slog.Int("deletions", len(u.deletions)))

	if u.total == 0 {
		u.phase = phaseFinished
		return
	}
	u.phase = phaseExtracting
}

// stepBatch extracts up to BatchSize pending documents, then commits
// them (plus, on the first batch, all scheduled deletions) atomically.
// A document-level extraction failure skips that document; a commit
// failure is terminal.
func (u *Updater) stepBatch(ctx context.Context) {
	type put struct {
		cand    source.Candidate
		pages   []store.PageText
		entries []store.Entry
	}

	var puts []put
	var skippedNow []string
	batchEnd := u.next
	for len(puts) < u.opts.BatchSize && batchEnd < len(u.pending) {
		cand := u.pending[batchEnd]
		batchEnd++

		pages, entries, err := u.extractOne(ctx, cand)
		if err != nil {
			if ctx.Err() != nil {
				u.fail(err)
				return
			}
			u.docErrs = append(u.docErrs, DocError{Path: cand.Path, Err: err})
			u.logger.Warn("update: extract failed, skipping",
				slog.String("path", cand.Path), slog.String("error", err.Error()))
			skippedNow = append(skippedNow, cand.Path)
			continue
		}
		puts = append(puts, put{cand: cand, pages: pages, entries: entries})
	}

	batch, err := u.store.Begin()
	if err != nil {
		u.fail(fmt.Errorf("update: begin batch: %w", err))
		return
	}
	defer batch.Rollback()

	var removedNow []string
	if u.next == 0 {
		for _, p := range u.deletions {
			if err := batch.DeleteDocument(p); err != nil {
				u.fail(fmt.Errorf("update: delete %s: %w", p, err))
				return
			}
			removedNow = append(removedNow, p)
		}
	}
	for _, pt := range puts {
		if err := batch.PutDocument(pt.cand.Path, pt.cand.Fingerprint, pt.pages, pt.entries); err != nil {
			u.fail(fmt.Errorf("update: put %s: %w", pt.cand.Path, err))
			return
		}
	}
	if err := batch.Commit(); err != nil {
		u.fail(err)
		return
	}

	// Only after the commit is durable does the checkpoint advance.
	if u.next == 0 {
		u.done += len(u.deletions)
	}
	u.done += batchEnd - u.next
	u.next = batchEnd
	if u.next >= len(u.pending) {
		u.phase = phaseFinished
	}

	for _, p := range removedNow {
		u.logger.Debug("update: removed stale", slog.String("path", p))
		u.emit("removed", p)
	}
	for _, pt := range puts {
		u.logger.Debug("update: indexed", slog.String("path", pt.cand.Path))
		u.emit("indexed", pt.cand.Path)
	}
	for _, p := range skippedNow {
		u.emit("skipped", p)
	}
	u.emit("progress", "")
}

func (u *Updater) extractOne(ctx context.Context, cand source.Candidate) ([]store.PageText, []store.Entry, error) {
	abs, err := u.scanner.Abs(cand.Path)
	if err != nil {
		return nil, nil, err
	}
	pages, err := u.ext.Extract(ctx, abs)
	if err != nil {
		return nil, nil, err
	}
	texts, entries := Tokenize(pages)
	return texts, entries, nil
}

// Tokenize converts extracted pages into store rows: the page text kept
// for match reconstruction, and one posting per token occurrence.
func Tokenize(pages []extract.Page) ([]store.PageText, []store.Entry) {
	var texts []store.PageText
	var entries []store.Entry
	for _, pg := range pages {
		texts = append(texts, store.PageText{Page: pg.Index, Text: pg.Text})
		for _, t := range token.Tokenize(pg.Text) {
			entries = append(entries, store.Entry{
				Term:  t.Term,
				Page:  pg.Index,
				Start: t.Start,
				End:   t.End,
			})
		}
	}
	return texts, entries
}

func (u *Updater) emit(kind, path string) {
	if u.opts.OnEvent != nil {
		u.opts.OnEvent(kind, path)
	}
}
