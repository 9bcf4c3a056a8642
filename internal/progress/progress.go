// Package progress defines the cooperative stepping contract shared by
// long-running operations such as index updates: discrete Continue steps,
// a 0–100 progress readout, and pause between steps. Pausing is simply
// not calling Continue again; no goroutine is suspended.
package progress

import "context"

// State is the outcome of one Continue step.
type State int

const (
	// Finished means the operation completed; further steps are no-ops.
	Finished State = iota
	// ToBeContinued means more work remains; call Continue again.
	ToBeContinued
	// Error means the operation failed terminally.
	Error
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case Finished:
		return "finished"
	case ToBeContinued:
		return "to_be_continued"
	case Error:
		return "error"
	}
	return "unknown"
}

// Progressive is a resumable operation advanced in bounded steps.
type Progressive interface {
	// Continue performs one bounded unit of work.
	Continue(ctx context.Context) State
	// RateOfProgress reports completion as 0..100, or -1 before the
	// total amount of work is known.
	RateOfProgress() int
}

// PauseFunc is consulted between steps; returning true suspends the
// run, leaving the operation resumable by a later Run or Continue.
type PauseFunc func() bool

// Run drives p until it finishes, fails, ctx is cancelled, or pause
// requests suspension. The returned state is Finished, Error, or
// ToBeContinued (paused or cancelled).
func Run(ctx context.Context, p Progressive, pause PauseFunc) State {
	for {
		if ctx.Err() != nil {
			return ToBeContinued
		}
		if pause != nil && pause() {
			return ToBeContinued
		}
		state := p.Continue(ctx)
		if state != ToBeContinued {
			return state
		}
	}
}
