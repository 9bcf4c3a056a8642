// Package api implements the Raido REST API using chi.
package api

import (
	"context"

	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/store"
)

// Reindexer triggers and observes background index update runs. The
// serve entrypoint provides the implementation; the API only asks for a
// run and reports its progress.
type Reindexer interface {
	// Trigger requests an update run; it returns false when a run is
	// already active (runs never overlap).
	Trigger(reupdate bool) bool
	// Running reports whether a run is active.
	Running() bool
	// Progress is the active run's 0..100 rate, or -1 when unknown.
	Progress() int
}

// Service coordinates store and query operations for the API layer.
type Service struct {
	store     *store.Store
	engine    *query.Engine
	reindexer Reindexer
}

// NewService creates a new API service.
func NewService(st *store.Store, engine *query.Engine, reindexer Reindexer) *Service {
	return &Service{store: st, engine: engine, reindexer: reindexer}
}

// Search runs a ranked query, capped at limit matches.
func (s *Service) Search(ctx context.Context, q, rank string, limit int) ([]query.Match, error) {
	mode, err := query.ParseRankMode(rank)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	matches := []query.Match{}
	err = s.engine.Search(ctx, q, mode, func(m query.Match) bool {
		matches = append(matches, m)
		return len(matches) < limit
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Documents lists every indexed document.
func (s *Service) Documents(_ context.Context) ([]store.DocumentRecord, error) {
	return s.store.Documents()
}

// Status reports index stats and update-run state.
func (s *Service) Status(_ context.Context) (StatusResponse, error) {
	stats, err := s.store.Stats()
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{
		Stats:    stats,
		Indexing: s.reindexer.Running(),
		Progress: s.reindexer.Progress(),
	}, nil
}

// Reindex requests a background update run.
func (s *Service) Reindex(_ context.Context, reupdate bool) bool {
	return s.reindexer.Trigger(reupdate)
}
