package internal

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/progress"
	"github.com/starford/raido/internal/source"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/updater"
)

// reindexManager serializes background update runs: at most one run is
// active, and at most one further request may be queued. It implements
// api.Reindexer.
type reindexManager struct {
	store     *store.Store
	scanner   *source.Scanner
	extractor extract.Extractor
	batchSize int
	logger    *slog.Logger
	onEvent   updater.EventCallback

	requests chan bool // buffered; element is the reupdate flag
	running  atomic.Bool
	current  atomic.Pointer[updater.Updater]
}

func newReindexManager(st *store.Store, scanner *source.Scanner, ext extract.Extractor, batchSize int, logger *slog.Logger, onEvent updater.EventCallback) *reindexManager {
	return &reindexManager{
		store:     st,
		scanner:   scanner,
		extractor: ext,
		batchSize: batchSize,
		logger:    logger,
		onEvent:   onEvent,
		requests:  make(chan bool, 1),
	}
}

// NewReindexer returns a background Reindexer whose processing loop
// runs until ctx is cancelled. Used when the MCP server runs
// standalone, outside the HTTP application.
func NewReindexer(ctx context.Context, st *store.Store, scanner *source.Scanner, ext extract.Extractor, batchSize int, logger *slog.Logger) api.Reindexer {
	m := newReindexManager(st, scanner, ext, batchSize, logger, nil)
	go m.loop(ctx)
	return m
}

// Trigger queues an update run; false means one is already queued or
// running.
func (m *reindexManager) Trigger(reupdate bool) bool {
	if m.running.Load() {
		return false
	}
	select {
	case m.requests <- reupdate:
		return true
	default:
		return false
	}
}

// Running reports whether a run is active or queued.
func (m *reindexManager) Running() bool {
	return m.running.Load() || len(m.requests) > 0
}

// Progress reports the active run's rate, or -1 when idle.
func (m *reindexManager) Progress() int {
	if u := m.current.Load(); u != nil {
		return u.RateOfProgress()
	}
	return -1
}

// loop processes queued requests until ctx is cancelled. A cancelled
// run simply stops between steps; committed batches stay durable and
// the next run's diff picks up where it left off.
func (m *reindexManager) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reupdate := <-m.requests:
			m.run(ctx, reupdate)
		}
	}
}

func (m *reindexManager) run(ctx context.Context, reupdate bool) {
	m.running.Store(true)
	defer m.running.Store(false)

	u := updater.New(m.store, m.scanner, m.extractor, m.logger, updater.Options{
		Reupdate:  reupdate,
		BatchSize: m.batchSize,
		OnEvent:   m.onEvent,
	})
	m.current.Store(u)
	defer m.current.Store(nil)

	state := progress.Run(ctx, u, nil)
	switch state {
	case progress.Finished:
		m.logger.Info("reindex: finished",
			slog.Bool("reupdate", reupdate),
			slog.Int("doc_errors", len(u.Errs())))
	case progress.Error:
		m.logger.Error("reindex: failed", slog.String("error", u.Err().Error()))
	default:
		m.logger.Info("reindex: suspended")
	}
}
