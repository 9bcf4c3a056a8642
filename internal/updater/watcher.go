package updater

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/progress"
	"github.com/starford/raido/internal/source"
	"github.com/starford/raido/internal/store"
)

// Watch starts an fsnotify watcher on the corpus root and keeps the
// index current until ctx is cancelled, calling cb (if non-nil) after
// each successful mutation.
//
// Directories created at runtime are added to the watch list. Rename
// events fire on the old path only, so a short debounced reconciliation
// run catches the file's new location.
func Watch(ctx context.Context, st *store.Store, scanner *source.Scanner, ext extract.Extractor, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := scanner.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(ctx, st, scanner, ext, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories: watch them and index any PDFs inside.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					indexNewDir(ctx, st, scanner, ext, absPath, logger, cb)
					continue
				}
			}

			if !source.IsPDF(absPath) {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if updErr := UpdateOne(ctx, st, scanner, ext, rel); updErr != nil {
					logger.Warn("watcher: index failed",
						slog.String("path", rel), slog.String("error", updErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel))
				if cb != nil {
					cb("indexed", rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := RemoveOne(st, rel); delErr != nil {
					logger.Warn("watcher: remove failed",
						slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: removed", slog.String("path", rel))
				if cb != nil {
					cb("removed", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// The new path arrives (if at all) as a separate Create
				// event; drop the old entry now and reconcile shortly.
				if delErr := RemoveOne(st, rel); delErr == nil {
					logger.Debug("watcher: rename old removed", slog.String("path", rel))
					if cb != nil {
						cb("removed", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile runs a full incremental update to completion. Fingerprint
// diffing makes this cheap when little has actually changed.
func reconcile(ctx context.Context, st *store.Store, scanner *source.Scanner, ext extract.Extractor, logger *slog.Logger, cb EventCallback) {
	u := New(st, scanner, ext, logger, Options{OnEvent: cb})
	if state := progress.Run(ctx, u, nil); state == progress.Error {
		logger.Warn("watcher: reconcile failed", slog.String("error", u.Err().Error()))
	}
}

// indexNewDir indexes any PDFs already present in a newly created
// directory.
func indexNewDir(ctx context.Context, st *store.Store, scanner *source.Scanner, ext extract.Extractor, dirPath string, logger *slog.Logger, cb EventCallback) {
	root := scanner.Root()
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !source.IsPDF(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if updErr := UpdateOne(ctx, st, scanner, ext, rel); updErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			if cb != nil {
				cb("indexed", rel)
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
