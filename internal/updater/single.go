package updater

import (
	"context"
	"fmt"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/source"
	"github.com/starford/raido/internal/store"
)

// UpdateOne extracts and commits a single corpus file, used by the
// watcher for incremental changes. The whole document is one batch.
func UpdateOne(ctx context.Context, st *store.Store, scanner *source.Scanner, ext extract.Extractor, rel string) error {
	cand, err := scanner.Stat(rel)
	if err != nil {
		return err
	}
	abs, err := scanner.Abs(cand.Path)
	if err != nil {
		return err
	}
	pages, err := ext.Extract(ctx, abs)
	if err != nil {
		return err
	}
	texts, entries := Tokenize(pages)

	batch, err := st.Begin()
	if err != nil {
		return fmt.Errorf("update: begin: %w", err)
	}
	defer batch.Rollback()
	if err := batch.PutDocument(cand.Path, cand.Fingerprint, texts, entries); err != nil {
		return err
	}
	return batch.Commit()
}

// RemoveOne deletes a single document from the index.
func RemoveOne(st *store.Store, rel string) error {
	batch, err := st.Begin()
	if err != nil {
		return fmt.Errorf("update: begin: %w", err)
	}
	defer batch.Rollback()
	if err := batch.DeleteDocument(rel); err != nil {
		return err
	}
	return batch.Commit()
}
