// Package store provides the SQLite-backed inverted index: document
// records, per-page text, and term postings, mutated through atomic
// batches.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/apperr"
)

// applicationID stamps the database file so a foreign SQLite file is
// rejected at open instead of being silently adopted.
const applicationID = 0x52440001

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	path        TEXT NOT NULL UNIQUE,
	fingerprint TEXT NOT NULL,
	indexed_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pages (
	doc_id INTEGER NOT NULL,
	page   INTEGER NOT NULL,
	text   TEXT NOT NULL,
	PRIMARY KEY (doc_id, page)
);

CREATE TABLE IF NOT EXISTS postings (
	term   TEXT NOT NULL,
	doc_id INTEGER NOT NULL,
	page   INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_postings_term ON postings(term);
CREATE INDEX IF NOT EXISTS idx_postings_doc ON postings(doc_id);
`

// Store wraps a sql.DB with index-specific operations. Batches are the
// only write path; a mutex serializes them so there is a single writer
// at a time while readers proceed freely outside the commit instant.
type Store struct {
	conn *sql.DB
	mu   sync.Mutex
}

// Open opens (or creates) the index at path and verifies its
// integrity. A file that is not a Raido index, carries the wrong
// schema version, or fails SQLite's integrity check is reported as
// apperr.ErrIndexCorrupt. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := verifyIntegrity(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := verifyVersion(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func verifyIntegrity(conn *sql.DB) error {
	var appID int64
	if err := conn.QueryRow(`PRAGMA application_id`).Scan(&appID); err != nil {
		return fmt.Errorf("store: read application_id: %w", err)
	}
	switch appID {
	case applicationID:
		// Existing index.
	case 0:
		// Fresh database; claim it.
		if _, err := conn.Exec(fmt.Sprintf(`PRAGMA application_id = %d`, applicationID)); err != nil {
			return fmt.Errorf("store: stamp application_id: %w", err)
		}
	default:
		return fmt.Errorf("store: application_id %#x: %w", appID, apperr.ErrIndexCorrupt)
	}

	var result string
	if err := conn.QueryRow(`PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("store: integrity check: %w", apperr.ErrIndexCorrupt)
	}
	if result != "ok" {
		return fmt.Errorf("store: integrity check %q: %w", result, apperr.ErrIndexCorrupt)
	}
	return nil
}

func verifyVersion(conn *sql.DB) error {
	var v string
	err := conn.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		_, err = conn.Exec(`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`,
			fmt.Sprint(schemaVersion))
		if err != nil {
			return fmt.Errorf("store: write schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("store: read schema version: %w", err)
	case v != fmt.Sprint(schemaVersion):
		return fmt.Errorf("store: schema version %s: %w", v, apperr.ErrIndexCorrupt)
	}
	return nil
}
