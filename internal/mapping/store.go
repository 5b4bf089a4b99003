package mapping

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"photomatch/internal/config"
	"photomatch/internal/logging"
)

// Store publishes the current mapping snapshot and serializes ingestion.
// Readers never block: Current returns the last published snapshot via an
// atomic pointer, and snapshots are replaced whole, never mutated.
type Store struct {
	current   atomic.Pointer[Snapshot]
	refreshMu sync.Mutex

	db        *sql.DB
	logger    *slog.Logger
	remoteURL string
	client    *http.Client
}

// Open connects the store to its SQLite persistence and loads the last
// published snapshot, if any. The remote URL may be empty; refreshes then
// require explicit uploads.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply mapping schema: %w", err)
	}

	store := &Store{
		db:        db,
		logger:    logging.NewComponentLogger(logger, "mapping-store"),
		remoteURL: cfg.Mapping.RemoteURL,
		client:    &http.Client{Timeout: time.Duration(cfg.Mapping.FetchTimeout) * time.Second},
	}
	store.current.Store(emptySnapshot())

	if err := store.loadPersisted(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewInMemory returns a store without persistence, for tests and embedding.
func NewInMemory(logger *slog.Logger) *Store {
	store := &Store{
		logger: logging.NewComponentLogger(logger, "mapping-store"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	store.current.Store(emptySnapshot())
	return store
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Current returns the last published snapshot. It never blocks and never
// returns nil; before the first ingestion the snapshot is empty.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// DB exposes the shared database handle so sibling stores can keep their
// tables in the same file. Nil for in-memory stores.
func (s *Store) DB() *sql.DB {
	return s.db
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS mapping_snapshot (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    entries_json TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    refreshed_at TEXT NOT NULL
)`

func (s *Store) loadPersisted(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx,
		`SELECT entries_json, content_hash, row_count, refreshed_at FROM mapping_snapshot WHERE id = 1`)

	var entriesJSON, hash, refreshedAt string
	var rowCount int
	if err := row.Scan(&entriesJSON, &hash, &rowCount, &refreshedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("load mapping snapshot: %w", err)
	}

	entries := map[string]string{}
	if err := json.Unmarshal([]byte(entriesJSON), &entries); err != nil {
		return fmt.Errorf("decode persisted mapping: %w", err)
	}
	refreshed, err := time.Parse(time.RFC3339Nano, refreshedAt)
	if err != nil {
		refreshed = time.Time{}
	}

	s.current.Store(&Snapshot{
		Entries:     entries,
		ContentHash: hash,
		RowCount:    len(entries),
		RefreshedAt: refreshed,
	})
	s.logger.Info("loaded persisted mapping",
		logging.Int("entries", len(entries)),
		logging.String("hash", hash),
	)
	return nil
}

func (s *Store) persist(ctx context.Context, snap *Snapshot) error {
	if s.db == nil {
		return nil
	}
	entriesJSON, err := json.Marshal(snap.Entries)
	if err != nil {
		return fmt.Errorf("encode mapping entries: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mapping_snapshot (id, entries_json, content_hash, row_count, refreshed_at)
         VALUES (1, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             entries_json = excluded.entries_json,
             content_hash = excluded.content_hash,
             row_count = excluded.row_count,
             refreshed_at = excluded.refreshed_at`,
		string(entriesJSON),
		snap.ContentHash,
		snap.RowCount,
		snap.RefreshedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("persist mapping snapshot: %w", err)
	}
	return nil
}
