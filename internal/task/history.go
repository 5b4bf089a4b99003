package task

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    total INTEGER NOT NULL,
    matched INTEGER NOT NULL,
    unmatched INTEGER NOT NULL,
    input_errors INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT ''
)`

// History persists terminal task runs for later inspection. Polling never
// touches it; only finished runs are written.
type History struct {
	db *sql.DB
}

// NewHistory prepares the run-history table on the shared database. A nil db
// disables recording.
func NewHistory(db *sql.DB) (*History, error) {
	if db == nil {
		return nil, nil
	}
	if _, err := db.Exec(runsSchema); err != nil {
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &History{db: db}, nil
}

// Record inserts one terminal run. Resubmitting never reuses ids, so plain
// INSERT is safe.
func (h *History) Record(ctx context.Context, state *State) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, total, matched, unmatched, input_errors, started_at, finished_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		state.ID,
		string(state.Status),
		state.Total,
		state.Matched,
		state.Unmatched,
		state.InputErrors,
		state.StartedAt.UTC().Format(time.RFC3339Nano),
		state.FinishedAt.UTC().Format(time.RFC3339Nano),
		state.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", state.ID, err)
	}
	return nil
}

// Run is one recorded terminal task.
type Run struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	Total       int       `json:"total"`
	Matched     int       `json:"matched"`
	Unmatched   int       `json:"unmatched"`
	InputErrors int       `json:"input_errors"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Error       string    `json:"error,omitempty"`
}

// Recent returns the most recently finished runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, status, total, matched, unmatched, input_errors, started_at, finished_at, error
		 FROM runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Status, &run.Total, &run.Matched,
			&run.Unmatched, &run.InputErrors, &started, &finished, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
