package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"photomatch/internal/archive"
	"photomatch/internal/config"
	"photomatch/internal/fileutil"
	"photomatch/internal/logging"
	"photomatch/internal/mapping"
	"photomatch/internal/match"
	"photomatch/internal/staging"
	"photomatch/internal/textutil"
)

// Engine runs batch matching tasks. Each submission gets its own worker
// goroutine; pollers read copied snapshots under the engine mutex.
type Engine struct {
	cfg      *config.Config
	mappings *mapping.Store
	archives *archive.Store
	history  *History
	logger   *slog.Logger

	mu    sync.Mutex
	tasks map[string]*State
}

// NewEngine wires the batch engine to its collaborators. history may be nil
// when run recording is disabled (in-memory setups).
func NewEngine(cfg *config.Config, mappings *mapping.Store, archives *archive.Store, history *History, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		mappings: mappings,
		archives: archives,
		history:  history,
		logger:   logging.NewComponentLogger(logger, "task-engine"),
		tasks:    make(map[string]*State),
	}
}

// Submit validates the batch, registers a pending task, and starts its
// worker. The mapping snapshot is pinned at submission time so a concurrent
// refresh never changes results mid-run.
func (e *Engine) Submit(ctx context.Context, inputs []Input) (string, error) {
	if len(inputs) == 0 {
		return "", ErrEmptyBatch
	}
	snap := e.mappings.Current()
	if snap.Empty() {
		return "", ErrNoMapping
	}

	id := uuid.NewString()
	state := &State{
		ID:     id,
		Status: StatusPending,
		Total:  len(inputs),
	}

	e.mu.Lock()
	e.tasks[id] = state
	e.mu.Unlock()

	e.logger.Info("task submitted",
		logging.String(logging.FieldTaskID, id),
		logging.Int("inputs", len(inputs)),
		logging.String(logging.FieldEventType, "task_submitted"),
	)

	go e.process(id, inputs, snap)
	return id, nil
}

// Status returns a copied snapshot of the task state.
func (e *Engine) Status(id string) (*State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Snapshot(), nil
}

// ActiveCount reports how many tasks are not yet terminal.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	active := 0
	for _, state := range e.tasks {
		if !state.Status.Terminal() {
			active++
		}
	}
	return active
}

// Run sweeps expired terminal tasks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.Tasks.SweepIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep()
		}
	}
}

// Sweep drops terminal states older than the retention window and removes
// their leftover staging directories.
func (e *Engine) Sweep() int {
	retention := time.Duration(e.cfg.Tasks.RetentionMinutes) * time.Minute
	cutoff := time.Now().Add(-retention)

	e.mu.Lock()
	var expired []*State
	for id, state := range e.tasks {
		if state.Status.Terminal() && state.FinishedAt.Before(cutoff) {
			expired = append(expired, state)
			delete(e.tasks, id)
		}
	}
	e.mu.Unlock()

	for _, state := range expired {
		if state.SessionID != "" {
			// A live session still serves this directory; its store
			// removes it on consumption or expiry.
			if _, err := e.archives.Peek(state.SessionID); err == nil {
				continue
			}
		}
		if err := staging.Remove(staging.Dir(e.cfg, state.ID)); err != nil {
			e.logger.Warn("failed to remove expired task staging directory",
				logging.String(logging.FieldTaskID, state.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			)
		}
	}
	return len(expired)
}

// update mutates the live state under the mutex so pollers see each change
// atomically.
func (e *Engine) update(id string, fn func(*State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state, ok := e.tasks[id]; ok {
		fn(state)
	}
}

func (e *Engine) process(id string, inputs []Input, snap *mapping.Snapshot) {
	defer e.finalize(id)

	e.update(id, func(s *State) {
		s.Status = StatusRunning
		s.StartedAt = time.Now().UTC()
	})

	dir, err := staging.TaskDir(e.cfg, id)
	if err != nil {
		e.update(id, func(s *State) {
			s.Status = StatusFailed
			s.Error = err.Error()
			s.FinishedAt = time.Now().UTC()
		})
		return
	}

	var staged []string
	seen := make(map[string]bool)
	for _, input := range inputs {
		label := input.label()
		e.update(id, func(s *State) {
			s.CurrentInput = label
		})

		result, producedFile := e.processInput(input, snap, dir)
		if input.Path != "" {
			// Uploaded temp files are consumed by the run.
			_ = os.Remove(input.Path)
		}
		if producedFile != "" && !seen[producedFile] {
			seen[producedFile] = true
			staged = append(staged, producedFile)
		}

		e.update(id, func(s *State) {
			s.Completed++
			switch result.Status {
			case ResultMatched:
				s.Matched++
			case ResultUnmatched:
				s.Unmatched++
			case ResultInputError:
				s.InputErrors++
			}
			s.Results = append(s.Results, result)
		})
	}

	var sessionID string
	if len(staged) > 0 {
		sessionID = e.archives.Create(dir, staged).ID
	} else {
		// Nothing to package; don't leave an empty directory behind.
		_ = staging.Remove(dir)
	}

	e.update(id, func(s *State) {
		s.Status = StatusCompleted
		s.CurrentInput = ""
		s.FinishedAt = time.Now().UTC()
		s.SessionID = sessionID
	})

	e.logger.Info("task completed",
		logging.String(logging.FieldTaskID, id),
		logging.Int("staged", len(staged)),
		logging.String(logging.FieldEventType, "task_completed"),
	)
}

// processInput resolves a single batch item. The second return value is the
// staged file name when the item placed bytes in the task directory.
func (e *Engine) processInput(input Input, snap *mapping.Snapshot, dir string) (MatchResult, string) {
	label := input.label()

	if input.Path == "" {
		result := match.Lookup(snap, input.Code)
		if !result.Matched {
			return MatchResult{Input: label, Status: ResultUnmatched}, ""
		}
		return MatchResult{Input: label, Status: ResultMatched, ProducedName: result.Target}, ""
	}

	base, ext := match.SplitName(input.DisplayName)
	if !match.AllowedImageExt(ext) {
		return MatchResult{Input: label, Status: ResultInputError, Message: msgUnsupportedExtension}, ""
	}

	result := match.Lookup(snap, base)
	if !result.Matched {
		return MatchResult{Input: label, Status: ResultUnmatched}, ""
	}

	produced := textutil.SanitizeFileName(match.ProducedName(result.Target, ext))
	if err := fileutil.CopyFileVerified(input.Path, filepath.Join(dir, produced)); err != nil {
		e.logger.Warn("failed to stage uploaded file",
			logging.String("input", label),
			logging.Error(err),
		)
		return MatchResult{Input: label, Status: ResultInputError, Message: msgUnreadableUpload}, ""
	}
	return MatchResult{Input: label, Status: ResultMatched, ProducedName: produced}, produced
}

// finalize guarantees every task reaches a terminal status and is recorded,
// even when the worker panics.
func (e *Engine) finalize(id string) {
	recovered := recover()

	e.mu.Lock()
	state, ok := e.tasks[id]
	if ok && !state.Status.Terminal() {
		state.Status = StatusFailed
		state.CurrentInput = ""
		state.FinishedAt = time.Now().UTC()
		if recovered != nil {
			state.Error = fmt.Sprintf("worker panic: %v", recovered)
		} else if state.Error == "" {
			state.Error = "worker terminated unexpectedly"
		}
	}
	var record *State
	if ok {
		record = state.Snapshot()
	}
	e.mu.Unlock()

	if recovered != nil {
		e.logger.Error("task worker panicked",
			logging.String(logging.FieldTaskID, id),
			logging.Any("panic", recovered),
			logging.String(logging.FieldErrorHint, "report this; batch state was preserved"),
		)
	}

	if record != nil && e.history != nil {
		if err := e.history.Record(context.Background(), record); err != nil {
			e.logger.Warn("failed to record task run",
				logging.String(logging.FieldTaskID, id),
				logging.Error(err),
			)
		}
	}
}

func (in Input) label() string {
	if in.Path != "" {
		return in.DisplayName
	}
	return in.Code
}

