package task

import "time"

// Status tracks a batch run through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status will never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ResultStatus classifies the outcome of a single batch item.
type ResultStatus string

const (
	ResultMatched    ResultStatus = "matched"
	ResultUnmatched  ResultStatus = "unmatched"
	ResultInputError ResultStatus = "input_error"
)

// Input is one item of a batch: a bare product code when Path is empty, or an
// uploaded image file whose bytes sit at Path under DisplayName.
type Input struct {
	Code        string `json:"code,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Path        string `json:"-"`
}

// MatchResult records the outcome for one input, in submission order.
type MatchResult struct {
	Input        string       `json:"input"`
	Status       ResultStatus `json:"status"`
	ProducedName string       `json:"produced_name,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// State is the pollable view of a batch run. Snapshots handed to callers are
// deep copies; the engine owns the live value.
type State struct {
	ID           string        `json:"id"`
	Status       Status        `json:"status"`
	Total        int           `json:"total"`
	Completed    int           `json:"completed"`
	Matched      int           `json:"matched"`
	Unmatched    int           `json:"unmatched"`
	InputErrors  int           `json:"input_errors"`
	CurrentInput string        `json:"current_input,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at,omitzero"`
	Error        string        `json:"error,omitempty"`
	Results      []MatchResult `json:"results,omitempty"`
	SessionID    string        `json:"session_id,omitempty"`
}

// Snapshot deep-copies the state so callers never observe later mutations.
func (s *State) Snapshot() *State {
	cp := *s
	cp.Results = append([]MatchResult(nil), s.Results...)
	return &cp
}

// Elapsed reports wall time since the run started, frozen once terminal.
func (s *State) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if !s.FinishedAt.IsZero() {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}
