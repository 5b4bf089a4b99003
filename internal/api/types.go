// Package api defines the transport payloads shared by the HTTP server and
// the CLI client.
package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse is the body of every non-2xx JSON response. Code is a stable
// machine-readable identifier; Error is human text.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Stable error codes surfaced to clients.
const (
	CodeNoMapping  = "no_mapping"
	CodeEmptyBatch = "empty_batch"
	CodeConsumed   = "consumed"
	CodeRemoteFail = "remote_fetch_failed"
)

// MappingEntry is one source-to-target code pair.
type MappingEntry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// MappingListResponse describes the currently published mapping.
type MappingListResponse struct {
	Entries     []MappingEntry `json:"entries"`
	Total       int            `json:"total"`
	ContentHash string         `json:"content_hash,omitempty"`
	RefreshedAt string         `json:"refreshed_at,omitempty"`
}

// IngestResponse reports the outcome of a workbook upload.
type IngestResponse struct {
	Updated bool `json:"updated"`
	Total   int  `json:"total"`
}

// RefreshResponse reports the outcome of a remote workbook re-fetch.
type RefreshResponse struct {
	Updated bool   `json:"updated"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// SubmitRequest carries a bare-code batch. File batches arrive as multipart
// uploads instead.
type SubmitRequest struct {
	Codes []string `json:"codes"`
}

// SubmitResponse acknowledges an accepted batch.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
}

// TaskResult is the outcome of one batch item.
type TaskResult struct {
	Input        string `json:"input"`
	Status       string `json:"status"`
	ProducedName string `json:"produced_name,omitempty"`
	Message      string `json:"message,omitempty"`
}

// TaskStatus is the poll payload for a batch run. Results are present only
// once the run is terminal, or when the poller asks for them explicitly.
type TaskStatus struct {
	ID             string       `json:"id"`
	Status         string       `json:"status"`
	Total          int          `json:"total"`
	Completed      int          `json:"completed"`
	Matched        int          `json:"matched"`
	Unmatched      int          `json:"unmatched"`
	InputErrors    int          `json:"input_errors"`
	CurrentInput   string       `json:"current_input,omitempty"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	Error          string       `json:"error,omitempty"`
	Results        []TaskResult `json:"results,omitempty"`
	SessionID      string       `json:"session_id,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool    `json:"running"`
	PID           int     `json:"pid"`
	MappingTotal  int     `json:"mapping_total"`
	MappingHash   string  `json:"mapping_hash,omitempty"`
	RefreshedAt   string  `json:"refreshed_at,omitempty"`
	ActiveTasks   int     `json:"active_tasks"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// RunSummary is one recorded terminal task run.
type RunSummary struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Total       int    `json:"total"`
	Matched     int    `json:"matched"`
	Unmatched   int    `json:"unmatched"`
	InputErrors int    `json:"input_errors"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at"`
	Error       string `json:"error,omitempty"`
}

// RunListResponse wraps recorded runs for API responses.
type RunListResponse struct {
	Runs []RunSummary `json:"runs"`
}
