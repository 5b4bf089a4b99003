package task

import "errors"

var (
	// ErrNotFound reports an unknown task id.
	ErrNotFound = errors.New("task not found")
	// ErrEmptyBatch rejects a submission with no inputs.
	ErrEmptyBatch = errors.New("batch contains no inputs")
	// ErrNoMapping rejects submissions while no mapping has been ingested.
	ErrNoMapping = errors.New("no mapping loaded")
)

// Messages attached to per-input failures. They surface verbatim in poll
// responses, so keep them short and stable.
const (
	msgUnsupportedExtension = "unsupported file extension"
	msgUnreadableUpload     = "uploaded file could not be read"
)
