package archive

import "errors"

var (
	// ErrNotFound is returned when no session exists for the identifier.
	ErrNotFound = errors.New("download session not found")
	// ErrExpired is returned when the session's retention window has passed.
	ErrExpired = errors.New("download session expired")
	// ErrConsumed is returned when a single-download session was already fetched.
	ErrConsumed = errors.New("download session already consumed")
)
