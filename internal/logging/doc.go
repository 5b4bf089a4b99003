// Package logging centralizes slog construction and shared attribute helpers.
package logging
