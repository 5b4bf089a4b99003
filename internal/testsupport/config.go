package testsupport

import (
	"path/filepath"
	"testing"

	"photomatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithRemoteURL sets the mapping workbook URL on the test config.
func WithRemoteURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Mapping.RemoteURL = url
	}
}

// WithSingleDownload toggles consume-once download sessions.
func WithSingleDownload(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sessions.SingleDownload = enabled
	}
}
