package preflight

import (
	"context"

	"photomatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// Optional checks never block startup; they only surface in status output.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckFreeSpace("Staging disk space", cfg.Paths.StagingDir),
		CheckDatabase("Mapping database", cfg.DatabasePath()),
	}

	if cfg.Mapping.RemoteURL != "" {
		results = append(results, CheckRemoteWorkbook(ctx, cfg.Mapping.RemoteURL))
	}

	return results
}

// Fatal reports whether any required check failed.
func Fatal(results []Result) bool {
	for _, result := range results {
		if !result.Passed && !result.Optional {
			return true
		}
	}
	return false
}
