package preflight

import (
	"context"

	"spines/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Optional bool
}

// RunAll executes the directory checks and, when enrichment is enabled, the
// provider reachability checks.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Schedule.InboxDir != "" {
		results = append(results, CheckDirectoryAccess("Inbox directory", cfg.Schedule.InboxDir))
	}
	if cfg.Enrichment.Enabled {
		results = append(results, CheckEnrichment(ctx, cfg)...)
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
