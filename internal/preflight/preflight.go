package preflight

import (
	"context"

	"storyreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks are reported but never block a build.
	Optional bool
}

// RunAll executes the local checks a build needs: directory access and free
// space. Network checks are left to CheckProviders.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckFreeSpace("Work disk space", cfg.Paths.WorkDir, MinFreeBytes))

	if cfg.Providers.Primary == "local" || cfg.Providers.Fallback == "local" {
		// An unreadable local library only costs the segments it would have served.
		local := CheckDirectoryReadable("Local asset directory", cfg.Local.Dir)
		local.Optional = true
		results = append(results, local)
	}
	return results
}

// Failed returns the non-optional results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
