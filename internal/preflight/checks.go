package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"storyreel/internal/config"
	"storyreel/internal/deps"
	"storyreel/internal/sources"
	"storyreel/internal/transcribe"
)

// MinFreeBytes is the free space a build wants on the work directory's disk.
const MinFreeBytes = 1 << 30

// providerTimeout bounds each provider reachability check.
const providerTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if err := statDir(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := statDir(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least minBytes free.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize) //nolint:gosec
	detail := fmt.Sprintf("%s (%.1f GiB free)", path, float64(free)/(1<<30))
	if free < minBytes {
		return Result{Name: name, Detail: detail + fmt.Sprintf(", want %.1f GiB", float64(minBytes)/(1<<30))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func statDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("does not exist")
		}
		return fmt.Errorf("stat: %w", err)
	}
	if !info.IsDir() {
		return errors.New("is not a directory")
	}
	return nil
}

// CheckProviders runs one small search against each configured API provider.
// Results are optional: a build without providers still renders placeholders.
func CheckProviders(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	client := &http.Client{Timeout: providerTimeout}
	var results []Result
	for _, name := range []string{"pexels", "pixabay"} {
		if !providerSelected(cfg, name) {
			continue
		}
		results = append(results, CheckProvider(ctx, name, cfg, client))
	}
	return results
}

// CheckProvider verifies that provider name answers a search with its configured key.
func CheckProvider(ctx context.Context, name string, cfg *config.Config, client *http.Client) Result {
	label := "Provider " + name
	src, err := sources.New(name, sources.KindVideo, cfg, client)
	if err != nil {
		return Result{Name: label, Optional: true, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	res := src.Search(checkCtx, "nature", 1)
	switch res.Outcome() {
	case sources.OutcomeFailed:
		return Result{Name: label, Optional: true, Detail: summarizeProviderError(res.Err)}
	case sources.OutcomeEmpty:
		return Result{Name: label, Optional: true, Passed: true, Detail: "reachable (no results)"}
	default:
		return Result{Name: label, Optional: true, Passed: true, Detail: "reachable"}
	}
}

func providerSelected(cfg *config.Config, name string) bool {
	p := cfg.Providers
	if p.Primary == name || p.Fallback == name || p.ImageFallback == name {
		return true
	}
	return p.ImageFallback == "auto"
}

func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "search timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "search timed out (API unreachable)"
	}
	if err == nil {
		return "search failed"
	}
	return err.Error()
}

// SystemRequirements lists the external commands used with cfg.
func SystemRequirements(cfg *config.Config) []deps.Requirement {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for rendering and muxing",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "yt-dlp",
			Command:     cfg.YTDLPBinary(),
			Description: youTubeDescription(cfg),
			Optional:    true,
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "uvx",
			Command:     transcribe.UVXCommand,
			Description: "Required for WhisperX auto-captions",
			Optional:    true,
			VersionArgs: []string{"--version"},
		},
	}
	return requirements
}

// CheckSystemDeps evaluates all external commands for the given config.
// The build command and doctor share this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, SystemRequirements(cfg))
}

// youTubeDescription explains the effect of a missing yt-dlp. Without it the
// YouTube source finds nothing and its segments fall back to other tiers.
func youTubeDescription(cfg *config.Config) string {
	if UsesYouTube(cfg) {
		return "Needed for YouTube footage; without it those segments fall back to other sources"
	}
	return "Used for YouTube search and downloads"
}

// UsesYouTube reports whether cfg draws footage from YouTube.
func UsesYouTube(cfg *config.Config) bool {
	return cfg.YouTube.Enabled || cfg.Providers.Primary == "youtube" || cfg.Providers.Fallback == "youtube"
}
