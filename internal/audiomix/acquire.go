package audiomix

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/sources"
)

// Fetcher downloads a remote background track.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, kind sources.Kind) (string, error)
}

// Prober reports track duration.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
}

// Acquire resolves a background track from a local path or URL. It returns
// nil when no source is configured or the track cannot be used; failures are
// logged and never returned.
func Acquire(ctx context.Context, source string, fetcher Fetcher, prober Prober, logger *slog.Logger) *Track {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "audiomix"))

	path, err := fetcher.Fetch(ctx, source, sources.KindVideo)
	if err == nil {
		var info ffprobe.Info
		info, err = prober.Probe(ctx, path)
		if err == nil && !info.HasAudio {
			err = errors.New("no audio stream")
		}
		if err == nil {
			logger.Info("background track ready", logging.String("path", path), logging.Seconds("duration", info.Duration))
			return &Track{Path: path, Duration: info.Duration}
		}
	}
	logging.WarnWithContext(logger, "background track unavailable, using narration only", "background_music_unavailable",
		logging.String("source", source),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the music path or URL, or pass --no-music"),
		logging.String(logging.FieldImpact, "video has narration without background music"),
	)
	return nil
}
