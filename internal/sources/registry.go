package sources

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/logging"
)

// Set is the ordered trio of sources consulted for each query. Any member may be nil.
type Set struct {
	Primary  Source
	Fallback Source
	Images   Source
}

// Names lists the configured source names for logging.
func (s Set) Names() []string {
	var out []string
	for _, src := range []Source{s.Primary, s.Fallback, s.Images} {
		if src != nil {
			out = append(out, src.Name())
		}
	}
	return out
}

// FromConfig builds the source set described by cfg. Providers that cannot be
// constructed (missing key, missing directory) are logged and left nil so the
// build degrades to placeholders instead of failing.
func FromConfig(cfg *config.Config, logger *slog.Logger) Set {
	logger = logging.NewComponentLogger(logger, "sources")
	client := &http.Client{Timeout: time.Duration(cfg.Providers.TimeoutSecs) * time.Second}

	build := func(name string, kind Kind) Source {
		if name == "" || name == "none" {
			return nil
		}
		src, err := New(name, kind, cfg, client)
		if err != nil {
			logging.WarnWithContext(logger, "source unavailable", "source_unavailable",
				logging.String("source", name),
				logging.String("kind", kind.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set the provider API key or choose another provider"),
				logging.String(logging.FieldImpact, "segments fall back to other sources or placeholders"),
			)
			return nil
		}
		return src
	}

	set := Set{
		Primary:  build(cfg.Providers.Primary, KindVideo),
		Fallback: build(cfg.Providers.Fallback, KindVideo),
	}
	if cfg.Providers.Fallback == cfg.Providers.Primary {
		set.Fallback = nil
	}

	switch cfg.Providers.ImageFallback {
	case "auto":
		for _, name := range []string{"pexels", "pixabay"} {
			if src, err := New(name, KindImage, cfg, client); err == nil {
				set.Images = src
				break
			}
		}
	default:
		set.Images = build(cfg.Providers.ImageFallback, KindImage)
	}
	return set
}

// New constructs a single source by provider name.
func New(name string, kind Kind, cfg *config.Config, client *http.Client) (Source, error) {
	switch name {
	case "pexels":
		src, err := NewPexels(PexelsConfig{
			APIKey:     cfg.Pexels.APIKey,
			BaseURL:    cfg.Pexels.BaseURL,
			Kind:       kind,
			MaxWidth:   cfg.Video.Width,
			HTTPClient: client,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case "pixabay":
		src, err := NewPixabay(PixabayConfig{
			APIKey:     cfg.Pixabay.APIKey,
			BaseURL:    cfg.Pixabay.BaseURL,
			Kind:       kind,
			HTTPClient: client,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case "youtube":
		if kind != KindVideo {
			return nil, errors.New("youtube: only video search is supported")
		}
		if !cfg.YouTube.Enabled {
			return nil, errors.New("youtube: disabled in config (youtube.enabled)")
		}
		return NewYouTube(cfg.YTDLPBinary(), cfg.YouTube.MaxResults), nil
	case "local":
		src, err := NewLocal(cfg.Local.Dir, kind)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
