package clip

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"storyreel/internal/logging"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/overlay"
	"storyreel/internal/resolve"
	"storyreel/internal/sources"
)

const (
	// freezeBelow is the source length under which the last frame is held
	// instead of looping.
	freezeBelow = 0.5
	// windowSlack lets a slightly longer source play from the start.
	windowSlack = 0.2
	// placeholderFontSize is the label size on placeholder clips.
	placeholderFontSize = 48
)

// Fetcher returns a validated local path for a locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, kind sources.Kind) (string, error)
}

// Prober reports media duration and dimensions.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
	ProbeStill(ctx context.Context, path string) (ffprobe.Info, error)
}

// Config holds frame settings and the scratch directory for generated PNGs.
type Config struct {
	Width, Height int
	Fit           Fit
	WorkDir       string
}

// Request asks for a clip of Duration seconds from Asset.
type Request struct {
	Asset    resolve.Asset
	Query    string
	Duration float64
}

// Materializer builds clip plans.
type Materializer struct {
	cfg      Config
	fetcher  Fetcher
	prober   Prober
	overlays *overlay.Renderer
	rng      *rand.Rand
	logger   *slog.Logger

	gradientOnce sync.Once
	gradientPath string
	gradientErr  error
	layerSeq     atomic.Int64
}

// NewMaterializer wires the collaborators a Materializer needs.
func NewMaterializer(cfg Config, fetcher Fetcher, prober Prober, overlays *overlay.Renderer, rng *rand.Rand, logger *slog.Logger) *Materializer {
	if cfg.Fit == "" {
		cfg.Fit = FitCover
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}
	if overlays == nil {
		overlays = overlay.NewRenderer(nil, logger)
	}
	return &Materializer{
		cfg:      cfg,
		fetcher:  fetcher,
		prober:   prober,
		overlays: overlays,
		rng:      rng,
		logger:   logging.NewComponentLogger(logger, "clip"),
	}
}

// Materialize returns a clip of exactly req.Duration seconds. It never fails;
// unusable assets become placeholders.
func (m *Materializer) Materialize(ctx context.Context, req Request) Clip {
	logger := logging.WithContext(ctx, m.logger)
	switch a := req.Asset.(type) {
	case resolve.VideoAsset:
		c, err := m.video(ctx, a, req.Duration)
		if err == nil {
			return c
		}
		logging.WarnWithContext(logger, "video asset unusable, using placeholder", "video_asset_invalid",
			logging.String("locator", a.Locator),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the asset may be truncated or in an unsupported format"),
			logging.String(logging.FieldImpact, "segment shows a placeholder"),
		)
	case resolve.ImageAsset:
		c, err := m.image(ctx, a, req.Duration)
		if err == nil {
			return c
		}
		logging.WarnWithContext(logger, "image asset unusable, using placeholder", "image_asset_invalid",
			logging.String("locator", a.Locator),
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment shows a placeholder"),
		)
	}
	return m.Placeholder(ctx, req.Query, req.Duration)
}

func (m *Materializer) video(ctx context.Context, a resolve.VideoAsset, target float64) (Clip, error) {
	path, err := m.fetcher.Fetch(ctx, a.Locator, sources.KindVideo)
	if err != nil {
		return Clip{}, err
	}
	info, err := m.prober.Probe(ctx, path)
	if err != nil {
		return Clip{}, err
	}
	if info.Duration <= 0 {
		return Clip{}, fmt.Errorf("%s: %w", path, ffprobe.ErrUndecodable)
	}
	if !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return Clip{}, fmt.Errorf("%s: no video stream: %w", path, ffprobe.ErrUndecodable)
	}

	c := Clip{
		Width:          m.cfg.Width,
		Height:         m.cfg.Height,
		Duration:       target,
		Source:         SourceVideo,
		Path:           path,
		SourceDuration: info.Duration,
		Fit:            m.cfg.Fit,
		Loops:          1,
		Label:          a.Source,
	}
	c.Extend, c.Loops, c.Offset = PlanVideo(info.Duration, target, m.rng)

	logging.WithContext(ctx, m.logger).Debug("video clip planned",
		logging.String("path", path),
		logging.Seconds("source_duration", info.Duration),
		logging.Seconds("target_duration", target),
		logging.String("extend", c.Extend.String()),
		logging.Int("loops", c.Loops),
		logging.Seconds("offset", c.Offset),
	)
	return c, nil
}

// PlanVideo decides how a source of length source fills target seconds:
//   - shorter than freezeBelow: hold the last frame;
//   - otherwise shorter than target: loop floor(target/source)+1 times;
//   - up to target+windowSlack: play from the start;
//   - longer: start at a uniformly random offset in [0, source-target].
func PlanVideo(source, target float64, rng *rand.Rand) (ext Extend, loops int, offset float64) {
	switch {
	case source < target && source < freezeBelow:
		return ExtendFreeze, 1, 0
	case source < target:
		return ExtendLoop, int(target/source) + 1, 0
	case source <= target+windowSlack:
		return ExtendNone, 1, 0
	default:
		return ExtendNone, 1, rng.Float64() * (source - target)
	}
}

func (m *Materializer) image(ctx context.Context, a resolve.ImageAsset, target float64) (Clip, error) {
	path, err := m.fetcher.Fetch(ctx, a.Locator, sources.KindImage)
	if err != nil {
		return Clip{}, err
	}
	// Providers sometimes answer with an HTML error page that passes the size check.
	if _, err := m.prober.ProbeStill(ctx, path); err != nil {
		return Clip{}, err
	}
	return Clip{
		Width:    m.cfg.Width,
		Height:   m.cfg.Height,
		Duration: target,
		Source:   SourceImage,
		Path:     path,
		Fit:      m.cfg.Fit,
		Label:    a.Source,
	}, nil
}

// Placeholder returns a gradient clip labelled "[query]", or a solid clip
// when the gradient cannot be written.
func (m *Materializer) Placeholder(ctx context.Context, query string, target float64) Clip {
	logger := logging.WithContext(ctx, m.logger)
	m.gradientOnce.Do(func() {
		path := filepath.Join(m.cfg.WorkDir, fmt.Sprintf("placeholder-%dx%d.png", m.cfg.Width, m.cfg.Height))
		if err := os.MkdirAll(m.cfg.WorkDir, 0o755); err != nil {
			m.gradientErr = err
			return
		}
		if err := WriteGradient(path, m.cfg.Width, m.cfg.Height); err != nil {
			m.gradientErr = err
			return
		}
		m.gradientPath = path
	})

	var c Clip
	if m.gradientErr != nil {
		logging.WarnWithContext(logger, "gradient placeholder failed, using solid color", "placeholder_gradient_failed",
			logging.Error(m.gradientErr),
			logging.String(logging.FieldErrorHint, "check that the work directory is writable"),
		)
		c = Solid(m.cfg.Width, m.cfg.Height, target, PlaceholderColor)
	} else {
		c = Clip{
			Width:    m.cfg.Width,
			Height:   m.cfg.Height,
			Duration: target,
			Source:   SourceImage,
			Path:     m.gradientPath,
			Fit:      FitStretch,
			Label:    "placeholder",
		}
	}
	c.Placeholder = true

	if query != "" {
		opts := overlay.DefaultOptions()
		opts.FontSize = placeholderFontSize
		if layer, ok := m.layer("[" + query + "]", opts); ok {
			c = c.WithLayer(layer)
		}
	}
	logger.Info("placeholder clip created", logging.String("query", query), logging.Seconds("duration", target))
	return c
}

// WithSubtitle overlays text as a caption box. Empty text returns c unchanged.
func (m *Materializer) WithSubtitle(c Clip, text string) Clip {
	layer, ok := m.layer(text, overlay.DefaultOptions())
	if !ok {
		return c
	}
	return c.WithLayer(layer)
}

func (m *Materializer) layer(text string, opts overlay.Options) (Layer, bool) {
	o, ok := m.overlays.Render(text, m.cfg.Width, m.cfg.Height, opts)
	if !ok {
		return Layer{}, false
	}
	if err := os.MkdirAll(m.cfg.WorkDir, 0o755); err != nil {
		m.logger.Debug("overlay dir unavailable", logging.Error(err))
		return Layer{}, false
	}
	path := filepath.Join(m.cfg.WorkDir, fmt.Sprintf("overlay-%05d.png", m.layerSeq.Add(1)))
	if err := o.WritePNG(path); err != nil {
		logging.WarnWithContext(m.logger, "overlay write failed, skipping text layer", "overlay_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "clip is rendered without its text"),
		)
		return Layer{}, false
	}
	return Layer{Path: path, X: o.X, Y: o.Y}, true
}
