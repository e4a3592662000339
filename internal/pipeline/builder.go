package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyreel/internal/audiomix"
	"storyreel/internal/clip"
	"storyreel/internal/logging"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/query"
	"storyreel/internal/resolve"
	"storyreel/internal/segment"
	"storyreel/internal/services"
	"storyreel/internal/sources"
	"storyreel/internal/timeline"
)

// durationTolerance is how far a materialized clip may drift from its segment.
const durationTolerance = 1e-9

// QueryGenerator produces and simplifies search queries.
type QueryGenerator interface {
	Generate(seg segment.Segment, style query.Style) string
	Simplify(failed string, style query.Style) string
}

// Resolver picks an asset for a query.
type Resolver interface {
	Resolve(ctx context.Context, query string, used *resolve.UsedSet) resolve.Asset
}

// Materializer turns resolved assets into clips.
type Materializer interface {
	Materialize(ctx context.Context, req clip.Request) clip.Clip
	WithSubtitle(c clip.Clip, text string) clip.Clip
}

// Renderer writes a timeline and soundtrack to a file.
type Renderer interface {
	Render(ctx context.Context, tl timeline.Timeline, mix audiomix.Mix, out string) error
}

// Fetcher downloads remote media such as background music.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, kind sources.Kind) (string, error)
}

// Prober reports media duration.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
}

// Locker guards the shared asset cache for the length of a build.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// Deps collects the collaborators of a Builder. Locker may be nil.
type Deps struct {
	Queries      QueryGenerator
	Resolver     Resolver
	Materializer Materializer
	Renderer     Renderer
	Fetcher      Fetcher
	Prober       Prober
	Locker       Locker
}

// Frame is the output geometry.
type Frame struct {
	Width, Height int
	FPS           int
}

// Request describes one build.
type Request struct {
	// ID names the build in logs; empty generates a UUID.
	ID       string
	Segments []segment.Segment
	// Narration is the path of the voice-over audio.
	Narration string
	Output    string
	Style     query.Style
	// CustomQueries maps a segment index to a query that replaces the generated one.
	CustomQueries map[int]string
	Subtitles     bool
	Transitions   bool
	// MinSegment is the shortest duration a segment is stretched to.
	MinSegment float64
	// Music is a background track path or URL; empty disables music.
	Music       string
	MusicVolume float64
}

// Row reports what one segment ended up showing.
type Row struct {
	Index      int
	Start, End float64
	Query      string
	Simplified string
	Custom     bool
	Kind       string
	Source     string
	Locator    string
	Reused     bool
}

// Result summarizes a finished build.
type Result struct {
	BuildID   string
	Output    string
	Narration float64
	Duration  float64
	Padded    float64
	Trimmed   float64
	Music     bool
	Rows      []Row
	Elapsed   time.Duration
}

// Placeholders counts segments rendered without a usable asset.
func (r Result) Placeholders() int {
	n := 0
	for _, row := range r.Rows {
		if row.Kind == KindPlaceholder {
			n++
		}
	}
	return n
}

// Reused counts segments that repeat an asset already shown.
func (r Result) Reused() int {
	n := 0
	for _, row := range r.Rows {
		if row.Reused {
			n++
		}
	}
	return n
}

// KindPlaceholder is the report kind of a segment without footage.
const KindPlaceholder = "placeholder"

// Builder runs builds.
type Builder struct {
	deps   Deps
	frame  Frame
	logger *slog.Logger
	newID  func() string
}

// NewBuilder constructs a Builder.
func NewBuilder(deps Deps, frame Frame, logger *slog.Logger) *Builder {
	if frame.FPS <= 0 {
		frame.FPS = 30
	}
	return &Builder{
		deps:   deps,
		frame:  frame,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		newID:  uuid.NewString,
	}
}

// Build assembles req into req.Output.
func (b *Builder) Build(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = b.newID()
	}
	result := Result{BuildID: id, Output: req.Output}
	ctx = services.WithBuildID(ctx, result.BuildID)

	if len(req.Segments) == 0 {
		return result, services.Wrap(services.ErrValidation, "pipeline", "segments", "no caption segments to build from", nil)
	}
	if strings.TrimSpace(req.Output) == "" {
		return result, services.Wrap(services.ErrValidation, "pipeline", "output", "output path is empty", nil)
	}

	logger := logging.WithContext(ctx, b.logger)
	segments := segment.ClampAll(req.Segments, req.MinSegment)
	logger.Info("build started",
		logging.Int("segments", len(segments)),
		logging.String("narration", req.Narration),
		logging.String("style", string(req.Style)),
		logging.Bool("subtitles", req.Subtitles),
		logging.Bool("transitions", req.Transitions),
	)

	if b.deps.Locker != nil {
		if err := b.deps.Locker.Lock(ctx); err != nil {
			return result, services.Wrap(services.ErrTransient, "pipeline", "cache lock", "asset cache is busy", err)
		}
		defer func() {
			if err := b.deps.Locker.Unlock(); err != nil {
				logger.Debug("cache unlock failed", logging.Error(err))
			}
		}()
	}

	used := resolve.NewUsedSet()
	clips := make([]clip.Clip, 0, len(segments))
	result.Rows = make([]Row, 0, len(segments))
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		c, row := b.segmentClip(services.WithSegment(ctx, seg.Index), seg, req, used)
		clips = append(clips, c)
		result.Rows = append(result.Rows, row)
	}

	ctx = services.WithStage(ctx, "assemble")
	narration := b.narrationDuration(ctx, req.Narration, segments)
	tl := timeline.Assemble(clips, timeline.Options{
		FPS:       b.frame.FPS,
		Crossfade: req.Transitions,
		Width:     b.frame.Width,
		Height:    b.frame.Height,
	}, narration)
	result.Narration = narration
	result.Duration = tl.Duration()
	result.Padded = tl.Padded
	result.Trimmed = tl.Trimmed
	if tl.Padded > 0 || tl.Trimmed > 0 {
		logger.Info("timeline reconciled to narration",
			logging.Seconds("narration", narration),
			logging.Seconds("padded", tl.Padded),
			logging.Seconds("trimmed", tl.Trimmed),
		)
	}

	ctx = services.WithStage(ctx, "audio")
	var background *audiomix.Track
	if strings.TrimSpace(req.Music) != "" && b.deps.Fetcher != nil && b.deps.Prober != nil {
		background = audiomix.Acquire(ctx, req.Music, b.deps.Fetcher, b.deps.Prober, b.logger)
	}
	mix := audiomix.Plan(audiomix.Track{Path: req.Narration, Duration: narration}, background, req.MusicVolume, tl.Duration())
	result.Music = !mix.NarrationOnly()

	ctx = services.WithStage(ctx, "render")
	if err := b.deps.Renderer.Render(ctx, tl, mix, req.Output); err != nil {
		logging.ErrorWithContext(logger, "render failed", "render_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "no output video was written"),
		)
		return result, err
	}

	result.Elapsed = time.Since(started)
	logger.Info("build complete",
		logging.String("output", req.Output),
		logging.Seconds("duration", result.Duration),
		logging.Int("placeholders", result.Placeholders()),
		logging.Int("reused", result.Reused()),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// segmentClip resolves and materializes a single segment.
func (b *Builder) segmentClip(ctx context.Context, seg segment.Segment, req Request, used *resolve.UsedSet) (clip.Clip, Row) {
	ctx = services.WithStage(ctx, "resolve")
	logger := logging.WithContext(ctx, b.logger)
	row := Row{Index: seg.Index, Start: seg.Start, End: seg.End}

	q, custom := req.CustomQueries[seg.Index]
	q = strings.TrimSpace(q)
	if custom && q != "" {
		row.Custom = true
	} else {
		q = b.deps.Queries.Generate(seg, req.Style)
	}
	row.Query = q

	asset := b.deps.Resolver.Resolve(ctx, q, used)
	if asset.Kind() == resolve.KindNone {
		if simpler := b.deps.Queries.Simplify(q, req.Style); simpler != "" && simpler != q {
			row.Simplified = simpler
			logger.Info("no asset, retrying with simplified query",
				logging.String("query", q),
				logging.String("simplified", simpler),
			)
			asset = b.deps.Resolver.Resolve(ctx, simpler, used)
		}
	}

	ctx = services.WithStage(ctx, "materialize")
	target := seg.Duration()
	c := b.deps.Materializer.Materialize(ctx, clip.Request{Asset: asset, Query: q, Duration: target})
	if math.Abs(c.Duration-target) > durationTolerance {
		panic(fmt.Sprintf("pipeline: segment %d clip lasts %.9fs, want %.9fs", seg.Index, c.Duration, target))
	}
	if req.Subtitles {
		c = b.deps.Materializer.WithSubtitle(c, seg.Text)
	}

	if c.Placeholder {
		row.Kind = KindPlaceholder
	} else {
		row.Kind = asset.Kind().String()
		row.Source = resolve.SourceName(asset)
		row.Locator = resolve.Locator(asset)
		row.Reused = reused(asset)
	}
	logger.Debug("segment ready",
		logging.String("query", q),
		logging.String("kind", row.Kind),
		logging.String("source", row.Source),
		logging.Seconds("duration", target),
	)
	return c, row
}

// narrationDuration probes the narration; when that fails the latest caption
// end time stands in so the build still produces a video.
func (b *Builder) narrationDuration(ctx context.Context, path string, segments []segment.Segment) float64 {
	fallback := captionEnd(segments)
	if b.deps.Prober == nil || strings.TrimSpace(path) == "" {
		return fallback
	}
	info, err := b.deps.Prober.Probe(ctx, path)
	if err == nil && info.Duration > 0 {
		return info.Duration
	}
	logging.WarnWithContext(logging.WithContext(ctx, b.logger), "narration probe failed, using caption end time", "narration_probe_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.Seconds("fallback", fallback),
		logging.String(logging.FieldErrorHint, "check that the narration file is readable audio"),
		logging.String(logging.FieldImpact, "video length follows the captions instead of the audio"),
	)
	return fallback
}

// captionEnd is the latest end time of any segment. Clamping and overlapping
// cues mean the last segment does not always end last.
func captionEnd(segments []segment.Segment) float64 {
	var end float64
	for _, seg := range segments {
		end = max(end, seg.End)
	}
	return end
}

func reused(a resolve.Asset) bool {
	switch v := a.(type) {
	case resolve.VideoAsset:
		return v.Reused
	case resolve.ImageAsset:
		return v.Reused
	default:
		return false
	}
}
