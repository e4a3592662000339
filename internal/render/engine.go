package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"storyreel/internal/audiomix"
	"storyreel/internal/clip"
	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/timeline"
)

// Runner executes ffmpeg with args.
type Runner func(ctx context.Context, binary string, args ...string) error

// Options holds encoder settings shared by every render step.
type Options struct {
	FFmpeg     string
	FPS        int
	Codec      string
	AudioCodec string
	Preset     string
	Threads    int
	Workers    int
	WorkDir    string
}

// OptionsFromConfig derives render options from cfg.
func OptionsFromConfig(cfg *config.Config, workDir string) Options {
	return Options{
		FFmpeg:     cfg.FFmpegBinary(),
		FPS:        cfg.Video.FPS,
		Codec:      cfg.Video.Codec,
		AudioCodec: cfg.Video.AudioCodec,
		Preset:     cfg.Video.Preset,
		Threads:    cfg.Video.Threads,
		Workers:    cfg.Render.Workers,
		WorkDir:    workDir,
	}
}

// Engine renders timelines to files.
type Engine struct {
	opts   Options
	run    Runner
	logger *slog.Logger
}

// NewEngine constructs an Engine with defaults filled in.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if strings.TrimSpace(opts.FFmpeg) == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Codec == "" {
		opts.Codec = "libx264"
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = "aac"
	}
	if opts.Preset == "" {
		opts.Preset = "medium"
	}
	opts.Workers = max(1, opts.Workers)
	return &Engine{
		opts:   opts,
		run:    runFFmpeg,
		logger: logging.NewComponentLogger(logger, "render"),
	}
}

// WithRunner allows injecting a custom command runner for tests.
func (e *Engine) WithRunner(r Runner) *Engine {
	if r != nil {
		e.run = r
	}
	return e
}

// Render encodes every clip of tl, joins them, and muxes mix into out.
func (e *Engine) Render(ctx context.Context, tl timeline.Timeline, mix audiomix.Mix, out string) error {
	started := time.Now()
	logger := logging.WithContext(ctx, e.logger)
	if len(tl.Clips) == 0 {
		return services.Wrap(services.ErrValidation, "render", "timeline", "timeline has no clips", nil)
	}
	if err := os.MkdirAll(e.opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("ensure render dir: %w", err)
	}

	parts, err := e.RenderClips(ctx, tl.Clips)
	if err != nil {
		return err
	}
	joined := filepath.Join(e.opts.WorkDir, "timeline.mp4")
	if err := e.Concat(ctx, parts, joined); err != nil {
		return err
	}
	if err := e.Mux(ctx, joined, mix, out); err != nil {
		return err
	}
	logger.Info("render complete",
		logging.String("output", out),
		logging.Int("clips", len(tl.Clips)),
		logging.Seconds("duration", tl.Duration()),
		logging.Bool("background_music", !mix.NarrationOnly()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// RenderClips encodes clips concurrently and returns part paths in clip order.
// Clips that round to zero frames are skipped.
func (e *Engine) RenderClips(ctx context.Context, clips []clip.Clip) ([]string, error) {
	frames := FrameCounts(clips, e.opts.FPS)
	parts := make([]string, 0, len(clips))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, c := range clips {
		n := frames[i]
		if n == 0 {
			e.logger.DebugContext(ctx, "clip shorter than one frame skipped",
				logging.Int("clip", i),
				logging.Seconds("duration", c.Duration),
			)
			continue
		}
		part := filepath.Join(e.opts.WorkDir, fmt.Sprintf("clip-%04d.mp4", i))
		parts = append(parts, part)
		g.Go(func() error {
			if err := e.run(gctx, e.opts.FFmpeg, e.ClipArgs(c, n, part)...); err != nil {
				return services.Wrap(services.ErrExternalTool, "render", "clip", fmt.Sprintf("clip %d (%s)", i, c.Label), err)
			}
			e.logger.DebugContext(gctx, "clip rendered",
				logging.Int("clip", i),
				logging.String("source", c.Source.String()),
				logging.Int("frames", n),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, services.Wrap(services.ErrValidation, "render", "timeline", "timeline is shorter than one frame", nil)
	}
	return parts, nil
}

// Concat joins parts with the concat demuxer into out without re-encoding.
func (e *Engine) Concat(ctx context.Context, parts []string, out string) error {
	listPath := filepath.Join(filepath.Dir(out), "concat.txt")
	if err := writeConcatList(listPath, parts); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	if err := e.run(ctx, e.opts.FFmpeg, e.ConcatArgs(listPath, out)...); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "concat", fmt.Sprintf("%d parts", len(parts)), err)
	}
	return nil
}

// Mux combines the joined video with the planned soundtrack. The output is
// written to a temporary sibling and renamed into place on success.
func (e *Engine) Mux(ctx context.Context, video string, mix audiomix.Mix, out string) error {
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure output dir: %w", err)
		}
	}
	tmp := filepath.Join(filepath.Dir(out), ".mux-"+filepath.Base(out))
	if err := e.run(ctx, e.opts.FFmpeg, e.MuxArgs(video, mix, tmp)...); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrExternalTool, "render", "mux", out, err)
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}

func writeConcatList(path string, parts []string) error {
	var b strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func runFFmpeg(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, tail(string(output), 2048))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
