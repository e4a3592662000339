package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"storyreel/internal/assetcache"
	"storyreel/internal/config"
	"storyreel/internal/deps"
	"storyreel/internal/logging"
	"storyreel/internal/pipeline"
	"storyreel/internal/preflight"
	"storyreel/internal/query"
	"storyreel/internal/segment"
	"storyreel/internal/services"
	"storyreel/internal/staging"
	"storyreel/internal/textutil"
	"storyreel/internal/transcribe"
)

type buildOptions struct {
	audio         string
	captions      string
	autoCaptions  bool
	captionsOut   string
	out           string
	resolution    string
	fps           int
	provider      string
	fallback      string
	style         string
	title         string
	customQueries string
	noSubs        bool
	transitions   bool
	fit           string
	minSeg        float64
	tmpDir        string
	music         string
	noMusic       bool
	seed          uint64
	whisperModel  string
	device        string
	keepTmp       bool
	jsonOutput    bool
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a video from narration audio and captions",
		Long: `Build a stock-footage video that follows a narration track.

Each caption segment becomes one clip: a search query is derived from the
caption text, a matching video (or image) is fetched from the configured
providers, and the clip is cut to the segment's exact duration. Segments with
no usable footage show a labelled placeholder. The narration, optionally mixed
with background music, becomes the soundtrack.`,
		Example: `  storyreel build --audio narration.mp3 --captions captions.vtt --out video.mp4
  storyreel build --audio narration.mp3 --autocaptions --resolution 1080x1920 --style cinematic`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := opts.validate(cmd); err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			logger, err := ctx.logger(cmd, cfg)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(runCtx, cmd, cfg, opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.audio, "audio", "", "Narration audio file (mp3/wav)")
	flags.StringVar(&opts.captions, "captions", "", "Caption file matching the audio (.vtt or .srt)")
	flags.BoolVar(&opts.autoCaptions, "autocaptions", false, "Generate captions from the audio with WhisperX")
	flags.StringVar(&opts.captionsOut, "captions-out", "captions.vtt", "Where to write generated captions")
	flags.StringVar(&opts.out, "out", defaultOutputName, "Output video path (defaults to the --title as a file name when a title is given)")
	flags.StringVar(&opts.resolution, "resolution", "", "Frame size, e.g. 1920x1080 or 1080x1920")
	flags.IntVar(&opts.fps, "fps", 0, "Frames per second")
	flags.StringVar(&opts.provider, "provider", "", "Primary provider (pexels, pixabay, youtube, local)")
	flags.StringVar(&opts.fallback, "fallback", "", "Fallback provider (pexels, pixabay, youtube, local, none)")
	flags.StringVar(&opts.style, "style", "", "Visual style (general, cinematic, nature, tech)")
	flags.StringVar(&opts.title, "title", "", "Video title; its keywords keep queries on topic")
	flags.StringVar(&opts.customQueries, "custom-queries", "", "JSON file mapping segment index to a search query")
	flags.BoolVar(&opts.noSubs, "no-subs", false, "Disable burned-in subtitles")
	flags.BoolVar(&opts.transitions, "transitions", false, "Crossfade between clips")
	flags.StringVar(&opts.fit, "fit", "", "Frame fitting (cover or stretch)")
	flags.Float64Var(&opts.minSeg, "min-seg", 0, "Minimum segment duration in seconds")
	flags.StringVar(&opts.tmpDir, "tmpdir", "", "Work directory for intermediate files")
	flags.StringVar(&opts.music, "music", "", "Background music file or URL")
	flags.BoolVar(&opts.noMusic, "no-music", false, "Disable background music")
	flags.Uint64Var(&opts.seed, "seed", 0, "Random seed for reproducible query and footage choices")
	flags.StringVar(&opts.whisperModel, "whisper-model", "", "Whisper model for --autocaptions (tiny, base, small, medium, large-v3)")
	flags.StringVar(&opts.device, "device", "", "Transcription device (auto, cpu, cuda)")
	flags.BoolVar(&opts.keepTmp, "keep-tmp", false, "Keep the build directory after a successful build")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the build summary as JSON")
	cmd.MarkFlagsMutuallyExclusive("captions", "autocaptions")
	cmd.MarkFlagsMutuallyExclusive("music", "no-music")

	return cmd
}

func (o *buildOptions) validate(cmd *cobra.Command) error {
	if strings.TrimSpace(o.audio) == "" {
		return services.Wrap(services.ErrValidation, "cli", "build", "--audio is required", nil)
	}
	if strings.TrimSpace(o.captions) == "" && !o.autoCaptions {
		return services.Wrap(services.ErrValidation, "cli", "build", "one of --captions or --autocaptions is required", nil)
	}
	if strings.TrimSpace(o.out) == "" {
		return services.Wrap(services.ErrValidation, "cli", "build", "--out must not be empty", nil)
	}
	if cmd.Flags().Changed("min-seg") && o.minSeg < 0 {
		return services.Wrap(services.ErrValidation, "cli", "build", "--min-seg must not be negative", nil)
	}
	return nil
}

// apply folds flag overrides into cfg and revalidates it.
func (o *buildOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if !flags.Changed("out") {
		o.out = defaultOutput(o.title)
	}
	if o.resolution != "" {
		w, h, err := config.ParseResolution(o.resolution)
		if err != nil {
			return services.Wrap(services.ErrValidation, "cli", "build", "--resolution", err)
		}
		cfg.Video.Width, cfg.Video.Height = w, h
	}
	if flags.Changed("fps") {
		cfg.Video.FPS = o.fps
	}
	if o.provider != "" {
		cfg.Providers.Primary = strings.ToLower(strings.TrimSpace(o.provider))
	}
	if o.fallback != "" {
		cfg.Providers.Fallback = strings.ToLower(strings.TrimSpace(o.fallback))
	}
	if o.style != "" {
		cfg.Video.Style = strings.ToLower(strings.TrimSpace(o.style))
	}
	if o.fit != "" {
		cfg.Video.Fit = strings.ToLower(strings.TrimSpace(o.fit))
	}
	if o.noSubs {
		cfg.Video.Subtitles = false
	}
	if o.transitions {
		cfg.Video.Transitions = true
	}
	if flags.Changed("min-seg") {
		cfg.Video.MinSegmentSeconds = o.minSeg
	}
	if o.tmpDir != "" {
		dir, err := config.ExpandPath(o.tmpDir)
		if err != nil {
			return services.Wrap(services.ErrValidation, "cli", "build", "--tmpdir", err)
		}
		cfg.Paths.WorkDir = dir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
	}
	if o.music != "" {
		cfg.Music.Enabled = true
		if strings.HasPrefix(o.music, "http://") || strings.HasPrefix(o.music, "https://") {
			cfg.Music.Path, cfg.Music.URL = "", o.music
		} else {
			cfg.Music.Path, cfg.Music.URL = o.music, ""
		}
	}
	if o.noMusic {
		cfg.Music.Enabled = false
	}
	if o.whisperModel != "" {
		cfg.Transcription.Model = strings.TrimSpace(o.whisperModel)
	}
	if o.device != "" {
		cfg.Transcription.Device = strings.ToLower(strings.TrimSpace(o.device))
	}
	if err := cfg.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "build", "invalid settings", err)
	}
	return nil
}

func runBuild(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts buildOptions, logger *slog.Logger) error {
	if _, err := os.Stat(opts.audio); err != nil {
		return services.Wrap(services.ErrValidation, "cli", "build", "audio file not found: "+opts.audio, err)
	}
	if err := checkBuildReadiness(ctx, cfg, opts.autoCaptions, logger); err != nil {
		return err
	}

	staging.CleanStale(ctx, cfg.Paths.WorkDir, staging.DefaultMaxAge, logger)
	buildID := uuid.NewString()
	buildDir, err := staging.Create(cfg.Paths.WorkDir, buildID)
	if err != nil {
		return err
	}
	ctx = services.WithBuildID(ctx, buildID)
	log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "cli"))

	segments, err := loadSegments(ctx, cfg, opts, buildDir, logger)
	if err != nil {
		return err
	}

	var custom map[int]string
	if opts.customQueries != "" {
		if custom, err = pipeline.LoadCustomQueries(opts.customQueries); err != nil {
			return err
		}
		log.Info("custom queries loaded", logging.Int("count", len(custom)))
	}

	seed := opts.seed
	if !cmd.Flags().Changed("seed") {
		seed = rand.Uint64()
	}
	log.Info("build seed", logging.String("seed", fmt.Sprint(seed)))

	stack, err := pipeline.NewStack(cfg, pipeline.Settings{WorkDir: buildDir, Title: opts.title, Seed: seed}, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	music := ""
	if cfg.Music.Enabled {
		music = cfg.Music.Path
		if music == "" {
			music = cfg.Music.URL
		}
	}

	result, err := stack.Builder.Build(ctx, pipeline.Request{
		ID:            buildID,
		Segments:      segments,
		Narration:     opts.audio,
		Output:        opts.out,
		Style:         query.Style(cfg.Video.Style),
		CustomQueries: custom,
		Subtitles:     cfg.Video.Subtitles,
		Transitions:   cfg.Video.Transitions,
		MinSegment:    cfg.Video.MinSegmentSeconds,
		Music:         music,
		MusicVolume:   cfg.Music.Volume,
	})
	if err != nil {
		log.Info("build directory kept for inspection", logging.String("path", buildDir))
		return err
	}

	pruneCache(ctx, stack.Cache, log)
	if !opts.keepTmp {
		if err := staging.Remove(buildDir); err != nil {
			log.Debug("build directory cleanup failed", logging.Error(err))
		}
	}

	if opts.jsonOutput {
		return writeJSON(cmd, result)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderBuildSummary(result))
	return nil
}

// cacheLocker is the part of the asset cache a post-build prune needs.
type cacheLocker interface {
	Lock(ctx context.Context) error
	Unlock() error
	MaxBytes() int64
	Prune(ctx context.Context, maxBytes int64) (assetcache.PruneReport, error)
}

// pruneCache trims the cache to its budget while holding the cache lock, so a
// concurrent build never loses files it is using. A busy cache skips the prune.
func pruneCache(ctx context.Context, cache cacheLocker, log *slog.Logger) {
	limit := cache.MaxBytes()
	if limit <= 0 {
		return
	}
	lockCtx, cancel := context.WithTimeout(ctx, cacheLockTimeout)
	defer cancel()
	if err := cache.Lock(lockCtx); err != nil {
		log.Info("cache prune skipped, cache in use", logging.Error(err))
		return
	}
	defer func() { _ = cache.Unlock() }()

	report, err := cache.Prune(ctx, limit)
	if err != nil {
		log.Debug("cache prune failed", logging.Error(err))
		return
	}
	if report.Removed > 0 {
		log.Info("asset cache pruned",
			logging.Int("removed", report.Removed),
			logging.Int64("freed_bytes", report.FreedBytes),
		)
	}
}

const defaultOutputName = "output.mp4"

// defaultOutput names the video after title when it yields a usable file stem.
func defaultOutput(title string) string {
	if stem := textutil.SanitizeFileName(title); stem != "" {
		return stem + ".mp4"
	}
	return defaultOutputName
}

// checkBuildReadiness fails fast on missing directories or tools. Only the
// work and cache directories, ffmpeg, ffprobe and (for --autocaptions) uvx
// block a build; anything else costs at most some segments' footage.
func checkBuildReadiness(ctx context.Context, cfg *config.Config, autoCaptions bool, logger *slog.Logger) error {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "preflight"))
	results := preflight.RunAll(ctx, cfg)
	if failed := preflight.Failed(results); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, r := range failed {
			names = append(names, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return services.Wrap(services.ErrConfiguration, "cli", "preflight", strings.Join(names, "; "), nil)
	}
	for _, r := range results {
		if r.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_degraded",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run 'storyreel doctor' for details"),
			logging.String(logging.FieldImpact, "segments that need it fall back to other sources or placeholders"),
		)
	}
	return checkBuildTools(ctx, cfg, autoCaptions, deps.CheckBinaries, logger)
}

func checkBuildTools(ctx context.Context, cfg *config.Config, autoCaptions bool, check func(context.Context, []deps.Requirement) []deps.Status, logger *slog.Logger) error {
	reqs := preflight.SystemRequirements(cfg)
	for i := range reqs {
		reqs[i].VersionArgs = nil
		if autoCaptions && reqs[i].Command == transcribe.UVXCommand {
			reqs[i].Optional = false
		}
	}
	statuses := check(ctx, reqs)
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, s := range missing {
			names = append(names, s.Name)
		}
		return services.Wrap(services.ErrExternalTool, "cli", "dependencies", "missing "+strings.Join(names, ", "), nil)
	}
	for _, s := range statuses {
		if s.Available || s.Command != cfg.YTDLPBinary() || !preflight.UsesYouTube(cfg) {
			continue
		}
		logging.WarnWithContext(logger, "yt-dlp not found, YouTube source disabled", "ytdlp_missing",
			logging.String("command", s.Command),
			logging.String(logging.FieldErrorHint, "install yt-dlp or set youtube.binary"),
			logging.String(logging.FieldImpact, "segments fall back to other sources or placeholders"),
		)
	}
	return nil
}

func loadSegments(ctx context.Context, cfg *config.Config, opts buildOptions, buildDir string, logger *slog.Logger) ([]segment.Segment, error) {
	if opts.autoCaptions {
		svc := transcribe.NewService(transcribe.ConfigFrom(cfg), logger)
		res, err := svc.Transcribe(ctx, opts.audio, filepath.Join(buildDir, "transcribe"))
		if err != nil {
			return nil, err
		}
		if err := segment.WriteVTTFile(opts.captionsOut, res.Segments); err != nil {
			return nil, fmt.Errorf("write captions: %w", err)
		}
		return res.Segments, nil
	}
	if _, err := os.Stat(opts.captions); err != nil {
		return nil, services.Wrap(services.ErrValidation, "cli", "build", "caption file not found: "+opts.captions, err)
	}
	return segment.Load(opts.captions)
}
