package pipeline

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"

	"storyreel/internal/assetcache"
	"storyreel/internal/clip"
	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/overlay"
	"storyreel/internal/query"
	"storyreel/internal/render"
	"storyreel/internal/resolve"
	"storyreel/internal/sources"
)

// Settings are the per-run values that do not live in the config file.
type Settings struct {
	// WorkDir holds intermediate PNGs and clip renders for this build.
	WorkDir string
	Title   string
	Seed    uint64
}

// Stack is a Builder wired to real collaborators plus the cache it owns.
type Stack struct {
	Builder *Builder
	Cache   *assetcache.Cache
	Sources sources.Set
}

// Close releases the asset cache.
func (s *Stack) Close() error {
	if s == nil || s.Cache == nil {
		return nil
	}
	return s.Cache.Close()
}

// NewStack wires a Builder from cfg: providers, the asset cache, ffprobe,
// the overlay renderer and the ffmpeg render engine.
func NewStack(cfg *config.Config, settings Settings, logger *slog.Logger) (*Stack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: config is required")
	}
	cache, err := assetcache.OpenFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	// One stream per consumer keeps picks stable when query wording changes.
	queryRNG := rand.New(rand.NewPCG(settings.Seed, 1))
	pickRNG := rand.New(rand.NewPCG(settings.Seed, 2))
	windowRNG := rand.New(rand.NewPCG(settings.Seed, 3))

	set := sources.FromConfig(cfg, logger)
	logging.NewComponentLogger(logger, "pipeline").Info("sources configured",
		logging.Any("sources", set.Names()),
	)

	prober := ffprobe.NewProber(cfg.FFprobeBinary())
	materializer := clip.NewMaterializer(clip.Config{
		Width:   cfg.Video.Width,
		Height:  cfg.Video.Height,
		Fit:     clip.ParseFit(cfg.Video.Fit),
		WorkDir: filepath.Join(settings.WorkDir, "overlays"),
	}, cache, prober, overlay.NewRenderer(nil, logger), windowRNG, logger)

	builder := NewBuilder(Deps{
		Queries: query.NewGenerator(query.DefaultTables(), queryRNG, query.Options{
			FullText: cfg.Video.FullTextQueries,
			Title:    settings.Title,
		}, logger),
		Resolver:     resolve.NewResolver(resolve.ChainFromSet(set), cfg.Providers.PerQuery, pickRNG, logger),
		Materializer: materializer,
		Renderer:     render.NewEngine(render.OptionsFromConfig(cfg, filepath.Join(settings.WorkDir, "render")), logger),
		Fetcher:      cache,
		Prober:       prober,
		Locker:       cache,
	}, Frame{Width: cfg.Video.Width, Height: cfg.Video.Height, FPS: cfg.Video.FPS}, logger)

	return &Stack{Builder: builder, Cache: cache, Sources: set}, nil
}
