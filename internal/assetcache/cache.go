package assetcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/sources"
)

// DefaultMinBytes is the smallest file accepted as a real asset.
const DefaultMinBytes = 10000

// Options configures a Cache.
type Options struct {
	Root     string
	MinBytes int64
	MaxBytes int64

	HTTPClient *http.Client
	// YTDLP is the yt-dlp binary used for YouTube locators.
	YTDLP string
	// YouTubeMaxHeight caps the downloaded YouTube stream height.
	YouTubeMaxHeight int
	// YouTubeSectionSeconds limits YouTube downloads to the leading section.
	YouTubeSectionSeconds int

	Logger *slog.Logger
}

// Cache is a content-keyed download directory plus its index.
type Cache struct {
	root     string
	minBytes int64
	maxBytes int64

	client  *http.Client
	ytdlp   string
	ytH     int
	ytSecs  int
	run     CommandRunner
	index   *index
	lock    *flock.Flock
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open prepares the cache directory and its index.
func Open(opts Options) (*Cache, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "assetcache", "open", "cache directory is empty", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	idx, err := openIndex(root)
	if err != nil {
		return nil, err
	}
	minBytes := opts.MinBytes
	if minBytes <= 0 {
		minBytes = DefaultMinBytes
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	ytdlp := strings.TrimSpace(opts.YTDLP)
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	return &Cache{
		root:     root,
		minBytes: minBytes,
		maxBytes: opts.MaxBytes,
		client:   client,
		ytdlp:    ytdlp,
		ytH:      opts.YouTubeMaxHeight,
		ytSecs:   opts.YouTubeSectionSeconds,
		run:      runCommand,
		index:    idx,
		lock:     flock.New(filepath.Join(root, ".lock")),
		logger:   logging.NewComponentLogger(opts.Logger, "assetcache"),
		nowFunc:  time.Now,
	}, nil
}

// OpenFromConfig opens the cache configured in cfg.
func OpenFromConfig(cfg *config.Config, logger *slog.Logger) (*Cache, error) {
	return Open(Options{
		Root:                  cfg.Paths.CacheDir,
		MinBytes:              cfg.Cache.MinAssetBytes,
		MaxBytes:              cfg.CacheMaxBytes(),
		YTDLP:                 cfg.YTDLPBinary(),
		YouTubeMaxHeight:      cfg.YouTube.MaxHeight,
		YouTubeSectionSeconds: cfg.YouTube.SectionLength,
		Logger:                logger,
	})
}

// WithCommandRunner swaps the yt-dlp runner (for testing).
func (c *Cache) WithCommandRunner(run CommandRunner) *Cache {
	c.run = run
	return c
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// MaxBytes returns the configured size budget.
func (c *Cache) MaxBytes() int64 { return c.maxBytes }

// MinBytes returns the validity threshold.
func (c *Cache) MinBytes() int64 { return c.minBytes }

// Close releases the index and any held lock.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	_ = c.Unlock()
	return c.index.close()
}

// Lock takes the exclusive directory lock, waiting until ctx is done.
func (c *Cache) Lock(ctx context.Context) error {
	ok, err := c.lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire cache lock: %s is held by another build", c.lock.Path())
	}
	return nil
}

// Unlock releases the directory lock if held.
func (c *Cache) Unlock() error {
	if c.lock == nil || !c.lock.Locked() {
		return nil
	}
	return c.lock.Unlock()
}

// Fetch returns a local path holding a valid copy of locator.
func (c *Cache) Fetch(ctx context.Context, locator string, kind sources.Kind) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", services.Wrap(services.ErrInvalidAsset, "assetcache", "fetch", "empty locator", nil)
	}
	if !isRemote(locator) {
		if !fileutil.SizeAtLeast(locator, c.minBytes) {
			return "", services.Wrap(services.ErrInvalidAsset, "assetcache", "fetch",
				fmt.Sprintf("local asset %s is missing or smaller than %d bytes", locator, c.minBytes), nil)
		}
		return locator, nil
	}

	dest := c.PathFor(locator, kind)
	logger := logging.WithContext(ctx, c.logger)
	if _, err := os.Stat(dest); err == nil {
		if fileutil.SizeAtLeast(dest, c.minBytes) {
			if err := c.index.touch(ctx, locator, c.nowFunc()); err != nil {
				logger.Debug("asset index touch failed", logging.Error(err))
			}
			logger.Debug("asset cache hit", logging.String("locator", locator), logging.String("path", dest))
			return dest, nil
		}
		logging.WarnWithContext(logger, "cached asset invalid, downloading again", "asset_cache_invalid",
			logging.String("path", dest),
			logging.String(logging.FieldErrorHint, "run 'storyreel cache prune' if this repeats"),
			logging.String(logging.FieldImpact, "asset is downloaded again"),
		)
		_ = os.Remove(dest)
	}

	started := c.nowFunc()
	if err := c.download(ctx, locator, dest); err != nil {
		_ = os.Remove(dest)
		return "", services.Wrap(services.ErrInvalidAsset, "assetcache", "download", locator, err)
	}
	info, err := os.Stat(dest)
	if err != nil || info.Size() < c.minBytes {
		_ = os.Remove(dest)
		_ = c.index.remove(ctx, locator)
		size := int64(0)
		if info != nil {
			size = info.Size()
		}
		return "", services.Wrap(services.ErrInvalidAsset, "assetcache", "validate",
			fmt.Sprintf("download of %s is %d bytes, below %d", locator, size, c.minBytes), nil)
	}

	now := c.nowFunc()
	if err := c.index.upsert(ctx, Entry{
		Locator:    locator,
		Path:       dest,
		Kind:       kind.String(),
		SizeBytes:  info.Size(),
		FetchedAt:  now,
		LastUsedAt: now,
	}); err != nil {
		logger.Debug("asset index update failed", logging.Error(err))
	}
	logger.Info("asset downloaded",
		logging.String("locator", locator),
		logging.String("path", dest),
		logging.Int64("size_bytes", info.Size()),
		logging.Duration("elapsed", now.Sub(started)),
	)
	return dest, nil
}

// PathFor returns the content-keyed cache path for locator.
func (c *Cache) PathFor(locator string, kind sources.Kind) string {
	sum := sha256.Sum256([]byte(locator))
	return filepath.Join(c.root, hex.EncodeToString(sum[:])[:16]+extensionFor(locator, kind))
}

func (c *Cache) download(ctx context.Context, locator, dest string) error {
	if sources.IsYouTubeURL(locator) {
		return c.downloadYouTube(ctx, locator, dest)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "storyreel/1.0")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	if _, err := fileutil.WriteAtomic(dest, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

func (c *Cache) downloadYouTube(ctx context.Context, locator, dest string) error {
	height := c.ytH
	if height <= 0 {
		height = 1080
	}
	args := []string{
		"-f", fmt.Sprintf("bv*[ext=mp4][height<=%d]/b[ext=mp4]/b", height),
		"--no-playlist",
		"--no-warnings",
		"--force-overwrites",
		"--merge-output-format", "mp4",
		"-o", dest,
	}
	if c.ytSecs > 0 {
		args = append(args, "--download-sections", fmt.Sprintf("*0-%d", c.ytSecs))
	}
	args = append(args, locator)
	if err := c.run(ctx, c.ytdlp, args...); err != nil {
		return fmt.Errorf("%w: yt-dlp: %w", services.ErrExternalTool, err)
	}
	return nil
}

func isRemote(locator string) bool {
	u, err := url.Parse(locator)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

var knownExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".webm": {}, ".m4v": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
	".mp3": {}, ".m4a": {}, ".aac": {}, ".wav": {}, ".ogg": {},
}

func extensionFor(locator string, kind sources.Kind) string {
	if u, err := url.Parse(locator); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if _, ok := knownExtensions[ext]; ok {
			return ext
		}
	}
	if kind == sources.KindImage {
		return ".jpg"
	}
	return ".mp4"
}

// ErrNotIndexed is returned by Lookup for unknown locators.
var ErrNotIndexed = errors.New("asset not indexed")

// Lookup returns the index entry for locator.
func (c *Cache) Lookup(ctx context.Context, locator string) (Entry, error) {
	entries, err := c.index.entries(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Locator == locator {
			return e, nil
		}
	}
	return Entry{}, ErrNotIndexed
}
