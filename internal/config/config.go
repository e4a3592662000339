package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working, cache, and log directories.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Video contains output frame, styling, and encoder settings.
type Video struct {
	Width             int     `toml:"width"`
	Height            int     `toml:"height"`
	FPS               int     `toml:"fps"`
	Style             string  `toml:"style"`
	Fit               string  `toml:"fit"`
	Subtitles         bool    `toml:"subtitles"`
	Transitions       bool    `toml:"transitions"`
	FullTextQueries   bool    `toml:"full_text_queries"`
	MinSegmentSeconds float64 `toml:"min_segment_seconds"`
	Codec             string  `toml:"codec"`
	AudioCodec        string  `toml:"audio_codec"`
	Preset            string  `toml:"preset"`
	Threads           int     `toml:"threads"`
}

// Providers selects which asset sources are consulted and in what order.
type Providers struct {
	Primary       string `toml:"primary"`
	Fallback      string `toml:"fallback"`
	ImageFallback string `toml:"image_fallback"`
	PerQuery      int    `toml:"per_query"`
	TimeoutSecs   int    `toml:"timeout_seconds"`
}

// Pexels contains Pexels API credentials.
type Pexels struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Pixabay contains Pixabay API credentials.
type Pixabay struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// YouTube configures the yt-dlp backed video source.
type YouTube struct {
	Enabled       bool   `toml:"enabled"`
	Binary        string `toml:"binary"`
	MaxResults    int    `toml:"max_results"`
	MaxHeight     int    `toml:"max_height"`
	SectionLength int    `toml:"section_seconds"`
}

// Local configures a directory of pre-downloaded assets.
type Local struct {
	Dir string `toml:"dir"`
}

// Transcription contains WhisperX settings used for automatic captions.
type Transcription struct {
	Model     string `toml:"model"`
	Device    string `toml:"device"`
	Language  string `toml:"language"`
	VADMethod string `toml:"vad_method"`
}

// Music configures the optional background track.
type Music struct {
	Enabled bool    `toml:"enabled"`
	Path    string  `toml:"path"`
	URL     string  `toml:"url"`
	Volume  float64 `toml:"volume"`
}

// Cache contains downloaded asset cache settings.
type Cache struct {
	MaxMiB        int   `toml:"max_mib"`
	MinAssetBytes int64 `toml:"min_asset_bytes"`
}

// Render contains intermediate clip rendering settings.
type Render struct {
	Workers int `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for storyreel.
//
// Configuration sections by subsystem:
//   - Paths: work, cache, and log directories
//   - Video: frame size, style, fit, subtitles, and encoder settings
//   - Providers: primary/fallback video sources and image fallback
//   - Pexels, Pixabay, YouTube, Local: per-source settings
//   - Transcription: WhisperX automatic captions
//   - Music: background track mixed under the narration
//   - Cache: downloaded asset cache limits
//   - Render: intermediate clip rendering concurrency
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Video         Video         `toml:"video"`
	Providers     Providers     `toml:"providers"`
	Pexels        Pexels        `toml:"pexels"`
	Pixabay       Pixabay       `toml:"pixabay"`
	YouTube       YouTube       `toml:"youtube"`
	Local         Local         `toml:"local"`
	Transcription Transcription `toml:"transcription"`
	Music         Music         `toml:"music"`
	Cache         Cache         `toml:"cache"`
	Render        Render        `toml:"render"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/storyreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// loaded first so its variables participate in the environment fallbacks.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv applies variables from path without overriding ones already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("storyreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, cache, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// YTDLPBinary returns the yt-dlp executable used by the YouTube source.
func (c *Config) YTDLPBinary() string {
	if b := strings.TrimSpace(c.YouTube.Binary); b != "" {
		return b
	}
	return defaultYTDLPBinary
}

// CacheMaxBytes converts the cache size cap to bytes.
func (c *Config) CacheMaxBytes() int64 {
	return int64(c.Cache.MaxMiB) * 1024 * 1024
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "storyreel", "assets")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/storyreel/assets"
	}
	return filepath.Join(home, ".cache", "storyreel", "assets")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ParseResolution parses a WIDTHxHEIGHT string.
func ParseResolution(value string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(value)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("resolution %q: expected WIDTHxHEIGHT", value)
	}
	var w, h int
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("resolution %q: %w", value, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("resolution %q: dimensions must be positive", value)
	}
	return w, h, nil
}
