package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"storyreel/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("PEXELS_API_KEY", "")
	t.Setenv("PIXABAY_API_KEY", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(tempHome, ".cache", "storyreel", "assets")
	if cfg.Paths.CacheDir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, wantCache)
	}
	if !filepath.IsAbs(cfg.Paths.WorkDir) {
		t.Fatalf("expected absolute work dir, got %q", cfg.Paths.WorkDir)
	}
	if cfg.Video.Width != 1920 || cfg.Video.Height != 1080 || cfg.Video.FPS != 30 {
		t.Fatalf("unexpected frame defaults: %+v", cfg.Video)
	}
	if cfg.Video.MinSegmentSeconds != 0.12 {
		t.Fatalf("unexpected min segment: %v", cfg.Video.MinSegmentSeconds)
	}
	if cfg.Providers.Primary != "pexels" || cfg.Providers.Fallback != "pixabay" {
		t.Fatalf("unexpected providers: %+v", cfg.Providers)
	}
	if cfg.Music.Volume != 0.1 {
		t.Fatalf("unexpected music volume: %v", cfg.Music.Volume)
	}
	if cfg.Cache.MinAssetBytes != 10000 {
		t.Fatalf("unexpected min asset bytes: %d", cfg.Cache.MinAssetBytes)
	}
	if cfg.Transcription.Model != "small" || cfg.Transcription.Device != "auto" {
		t.Fatalf("unexpected transcription defaults: %+v", cfg.Transcription)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PEXELS_API_KEY", "")
	configPath := filepath.Join(t.TempDir(), "storyreel.toml")

	type payload struct {
		Video struct {
			FPS   int    `toml:"fps"`
			Style string `toml:"style"`
		} `toml:"video"`
		Pexels struct {
			APIKey string `toml:"api_key"`
		} `toml:"pexels"`
	}
	custom := payload{}
	custom.Video.FPS = 24
	custom.Video.Style = " Cinematic "
	custom.Pexels.APIKey = "abc123"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Video.FPS != 24 {
		t.Fatalf("expected fps 24, got %d", cfg.Video.FPS)
	}
	if cfg.Video.Style != "cinematic" {
		t.Fatalf("expected normalized style, got %q", cfg.Video.Style)
	}
	if cfg.Pexels.APIKey != "abc123" {
		t.Fatalf("expected Pexels key from file, got %q", cfg.Pexels.APIKey)
	}
	if cfg.Video.Width != 1920 {
		t.Fatalf("expected untouched defaults, got width %d", cfg.Video.Width)
	}
}

func TestDotEnvSuppliesAPIKeys(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	// t.Setenv registers restoration; Unsetenv lets godotenv populate the value.
	t.Setenv("PIXABAY_API_KEY", "")
	os.Unsetenv("PIXABAY_API_KEY")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PIXABAY_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Pixabay.APIKey != "from-dotenv" {
		t.Fatalf("expected Pixabay key from .env, got %q", cfg.Pixabay.APIKey)
	}
}

func TestEnvVarOverridesConfigFileForAPIKeys(t *testing.T) {
	t.Chdir(t.TempDir())
	configPath := filepath.Join(t.TempDir(), "storyreel.toml")
	contents := "[pexels]\napi_key = \"file-pexels\"\n[pixabay]\napi_key = \"file-pixabay\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PEXELS_API_KEY", "env-pexels")
	t.Setenv("PIXABAY_API_KEY", "env-pixabay")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Pexels.APIKey != "env-pexels" {
		t.Errorf("expected Pexels key from env, got %q", cfg.Pexels.APIKey)
	}
	if cfg.Pixabay.APIKey != "env-pixabay" {
		t.Errorf("expected Pixabay key from env, got %q", cfg.Pixabay.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_pexels_api_key_here") {
		t.Fatalf("sample config missing placeholder Pexels key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Video.FPS != 30 {
		t.Fatalf("expected sample fps 30, got %d", cfg.Video.FPS)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"fps", func(c *config.Config) { c.Video.FPS = 0 }},
		{"width", func(c *config.Config) { c.Video.Width = 1 }},
		{"style", func(c *config.Config) { c.Video.Style = "noir" }},
		{"fit", func(c *config.Config) { c.Video.Fit = "letterbox" }},
		{"provider", func(c *config.Config) { c.Providers.Primary = "vimeo" }},
		{"local without dir", func(c *config.Config) { c.Providers.Fallback = "local" }},
		{"device", func(c *config.Config) { c.Transcription.Device = "tpu" }},
		{"volume", func(c *config.Config) { c.Music.Volume = 1.5 }},
		{"level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestParseResolution(t *testing.T) {
	w, h, err := config.ParseResolution("1280x720")
	if err != nil {
		t.Fatalf("ParseResolution: %v", err)
	}
	if w != 1280 || h != 720 {
		t.Fatalf("got %dx%d", w, h)
	}
	for _, bad := range []string{"", "1280", "0x720", "axb"} {
		if _, _, err := config.ParseResolution(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
