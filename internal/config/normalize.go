package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVideo()
	c.normalizeProviders()
	c.normalizeCredentials()
	c.normalizeYouTube()
	if err := c.normalizeLocal(); err != nil {
		return err
	}
	c.normalizeTranscription()
	if err := c.normalizeMusic(); err != nil {
		return err
	}
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeVideo() {
	c.Video.Style = strings.ToLower(strings.TrimSpace(c.Video.Style))
	if c.Video.Style == "" {
		c.Video.Style = defaultStyle
	}
	c.Video.Fit = strings.ToLower(strings.TrimSpace(c.Video.Fit))
	if c.Video.Fit == "" {
		c.Video.Fit = defaultFit
	}
	c.Video.Codec = strings.TrimSpace(c.Video.Codec)
	if c.Video.Codec == "" {
		c.Video.Codec = defaultCodec
	}
	c.Video.AudioCodec = strings.TrimSpace(c.Video.AudioCodec)
	if c.Video.AudioCodec == "" {
		c.Video.AudioCodec = defaultAudioCodec
	}
	c.Video.Preset = strings.TrimSpace(c.Video.Preset)
	if c.Video.Preset == "" {
		c.Video.Preset = defaultPreset
	}
}

func (c *Config) normalizeProviders() {
	c.Providers.Primary = strings.ToLower(strings.TrimSpace(c.Providers.Primary))
	c.Providers.Fallback = strings.ToLower(strings.TrimSpace(c.Providers.Fallback))
	c.Providers.ImageFallback = strings.ToLower(strings.TrimSpace(c.Providers.ImageFallback))
	if c.Providers.ImageFallback == "" {
		c.Providers.ImageFallback = defaultImageFallback
	}
	if c.Providers.PerQuery <= 0 {
		c.Providers.PerQuery = defaultPerQuery
	}
	if c.Providers.TimeoutSecs <= 0 {
		c.Providers.TimeoutSecs = defaultProviderTimeout
	}
}

func (c *Config) normalizeCredentials() {
	c.Pexels.APIKey = strings.TrimSpace(c.Pexels.APIKey)
	if value, ok := os.LookupEnv("PEXELS_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Pexels.APIKey = strings.TrimSpace(value)
	}
	c.Pexels.BaseURL = strings.TrimRight(strings.TrimSpace(c.Pexels.BaseURL), "/")
	if c.Pexels.BaseURL == "" {
		c.Pexels.BaseURL = defaultPexelsBaseURL
	}

	c.Pixabay.APIKey = strings.TrimSpace(c.Pixabay.APIKey)
	if value, ok := os.LookupEnv("PIXABAY_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Pixabay.APIKey = strings.TrimSpace(value)
	}
	c.Pixabay.BaseURL = strings.TrimRight(strings.TrimSpace(c.Pixabay.BaseURL), "/")
	if c.Pixabay.BaseURL == "" {
		c.Pixabay.BaseURL = defaultPixabayBaseURL
	}
}

func (c *Config) normalizeYouTube() {
	c.YouTube.Binary = strings.TrimSpace(c.YouTube.Binary)
	if c.YouTube.Binary == "" {
		c.YouTube.Binary = defaultYTDLPBinary
	}
	if c.YouTube.MaxResults <= 0 {
		c.YouTube.MaxResults = defaultYouTubeMaxResults
	}
	if c.YouTube.MaxHeight <= 0 {
		c.YouTube.MaxHeight = defaultYouTubeMaxHeight
	}
	if c.YouTube.SectionLength <= 0 {
		c.YouTube.SectionLength = defaultYouTubeSection
	}
}

func (c *Config) normalizeLocal() error {
	var err error
	if c.Local.Dir, err = expandPath(strings.TrimSpace(c.Local.Dir)); err != nil {
		return fmt.Errorf("local.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.Device = strings.ToLower(strings.TrimSpace(c.Transcription.Device))
	if c.Transcription.Device == "" {
		c.Transcription.Device = defaultWhisperDevice
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultWhisperVADMethod
	}
}

func (c *Config) normalizeMusic() error {
	var err error
	if c.Music.Path, err = expandPath(strings.TrimSpace(c.Music.Path)); err != nil {
		return fmt.Errorf("music.path: %w", err)
	}
	c.Music.URL = strings.TrimSpace(c.Music.URL)
	return nil
}

func (c *Config) normalizeCache() {
	if c.Cache.MaxMiB <= 0 {
		c.Cache.MaxMiB = defaultCacheMaxMiB
	}
	if c.Cache.MinAssetBytes <= 0 {
		c.Cache.MinAssetBytes = defaultMinAssetBytes
	}
	if c.Render.Workers <= 0 {
		c.Render.Workers = defaultRenderWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("STORYREEL_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
