package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	knownStyles    = []string{"general", "cinematic", "nature", "tech"}
	knownFits      = []string{"cover", "stretch"}
	knownProviders = []string{"pexels", "pixabay", "youtube", "local", "none"}
	knownDevices   = []string{"auto", "cpu", "cuda"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateMusic(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Width < 2 || c.Video.Height < 2 {
		return errors.New("video.width and video.height must be at least 2")
	}
	if c.Video.FPS <= 0 {
		return errors.New("video.fps must be positive")
	}
	if !slices.Contains(knownStyles, c.Video.Style) {
		return fmt.Errorf("video.style: unsupported value %q (want one of %v)", c.Video.Style, knownStyles)
	}
	if !slices.Contains(knownFits, c.Video.Fit) {
		return fmt.Errorf("video.fit: unsupported value %q (want one of %v)", c.Video.Fit, knownFits)
	}
	if c.Video.MinSegmentSeconds < 0 {
		return errors.New("video.min_segment_seconds must be non-negative")
	}
	if c.Video.Threads < 0 {
		return errors.New("video.threads must be non-negative")
	}
	return nil
}

func (c *Config) validateProviders() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"providers.primary", c.Providers.Primary},
		{"providers.fallback", c.Providers.Fallback},
	} {
		if field.value == "" {
			continue
		}
		if !slices.Contains(knownProviders, field.value) {
			return fmt.Errorf("%s: unsupported value %q (want one of %v)", field.name, field.value, knownProviders)
		}
	}
	switch c.Providers.ImageFallback {
	case "auto", "pexels", "pixabay", "none":
	default:
		return fmt.Errorf("providers.image_fallback: unsupported value %q", c.Providers.ImageFallback)
	}
	if (c.Providers.Primary == "local" || c.Providers.Fallback == "local") && c.Local.Dir == "" {
		return errors.New("local.dir must be set when the local provider is selected")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if !slices.Contains(knownDevices, c.Transcription.Device) {
		return fmt.Errorf("transcription.device: unsupported value %q (want one of %v)", c.Transcription.Device, knownDevices)
	}
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method: unsupported value %q", c.Transcription.VADMethod)
	}
	return nil
}

func (c *Config) validateMusic() error {
	if c.Music.Volume < 0 || c.Music.Volume > 1 {
		return errors.New("music.volume must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
