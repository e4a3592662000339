package config

const (
	defaultWorkDir           = "_auto_tmp"
	defaultLogDir            = "~/.local/share/storyreel/logs"
	defaultWidth             = 1920
	defaultHeight            = 1080
	defaultFPS               = 30
	defaultStyle             = "general"
	defaultFit               = "cover"
	defaultMinSegmentSeconds = 0.12
	defaultCodec             = "libx264"
	defaultAudioCodec        = "aac"
	defaultPreset            = "medium"
	defaultThreads           = 4
	defaultPrimaryProvider   = "pexels"
	defaultFallbackProvider  = "pixabay"
	defaultImageFallback     = "auto"
	defaultPerQuery          = 6
	defaultProviderTimeout   = 20
	defaultPexelsBaseURL     = "https://api.pexels.com"
	defaultPixabayBaseURL    = "https://pixabay.com/api"
	defaultYTDLPBinary       = "yt-dlp"
	defaultYouTubeMaxResults = 5
	defaultYouTubeMaxHeight  = 1080
	defaultYouTubeSection    = 60
	defaultWhisperModel      = "small"
	defaultWhisperDevice     = "auto"
	defaultWhisperVADMethod  = "silero"
	defaultMusicVolume       = 0.1
	defaultCacheMaxMiB       = 4096
	defaultMinAssetBytes     = 10000
	defaultRenderWorkers     = 2
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		Video: Video{
			Width:             defaultWidth,
			Height:            defaultHeight,
			FPS:               defaultFPS,
			Style:             defaultStyle,
			Fit:               defaultFit,
			Subtitles:         true,
			Transitions:       false,
			FullTextQueries:   true,
			MinSegmentSeconds: defaultMinSegmentSeconds,
			Codec:             defaultCodec,
			AudioCodec:        defaultAudioCodec,
			Preset:            defaultPreset,
			Threads:           defaultThreads,
		},
		Providers: Providers{
			Primary:       defaultPrimaryProvider,
			Fallback:      defaultFallbackProvider,
			ImageFallback: defaultImageFallback,
			PerQuery:      defaultPerQuery,
			TimeoutSecs:   defaultProviderTimeout,
		},
		Pexels:  Pexels{BaseURL: defaultPexelsBaseURL},
		Pixabay: Pixabay{BaseURL: defaultPixabayBaseURL},
		YouTube: YouTube{
			Binary:        defaultYTDLPBinary,
			MaxResults:    defaultYouTubeMaxResults,
			MaxHeight:     defaultYouTubeMaxHeight,
			SectionLength: defaultYouTubeSection,
		},
		Transcription: Transcription{
			Model:     defaultWhisperModel,
			Device:    defaultWhisperDevice,
			VADMethod: defaultWhisperVADMethod,
		},
		Music: Music{
			Enabled: true,
			Volume:  defaultMusicVolume,
		},
		Cache: Cache{
			MaxMiB:        defaultCacheMaxMiB,
			MinAssetBytes: defaultMinAssetBytes,
		},
		Render: Render{Workers: defaultRenderWorkers},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
