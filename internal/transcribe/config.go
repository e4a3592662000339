package transcribe

import "storyreel/internal/config"

// Config captures runtime settings for WhisperX runs.
type Config struct {
	// Model is the Whisper model size (e.g., "small", "large-v3").
	Model string
	// Device is "auto", "cpu" or "cuda". Auto runs on the CPU.
	Device string
	// Language forces a transcription language; empty lets WhisperX detect it.
	Language string
	// VADMethod selects voice activity detection ("silero" or "pyannote").
	VADMethod string
	FFmpeg    string
	UVX       string
}

// WhisperX invocation constants.
const (
	DefaultModel      = "small"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "8"
	BeamSize          = "5"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "int8"
	CUDAComputeType   = "float16"
	VADMethodSilero   = "silero"
	VADMethodPyannote = "pyannote"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)

// ConfigFrom maps the transcription section of cfg.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Model:     cfg.Transcription.Model,
		Device:    cfg.Transcription.Device,
		Language:  cfg.Transcription.Language,
		VADMethod: cfg.Transcription.VADMethod,
		FFmpeg:    cfg.FFmpegBinary(),
		UVX:       UVXCommand,
	}
}

func (c Config) cuda() bool {
	return c.Device == CUDADevice
}
