package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"storyreel/internal/logging"
	"storyreel/internal/segment"
	"storyreel/internal/services"
)

// CommandRunner executes an external command to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service runs WhisperX transcriptions.
type Service struct {
	cfg    Config
	run    CommandRunner
	logger *slog.Logger
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = FFmpegCommand
	}
	if cfg.UVX == "" {
		cfg.UVX = UVXCommand
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg, run: runCommand, logger: logging.NewComponentLogger(logger, "transcribe")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) *Service {
	if runner != nil {
		s.run = runner
	}
	return s
}

// Result is a finished transcription.
type Result struct {
	Segments []segment.Segment
	// Language is the language WhisperX detected or was told to use.
	Language string
	JSONPath string
}

// Transcribe converts audio to captions. workDir receives the intermediate
// WAV and the WhisperX JSON.
func (s *Service) Transcribe(ctx context.Context, audio, workDir string) (Result, error) {
	if strings.TrimSpace(audio) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcribe", "input", "audio path required", nil)
	}
	if _, err := os.Stat(audio); err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "transcribe", "input", audio, err)
	}
	if workDir == "" {
		workDir = filepath.Dir(audio)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("transcribe: ensure work dir: %w", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	wav := filepath.Join(workDir, "narration-16k.wav")
	if err := s.run(ctx, s.cfg.FFmpeg, extractArgs(audio, wav)...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "extract audio", audio, err)
	}

	logger.Info("running whisperx",
		logging.String("model", s.cfg.Model),
		logging.String("device", s.device()),
		logging.String("language", s.cfg.Language),
	)
	if err := s.run(ctx, s.cfg.UVX, s.buildArgs(wav, workDir)...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", err)
	}

	jsonPath := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(wav), filepath.Ext(wav))+".json")
	payload, err := loadPayload(jsonPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "parse transcript", jsonPath, err)
	}
	segs := payload.segments()
	lang := payload.Language
	if lang == "" {
		lang = s.cfg.Language
	}
	logger.Info("transcription complete",
		logging.Int("segments", len(segs)),
		logging.String("language", lang),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Result{Segments: segs, Language: lang, JSONPath: jsonPath}, nil
}

func (s *Service) device() string {
	if s.cfg.cuda() {
		return CUDADevice
	}
	return CPUDevice
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)
	if s.cfg.cuda() {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", s.cfg.Model,
		"--batch_size", BatchSize,
		"--beam_size", BeamSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
	)
	vad := s.cfg.VADMethod
	if vad == "" {
		vad = VADMethodSilero
	}
	args = append(args, "--vad_method", vad)
	if lang := strings.TrimSpace(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.cuda() {
		args = append(args, "--device", CUDADevice, "--compute_type", CUDAComputeType)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// extractArgs converts the first audio stream to mono 16 kHz PCM.
func extractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	// Torch 2.6 defaults torch.load to weights_only, which breaks WhisperX checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// whisperSegment is one transcript entry in WhisperX JSON output.
type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperPayload struct {
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

func loadPayload(path string) (whisperPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return whisperPayload{}, err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return whisperPayload{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

// segments converts transcript entries, keeping ordinal indices and
// dropping entries with no text.
func (p whisperPayload) segments() []segment.Segment {
	out := make([]segment.Segment, 0, len(p.Segments))
	for i, ws := range p.Segments {
		text := segment.CleanText(ws.Text)
		if text == "" {
			continue
		}
		out = append(out, segment.Segment{Index: i, Start: ws.Start, End: ws.End, Text: text})
	}
	return out
}
