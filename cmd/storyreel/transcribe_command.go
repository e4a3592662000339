package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"storyreel/internal/deps"
	"storyreel/internal/segment"
	"storyreel/internal/services"
	"storyreel/internal/staging"
	"storyreel/internal/transcribe"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var audio, out, model, device, language string

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Generate WebVTT captions from narration audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(audio) == "" {
				return services.Wrap(services.ErrValidation, "cli", "transcribe", "--audio is required", nil)
			}
			if model != "" {
				cfg.Transcription.Model = model
			}
			if device != "" {
				cfg.Transcription.Device = strings.ToLower(device)
			}
			if language != "" {
				cfg.Transcription.Language = strings.ToLower(language)
			}
			if err := cfg.Validate(); err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "transcribe", "invalid settings", err)
			}
			logger, err := ctx.logger(cmd, cfg)
			if err != nil {
				return err
			}

			tcfg := transcribe.ConfigFrom(cfg)
			missing := deps.MissingRequired(deps.CheckBinaries(cmd.Context(), []deps.Requirement{
				{Name: "FFmpeg", Command: tcfg.FFmpeg},
				{Name: "uvx", Command: tcfg.UVX},
			}))
			if len(missing) > 0 {
				return services.Wrap(services.ErrExternalTool, "cli", "transcribe", "missing "+missing[0].Name, nil)
			}

			workDir, err := staging.Create(cfg.Paths.WorkDir, uuid.NewString())
			if err != nil {
				return err
			}
			defer func() { _ = staging.Remove(workDir) }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := transcribe.NewService(tcfg, logger).Transcribe(runCtx, audio, workDir)
			if err != nil {
				return err
			}
			if err := segment.WriteVTTFile(out, res.Segments); err != nil {
				return fmt.Errorf("write captions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d captions (%s) to %s\n", len(res.Segments), languageLabel(res.Language), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&audio, "audio", "", "Narration audio file")
	cmd.Flags().StringVar(&out, "out", "captions.vtt", "Destination WebVTT file")
	cmd.Flags().StringVar(&model, "whisper-model", "", "Whisper model (tiny, base, small, medium, large-v3)")
	cmd.Flags().StringVar(&device, "device", "", "Transcription device (auto, cpu, cuda)")
	cmd.Flags().StringVar(&language, "language", "", "Force a language code instead of detecting it")
	return cmd
}

func languageLabel(lang string) string {
	if lang == "" {
		return "language unknown"
	}
	return "language " + lang
}
