package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/deps"
	"storyreel/internal/logging"
	"storyreel/internal/preflight"
	"storyreel/internal/services"
	"storyreel/internal/staging"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, external tools and providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			printSection := func(title string, lines []string) {
				for _, line := range renderSectionHeader(title, colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out)
			}

			printSection("Configuration", configurationLines(ctx, cfg, colorize))

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			failures += len(deps.MissingRequired(statuses))
			printSection("Dependencies", dependencyLines(statuses, colorize))

			dirResults := preflight.RunAll(cmd.Context(), cfg)
			failures += len(preflight.Failed(dirResults))
			printSection("Directories", resultLines(dirResults, colorize))

			if offline {
				printSection("Providers", []string{renderStatusLine("Providers", statusInfo, "skipped (--offline)", colorize)})
			} else {
				providerResults := preflight.CheckProviders(cmd.Context(), cfg)
				failures += len(preflight.Failed(providerResults))
				printSection("Providers", resultLines(providerResults, colorize))
			}

			printSection("Build directories", buildDirLines(cfg.Paths.WorkDir, colorize))

			if failures > 0 {
				return services.Wrap(services.ErrConfiguration, "cli", "doctor", fmt.Sprintf("%d check(s) failed", failures), nil)
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip provider connectivity checks")
	return cmd
}

func configurationLines(ctx *commandContext, cfg *config.Config, colorize bool) []string {
	lines := make([]string, 0, 4)
	if ctx.configSeen {
		lines = append(lines, renderStatusLine("Config file", statusOK, ctx.configPath, colorize))
	} else {
		lines = append(lines, renderStatusLine("Config file", statusWarn, ctx.configPath+" not found, using defaults", colorize))
	}
	lines = append(lines, renderStatusLine("Primary source", statusInfo, cfg.Providers.Primary, colorize))
	fallback := cfg.Providers.Fallback
	if strings.TrimSpace(fallback) == "" {
		fallback = "none"
	}
	lines = append(lines, renderStatusLine("Fallback source", statusInfo, fallback, colorize))
	lines = append(lines, renderStatusLine("Output", statusInfo,
		fmt.Sprintf("%dx%d @ %d fps, %s", cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS, cfg.Video.Codec), colorize))
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Version != "" {
				message = fmt.Sprintf("Ready (%s)", dep.Version)
			} else if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func resultLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
			if r.Optional {
				kind = statusWarn
			}
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	if len(lines) == 0 {
		lines = append(lines, renderStatusLine("Checks", statusInfo, "nothing to check", colorize))
	}
	return lines
}

func buildDirLines(workDir string, colorize bool) []string {
	dirs, err := staging.ListDirectories(workDir)
	if err != nil {
		return []string{renderStatusLine("Work dir", statusWarn, err.Error(), colorize)}
	}
	if len(dirs) == 0 {
		return []string{renderStatusLine("Leftovers", statusOK, "none", colorize)}
	}
	var total int64
	stale := 0
	for _, dir := range dirs {
		total += dir.Size
		if time.Since(dir.ModTime) > staging.DefaultMaxAge {
			stale++
		}
	}
	kind := statusInfo
	if stale > 0 {
		kind = statusWarn
	}
	return []string{renderStatusLine("Leftovers", kind,
		fmt.Sprintf("%d dir(s), %s, %d stale", len(dirs), logging.FormatBytes(total), stale), colorize)}
}
