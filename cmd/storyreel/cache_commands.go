package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"storyreel/internal/assetcache"
	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

// cacheLockTimeout bounds how long prune waits for a running build.
const cacheLockTimeout = 10 * time.Second

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the downloaded asset cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var list, asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show asset cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache, err := openCache(cmd, ctx, cfg)
			if err != nil {
				return err
			}
			defer cache.Close()

			stats, err := cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				if !list {
					stats.Items = nil
				}
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:   %s\n", stats.Root)
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:    %s / %s\n", logging.FormatBytes(stats.TotalBytes), limitLabel(stats.MaxBytes))
			if stats.Entries > 0 {
				const stampLayout = "2006-01-02 15:04"
				fmt.Fprintf(out, "Used:    %s .. %s\n",
					stats.Oldest.Local().Format(stampLayout),
					stats.Newest.Local().Format(stampLayout))
			}
			if list {
				printCacheEntries(out, stats.Items)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List cached assets")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print stats as JSON")
	return cmd
}

func printCacheEntries(out io.Writer, entries []assetcache.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached assets: none")
		return
	}
	const stampLayout = "2006-01-02 15:04"
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Kind,
			logging.FormatBytes(e.SizeBytes),
			e.LastUsedAt.Local().Format(stampLayout),
			truncateMiddle(e.Locator, 60),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Kind", "Size", "Last used", "Locator"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var maxMiB int
	var all bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Evict least recently used assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache, err := openCache(cmd, ctx, cfg)
			if err != nil {
				return err
			}
			defer cache.Close()

			limit := cache.MaxBytes()
			switch {
			case all:
				limit = 0
			case cmd.Flags().Changed("max-mib"):
				if maxMiB < 0 {
					return services.Wrap(services.ErrValidation, "cli", "cache prune", "--max-mib must be >= 0", nil)
				}
				limit = int64(maxMiB) << 20
			case limit <= 0:
				fmt.Fprintln(cmd.OutOrStdout(), "Cache has no size limit (set cache.max_mib or pass --max-mib)")
				return nil
			}

			lockCtx, cancel := context.WithTimeout(cmd.Context(), cacheLockTimeout)
			defer cancel()
			if err := cache.Lock(lockCtx); err != nil {
				return services.Wrap(services.ErrTransient, "cli", "cache prune", "asset cache is in use by another build", err)
			}
			defer func() { _ = cache.Unlock() }()

			report, err := cache.Prune(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.Removed == 0 {
				fmt.Fprintf(out, "No cache entries pruned (%s in use)\n", logging.FormatBytes(report.Remaining))
				return nil
			}
			fmt.Fprintf(out, "Pruned %d asset(s), freed %s (now %s / %s)\n",
				report.Removed,
				logging.FormatBytes(report.FreedBytes),
				logging.FormatBytes(report.Remaining),
				limitLabel(limit))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxMiB, "max-mib", 0, "Target size in MiB (default: cache.max_mib)")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every cached asset")
	cmd.MarkFlagsMutuallyExclusive("max-mib", "all")
	return cmd
}

func openCache(cmd *cobra.Command, ctx *commandContext, cfg *config.Config) (*assetcache.Cache, error) {
	logger, err := ctx.logger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return assetcache.OpenFromConfig(cfg, logger)
}

func limitLabel(maxBytes int64) string {
	if maxBytes <= 0 {
		return "unlimited"
	}
	return logging.FormatBytes(maxBytes)
}

func truncateMiddle(value string, limit int) string {
	runes := []rune(value)
	if limit < 5 || len(runes) <= limit {
		return value
	}
	half := (limit - 3) / 2
	return string(runes[:half]) + "..." + string(runes[len(runes)-(limit-3-half):])
}

