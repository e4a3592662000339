package assetcache

import (
	"context"
	"errors"
	"os"
	"time"

	"storyreel/internal/logging"
)

// Stats describes current cache usage.
type Stats struct {
	Root       string    `json:"root"`
	Entries    int       `json:"entries"`
	TotalBytes int64     `json:"total_bytes"`
	MaxBytes   int64     `json:"max_bytes"`
	Oldest     time.Time `json:"oldest"`
	Newest     time.Time `json:"newest"`
	Items      []Entry   `json:"items"`
}

// PruneReport summarizes an eviction pass.
type PruneReport struct {
	Removed    int   `json:"removed"`
	FreedBytes int64 `json:"freed_bytes"`
	Remaining  int64 `json:"remaining_bytes"`
}

// Stats reports the indexed entries and their total size.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	entries, err := c.index.entries(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Root: c.root, Entries: len(entries), MaxBytes: c.maxBytes, Items: entries}
	for i, e := range entries {
		s.TotalBytes += e.SizeBytes
		if i == 0 {
			s.Oldest = e.LastUsedAt
		}
		s.Newest = e.LastUsedAt
	}
	return s, nil
}

// Prune evicts least recently used entries until the indexed total is at most
// maxBytes; zero empties the cache. Entries whose file has vanished are dropped
// from the index without counting toward the total.
func (c *Cache) Prune(ctx context.Context, maxBytes int64) (PruneReport, error) {
	maxBytes = max(maxBytes, 0)
	entries, err := c.index.entries(ctx)
	if err != nil {
		return PruneReport{}, err
	}

	var report PruneReport
	live := entries[:0]
	for _, e := range entries {
		if _, err := os.Stat(e.Path); errors.Is(err, os.ErrNotExist) {
			_ = c.index.remove(ctx, e.Locator)
			continue
		}
		report.Remaining += e.SizeBytes
		live = append(live, e)
	}

	for _, e := range live {
		if report.Remaining <= maxBytes {
			break
		}
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return report, err
		}
		if err := c.index.remove(ctx, e.Locator); err != nil {
			return report, err
		}
		report.Removed++
		report.FreedBytes += e.SizeBytes
		report.Remaining -= e.SizeBytes
		c.logger.InfoContext(ctx, "pruned cached asset",
			logging.String("path", e.Path),
			logging.Int64("size_bytes", e.SizeBytes),
		)
	}
	return report, nil
}
