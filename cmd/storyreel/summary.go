package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"storyreel/internal/pipeline"
	"storyreel/internal/segment"
	"storyreel/internal/textutil"
)

// summaryQueryWidth caps the query column in the build summary.
const summaryQueryWidth = 40

func renderBuildSummary(res pipeline.Result) string {
	rows := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		q := textutil.TruncateRunes(row.Query, summaryQueryWidth)
		if row.Custom {
			q += " (custom)"
		}
		if row.Simplified != "" {
			q += " -> " + textutil.TruncateRunes(row.Simplified, summaryQueryWidth)
		}
		source := row.Source
		if source == "" {
			source = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(row.Index),
			segment.FormatTimestamp(row.Start) + " - " + segment.FormatTimestamp(row.End),
			q,
			row.Kind,
			source,
			yesNo(row.Reused),
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"#", "Time", "Query", "Kind", "Source", "Reused"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	fmt.Fprintf(&b, "\nOutput:       %s\n", res.Output)
	fmt.Fprintf(&b, "Duration:     %.2fs (narration %.2fs", res.Duration, res.Narration)
	switch {
	case res.Padded > 0:
		fmt.Fprintf(&b, ", padded %.2fs", res.Padded)
	case res.Trimmed > 0:
		fmt.Fprintf(&b, ", trimmed %.2fs", res.Trimmed)
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Segments:     %d (%d placeholder, %d reused)\n", len(res.Rows), res.Placeholders(), res.Reused())
	fmt.Fprintf(&b, "Music:        %s\n", yesNo(res.Music))
	fmt.Fprintf(&b, "Build:        %s in %s\n", res.BuildID, res.Elapsed.Round(100*time.Millisecond))
	return b.String()
}
