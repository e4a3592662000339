package segment

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"storyreel/internal/services"
)

var (
	cueTimingPattern = regexp.MustCompile(`((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})\s+-->\s+((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})`)
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// Load parses a .vtt or .srt caption file, chosen by extension.
func Load(path string) ([]Segment, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".vtt" && ext != ".srt" {
		return nil, services.Wrap(services.ErrConfiguration, "captions", "load", fmt.Sprintf("unsupported caption extension %q (want .vtt or .srt)", ext), nil)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "captions", "open", path, err)
	}
	defer file.Close()

	segments, err := Parse(file)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "captions", "parse", path, err)
	}
	return segments, nil
}

// Parse reads cues from WebVTT or SubRip content. Both formats share the
// "start --> end" timing line followed by text lines up to a blank line, so
// one scanner handles either. Cues with no text after cleaning are dropped but
// still consume an index, keeping indexes aligned with the source cue order.
func Parse(r io.Reader) ([]Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		segments []Segment
		cue      = -1
	)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		matches := cueTimingPattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		cue++
		start, err := ParseTimestamp(matches[1])
		if err != nil {
			return nil, fmt.Errorf("cue %d start: %w", cue, err)
		}
		end, err := ParseTimestamp(matches[2])
		if err != nil {
			return nil, fmt.Errorf("cue %d end: %w", cue, err)
		}

		var lines []string
		for scanner.Scan() {
			textLine := strings.TrimSpace(scanner.Text())
			if textLine == "" {
				break
			}
			lines = append(lines, textLine)
		}
		text := CleanText(strings.Join(lines, " "))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Index: cue, Start: start, End: end, Text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

// CleanText strips markup tags and collapses whitespace.
func CleanText(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// ParseTimestamp converts HH:MM:SS.mmm, MM:SS.mmm or the SubRip comma form to seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var hours, minutes int
	var err error
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid hours in %q: %w", value, err)
		}
		parts = parts[1:]
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", value, err)
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q: %w", value, err)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(math.Round(seconds * 1000))
	h := millis / 3_600_000
	m := (millis % 3_600_000) / 60_000
	s := (millis % 60_000) / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// WriteVTT writes segments as a WebVTT document.
func WriteVTT(w io.Writer, segments []Segment) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("WEBVTT\n\n"); err != nil {
		return err
	}
	for _, s := range segments {
		if _, err := fmt.Fprintf(bw, "%s --> %s\n%s\n\n", FormatTimestamp(s.Start), FormatTimestamp(s.End), s.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteVTTFile writes segments to path, creating parent directories.
func WriteVTTFile(path string, segments []Segment) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create captions directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create captions file: %w", err)
	}
	if err := WriteVTT(file, segments); err != nil {
		file.Close()
		return fmt.Errorf("write captions: %w", err)
	}
	return file.Close()
}
