package sources

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

// CommandOutput runs an external command and returns its stdout.
type CommandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)

// YouTube searches YouTube through yt-dlp's "ytsearchN:" pseudo-URL.
type YouTube struct {
	binary     string
	maxResults int
	run        CommandOutput
}

// NewYouTube creates a yt-dlp backed video source.
func NewYouTube(binary string, maxResults int) *YouTube {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	return &YouTube{binary: binary, maxResults: maxResults, run: execOutput}
}

// WithCommandRunner swaps the command runner (for testing).
func (y *YouTube) WithCommandRunner(run CommandOutput) *YouTube {
	y.run = run
	return y
}

func (y *YouTube) Name() string { return "youtube" }

func (y *YouTube) Kind() Kind { return KindVideo }

// Search lists video IDs without downloading and returns watch URLs.
func (y *YouTube) Search(ctx context.Context, query string, count int) Result {
	n := count
	if y.maxResults > 0 && (n <= 0 || n > y.maxResults) {
		n = y.maxResults
	}
	n = max(1, n)
	args := []string{
		"--flat-playlist",
		"--get-id",
		"--no-warnings",
		"--match-filter", "!is_live",
		fmt.Sprintf("ytsearch%d:%s", n, query),
	}
	out, err := y.run(ctx, y.binary, args...)
	if err != nil {
		return Failed(y.Name(), err)
	}

	var locators []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" || strings.ContainsAny(id, " /") {
			continue
		}
		locators = append(locators, youtubeWatchURL+id)
	}
	return Found(y.Name(), locators)
}

// IsYouTubeURL reports whether locator points at a YouTube video page.
func IsYouTubeURL(locator string) bool {
	return strings.HasPrefix(locator, youtubeWatchURL) ||
		strings.HasPrefix(locator, "https://youtu.be/") ||
		strings.HasPrefix(locator, "https://youtube.com/watch")
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
