package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"storyreel/internal/textutil"
)

var (
	videoExtensions = []string{".mp4", ".mov", ".m4v", ".mkv", ".webm"}
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
)

// Local matches query words against file names in a directory.
type Local struct {
	dir  string
	kind Kind
}

// NewLocal creates a directory-backed source.
func NewLocal(dir string, kind Kind) (*Local, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("local: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local: %s is not a directory", dir)
	}
	return &Local{dir: dir, kind: kind}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) Kind() Kind { return l.kind }

// Search returns files whose names share at least one word with query,
// best matches first.
func (l *Local) Search(ctx context.Context, query string, count int) Result {
	if err := ctx.Err(); err != nil {
		return Failed(l.Name(), err)
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return Failed(l.Name(), err)
	}
	exts := videoExtensions
	if l.kind == KindImage {
		exts = imageExtensions
	}

	want := wordSet(query)
	if len(want) == 0 {
		return Failed(l.Name(), errors.New("query has no words"))
	}
	type scored struct {
		path  string
		score int
	}
	var matches []scored
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !slices.Contains(exts, strings.ToLower(filepath.Ext(name))) {
			continue
		}
		score := 0
		for w := range wordSet(strings.TrimSuffix(name, filepath.Ext(name))) {
			if _, ok := want[w]; ok {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{path: filepath.Join(l.dir, name), score: score})
		}
	}
	slices.SortStableFunc(matches, func(a, b scored) int { return b.score - a.score })

	locators := make([]string, 0, len(matches))
	for _, m := range matches {
		if count > 0 && len(locators) == count {
			break
		}
		locators = append(locators, m.path)
	}
	return Found(l.Name(), locators)
}

func wordSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range textutil.Words(strings.NewReplacer("_", " ", ".", " ").Replace(text)) {
		if len(w) > 2 {
			set[textutil.SanitizeToken(w)] = struct{}{}
		}
	}
	return set
}
