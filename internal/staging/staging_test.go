package staging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storyreel/internal/logging"
)

func TestCreateUsesShortBuildID(t *testing.T) {
	work := t.TempDir()
	dir, err := Create(work, "0123456789abcdef")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dir != filepath.Join(work, "build-01234567") {
		t.Fatalf("unexpected dir %q", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s: %v", dir, err)
	}

	if _, err := Create("", "abc"); err == nil {
		t.Fatal("expected error for empty work dir")
	}
	if _, err := Create(work, "  "); err == nil {
		t.Fatal("expected error for empty build id")
	}
}

func TestRemoveRefusesForeignDirectories(t *testing.T) {
	work := t.TempDir()
	foreign := filepath.Join(work, "keep-me")
	if err := os.Mkdir(foreign, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := Remove(foreign); err == nil {
		t.Fatal("expected refusal for non-build directory")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatal("foreign directory should survive")
	}

	dir, err := Create(work, "abc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := Remove(dir); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("build directory should be gone")
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldBuildDirectories(t *testing.T) {
	work := t.TempDir()
	old := filepath.Join(work, "build-old")
	recent := filepath.Join(work, "build-new")
	other := filepath.Join(work, "unrelated")
	for _, dir := range []string{old, recent, other} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(old, "clip-0000.mp4"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().Add(-2 * time.Hour)
	for _, dir := range []string{old, other} {
		if err := os.Chtimes(dir, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	result := CleanStale(context.Background(), work, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}
	if result.FreedBytes != 5 {
		t.Fatalf("expected 5 bytes freed, got %d", result.FreedBytes)
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("recent build directory should still exist")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("unrelated directory should still exist")
	}
}

func TestListDirectoriesReportsSize(t *testing.T) {
	work := t.TempDir()
	dir, err := Create(work, "sized")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte("123"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(work, "build-file.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := ListDirectories(work)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}
	if !strings.HasPrefix(dirs[0].Name, Prefix) || dirs[0].Size != 3 || dirs[0].ModTime.IsZero() {
		t.Fatalf("unexpected dir info: %+v", dirs[0])
	}
}
