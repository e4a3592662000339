package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Prefix marks directories owned by storyreel inside the work directory.
const Prefix = "build-"

// DirInfo contains metadata about a build directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// Create makes the scratch directory for buildID under workDir.
func Create(workDir, buildID string) (string, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return "", fmt.Errorf("staging: work directory is empty")
	}
	id := strings.TrimSpace(buildID)
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return "", fmt.Errorf("staging: build id is empty")
	}
	dir := filepath.Join(workDir, Prefix+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create build dir: %w", err)
	}
	return dir, nil
}

// Remove deletes a build directory. Paths outside the naming scheme are refused.
func Remove(dir string) error {
	if !strings.HasPrefix(filepath.Base(dir), Prefix) {
		return fmt.Errorf("staging: refusing to remove %s", dir)
	}
	return os.RemoveAll(dir)
}

// ListDirectories returns the build directories under workDir with their metadata.
func ListDirectories(workDir string) ([]DirInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(workDir, entry.Name())
		size, _ := dirSize(path)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	return dirs, nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
