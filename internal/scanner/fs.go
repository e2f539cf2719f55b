package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/reffix/internal/msbuild"
)

// FileSystem is the directory capability the scanner and engine depend on.
type FileSystem interface {
	// Projects loads every project file directly inside dir. Files that fail
	// to load are left out of the result.
	Projects(dir string) ([]*msbuild.Project, error)
	// Directories lists the immediate subdirectories of dir as full paths.
	Directories(dir string) ([]string, error)
	// DirectoryName returns the directory containing path, or "" when path has none.
	DirectoryName(path string) string
}

// OSFileSystem implements FileSystem on the local disk.
// Symbolic links to directories are not followed.
type OSFileSystem struct {
	logger *slog.Logger
}

// NewOSFileSystem creates a file system backed by the os package.
func NewOSFileSystem(logger *slog.Logger) *OSFileSystem {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OSFileSystem{logger: logger}
}

// Projects implements FileSystem.
func (f *OSFileSystem) Projects(dir string) ([]*msbuild.Project, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects in %s: %w", dir, err)
	}

	var projects []*msbuild.Project
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), msbuild.Extension) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		project, err := msbuild.Load(path)
		if err != nil {
			f.logger.Warn("skipping project that failed to load", "path", path, "error", err.Error())
			continue
		}
		projects = append(projects, project)
	}
	return projects, nil
}

// Directories implements FileSystem.
func (f *OSFileSystem) Directories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directories in %s: %w", dir, err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(dir, entry.Name()))
		}
	}
	return dirs, nil
}

// DirectoryName implements FileSystem.
func (f *OSFileSystem) DirectoryName(path string) string {
	if path == "" {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == path {
		return ""
	}
	return dir
}
