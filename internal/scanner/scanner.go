// Package scanner discovers project and solution files below a set of root
// directories.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/reffix/internal/msbuild"
	"github.com/leapstack-labs/reffix/internal/solution"
)

// Scanner walks directory trees through a FileSystem.
type Scanner struct {
	fs     FileSystem
	logger *slog.Logger
}

// New creates a scanner. A nil fs uses the local disk.
func New(fsys FileSystem, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if fsys == nil {
		fsys = NewOSFileSystem(logger)
	}
	return &Scanner{fs: fsys, logger: logger}
}

// ListProjectFiles returns the projects found below every root. Subdirectories
// whose cleaned path is in excluded are skipped, together with everything
// below them. Any directory that cannot be listed fails the scan.
func (s *Scanner) ListProjectFiles(ctx context.Context, roots, excluded []string) ([]*msbuild.Project, error) {
	skip := make(map[string]bool, len(excluded))
	for _, dir := range excluded {
		skip[filepath.Clean(dir)] = true
	}

	var projects []*msbuild.Project
	for _, root := range roots {
		found, err := s.scan(ctx, root, skip)
		if err != nil {
			return projects, err
		}
		s.logger.Info("found projects", "count", len(found), "path", root)
		projects = append(projects, found...)
	}
	return projects, nil
}

// walk is the state of one scan. mu guards every merge into a parent's result.
type walk struct {
	fs   FileSystem
	skip map[string]bool
	mu   sync.Mutex
}

func (s *Scanner) scan(ctx context.Context, root string, skip map[string]bool) ([]*msbuild.Project, error) {
	w := &walk{fs: s.fs, skip: skip}
	projects, err := w.dir(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].FullPath() < projects[j].FullPath()
	})
	return projects, nil
}

// dir lists the projects in dir, then forks one task per subdirectory and
// joins their results.
func (w *walk) dir(ctx context.Context, dir string) ([]*msbuild.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	projects, err := w.fs.Projects(dir)
	if err != nil {
		return nil, err
	}
	subdirs, err := w.fs.Directories(dir)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range subdirs {
		if w.skip[filepath.Clean(sub)] {
			continue
		}
		g.Go(func() error {
			found, err := w.dir(gctx, sub)
			if err != nil {
				return err
			}
			w.mu.Lock()
			projects = append(projects, found...)
			w.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return projects, nil
}

// ListSolutionFiles parses every solution file below the roots. A solution
// that disappears before it can be read is dropped.
func (s *Scanner) ListSolutionFiles(ctx context.Context, roots []string) ([]*solution.Document, error) {
	var docs []*solution.Document
	for _, root := range roots {
		found, err := s.solutions(ctx, root)
		if err != nil {
			return docs, err
		}
		s.logger.Info("found solutions", "count", len(found), "path", root)
		docs = append(docs, found...)
	}
	return docs, nil
}

func (s *Scanner) solutions(ctx context.Context, root string) ([]*solution.Document, error) {
	var docs []*solution.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), solution.Extension) {
			return nil
		}

		doc, err := solution.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("solution disappeared before it was read", "path", path)
			return nil
		}
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing solutions in %s: %w", root, err)
	}
	return docs, nil
}
