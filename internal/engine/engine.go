// Package engine rewrites project references into assembly references across
// a directory tree and prunes the rewritten projects from solution files.
//
// An Engine is single use: Run moves it from StateInit through StateScanning
// and StateFixing to StateReporting and it cannot be run again.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/reffix/internal/msbuild"
	"github.com/leapstack-labs/reffix/internal/rules"
	"github.com/leapstack-labs/reffix/internal/scanner"
	"github.com/leapstack-labs/reffix/internal/solution"
)

// ErrAlreadyRun is returned when Run is called on an engine that has left StateInit.
var ErrAlreadyRun = errors.New("engine has already run")

// Project is the project file capability the engine edits.
// *msbuild.Project implements it.
type Project interface {
	FullPath() string
	Items(itemType string) []*msbuild.Item
	RemoveItems(items []*msbuild.Item)
	AddItem(itemType, include string, metadata []msbuild.Metadata) *msbuild.Item
	Save(path string) error
}

var _ Project = (*msbuild.Project)(nil)

// State is the phase of a run.
type State int

// Run phases, in order.
const (
	StateInit State = iota
	StateScanning
	StateFixing
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateScanning:
		return "scanning"
	case StateFixing:
		return "fixing"
	case StateReporting:
		return "reporting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine matches reference rules against the projects and solutions below
// the include paths.
type Engine struct {
	include []string
	exclude []string
	rules   *rules.Set
	fs      scanner.FileSystem
	scanner *scanner.Scanner
	logger  *slog.Logger
	dryRun  bool

	state            State
	changedProjects  []string
	changedSolutions []string
}

// Config holds engine configuration.
type Config struct {
	// Include are the root directories to scan.
	Include []string
	// Exclude are directories skipped while scanning for projects.
	Exclude []string
	// Rules is the rule set to apply (required).
	Rules *rules.Set
	// FileSystem lists directories and loads projects (optional, defaults to the local disk).
	FileSystem scanner.FileSystem
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// DryRun matches and records changes without writing any file.
	DryRun bool
}

// New creates an engine in StateInit.
func New(cfg Config) (*Engine, error) {
	if cfg.Rules == nil {
		return nil, fmt.Errorf("%w: rule set is required", ErrInvalidArgument)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsys := cfg.FileSystem
	if fsys == nil {
		fsys = scanner.NewOSFileSystem(logger)
	}

	logger.Debug("initializing engine", "include", cfg.Include, "exclude", cfg.Exclude,
		"rules", cfg.Rules.Len(), "dry_run", cfg.DryRun)

	return &Engine{
		include: cfg.Include,
		exclude: cfg.Exclude,
		rules:   cfg.Rules,
		fs:      fsys,
		scanner: scanner.New(fsys, logger),
		logger:  logger,
		dryRun:  cfg.DryRun,
	}, nil
}

// Result is what a run reports. It is filled in as far as the run got, also
// when Run returns an error.
type Result struct {
	ProjectsFound    int
	SolutionsFound   int
	ChangedProjects  []string
	ChangedSolutions []string
	Unmatched        []rules.Rule
	DryRun           bool
	Duration         time.Duration
}

// Summary returns a one-line human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("Modified %d projects and %d solutions", len(r.ChangedProjects), len(r.ChangedSolutions))
}

// Run scans the include paths, fixes every project and solution found, and
// reports the outcome. The first error stops the run; files saved before it
// stay saved.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.state != StateInit {
		return nil, fmt.Errorf("%w (state %s)", ErrAlreadyRun, e.state)
	}

	start := time.Now()
	result := &Result{DryRun: e.dryRun}
	defer func() {
		e.state = StateReporting
		result.ChangedProjects = e.ChangedProjects()
		result.ChangedSolutions = e.ChangedSolutions()
		result.Unmatched = e.rules.Unmatched()
		result.Duration = time.Since(start)
	}()

	e.logger.Info("starting run", "include", e.include, "dry_run", e.dryRun)

	e.state = StateScanning
	projects, err := e.ListProjects(ctx)
	result.ProjectsFound = len(projects)
	if err != nil {
		return result, fmt.Errorf("project discovery failed: %w", err)
	}
	solutions, err := e.ListSolutions(ctx)
	result.SolutionsFound = len(solutions)
	if err != nil {
		return result, fmt.Errorf("solution discovery failed: %w", err)
	}

	e.state = StateFixing
	for _, p := range projects {
		if _, err := e.FixProject(p); err != nil {
			return result, err
		}
	}
	for _, doc := range solutions {
		if _, err := e.FixSolution(doc); err != nil {
			return result, err
		}
	}

	e.logger.Info("run completed",
		"projects_changed", len(e.changedProjects),
		"solutions_changed", len(e.changedSolutions),
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// ListProjects returns the projects below the include paths, skipping excluded directories.
func (e *Engine) ListProjects(ctx context.Context) ([]*msbuild.Project, error) {
	return e.scanner.ListProjectFiles(ctx, e.include, e.exclude)
}

// ListSolutions returns the solutions below the include paths.
func (e *Engine) ListSolutions(ctx context.Context) ([]*solution.Document, error) {
	return e.scanner.ListSolutionFiles(ctx, e.include)
}

// State returns the current run phase.
func (e *Engine) State() State {
	return e.state
}

// ChangedProjects returns the paths of changed projects in the order they were fixed.
func (e *Engine) ChangedProjects() []string {
	return append([]string(nil), e.changedProjects...)
}

// ChangedSolutions returns the paths of changed solutions in the order they were fixed.
func (e *Engine) ChangedSolutions() []string {
	return append([]string(nil), e.changedSolutions...)
}

// Unmatched returns the rules no project has used so far.
func (e *Engine) Unmatched() []rules.Rule {
	return e.rules.Unmatched()
}
