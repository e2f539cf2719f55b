// Package report writes the change log that lists every file a run modified.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ChangeLog renders the change log for the given changed files. It returns ""
// when nothing changed.
func ChangeLog(projects, solutions []string) string {
	var sb strings.Builder
	if len(projects) > 0 {
		fmt.Fprintf(&sb, "Projects:\n%s\n", strings.Join(projects, "\n"))
	}
	if len(solutions) > 0 {
		fmt.Fprintf(&sb, "\nSolution Files:\n%s", strings.Join(solutions, "\n"))
	}
	return sb.String()
}

// WriteChangeLog writes the change log to path, replacing any previous one.
// Nothing is written when nothing changed; the result reports whether a file
// was written.
func WriteChangeLog(path string, projects, solutions []string) (bool, error) {
	content := ChangeLog(projects, solutions)
	if content == "" {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, fmt.Errorf("failed to create change log directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // G306: change log is meant to be read
		return false, fmt.Errorf("failed to write change log %s: %w", path, err)
	}
	return true, nil
}
