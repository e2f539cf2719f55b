package engine

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/reffix/internal/msbuild"
	"github.com/leapstack-labs/reffix/internal/rules"
	"github.com/leapstack-labs/reffix/internal/solution"
)

// match pairs a project reference item with the rule it matched.
type match struct {
	item *msbuild.Item
	rule rules.Rule
}

// FixProject replaces every project reference that a rule names with an
// assembly reference and saves the project. It reports whether the project
// changed; a nil project is never changed.
func (e *Engine) FixProject(p Project) (bool, error) {
	if p == nil {
		return false, nil
	}
	if mp, ok := p.(*msbuild.Project); ok && mp == nil {
		return false, nil
	}

	dir := e.fs.DirectoryName(p.FullPath())
	if dir == "" {
		return false, nil
	}

	var matches []match
	for _, item := range p.Items(msbuild.ItemProjectReference) {
		name := referencedFileName(dir, item.EvaluatedInclude())
		rule, ok := e.rules.Lookup(name)
		if !ok {
			continue
		}
		matches = append(matches, match{item: item, rule: rule})
	}
	if len(matches) == 0 {
		return false, nil
	}

	// Metadata is computed before any edit so a bad hint path leaves the project untouched.
	metadata := make([][]msbuild.Metadata, len(matches))
	for i, m := range matches {
		md, err := referenceMetadata(m.rule, p.FullPath())
		if err != nil {
			return false, fmt.Errorf("failed to fix %s: rule %s: %w", p.FullPath(), m.rule, err)
		}
		metadata[i] = md
	}

	items := make([]*msbuild.Item, 0, len(matches))
	for _, m := range matches {
		e.rules.MarkApplied(m.rule)
		items = append(items, m.item)
	}
	p.RemoveItems(items)
	for i, m := range matches {
		p.AddItem(msbuild.ItemReference, m.rule.AssemblyReference, metadata[i])
	}

	if !e.dryRun {
		if err := p.Save(p.FullPath()); err != nil {
			return false, fmt.Errorf("failed to save %s: %w", p.FullPath(), err)
		}
	}

	e.changedProjects = append(e.changedProjects, p.FullPath())
	e.logger.Info("fixed references", "project", filepath.Base(p.FullPath()), "references", len(matches))
	return true, nil
}

// FixSolution removes from doc the projects named by the rules and saves it.
// Every rule counts, whether or not it was applied to a project.
func (e *Engine) FixSolution(doc *solution.Document) (bool, error) {
	if doc == nil {
		return false, nil
	}
	names := e.rules.ProjectReferences()
	if len(names) == 0 {
		return false, nil
	}

	projects := doc.Projects(false)
	var remove []*solution.Project
	for _, name := range names {
		stem := fileStem(name)
		for _, p := range projects {
			if p.Name == stem {
				remove = append(remove, p)
				break
			}
		}
	}
	if len(remove) == 0 {
		return false, nil
	}

	doc.RemoveProjects(remove)

	if !e.dryRun {
		if err := doc.Save(); err != nil {
			return false, fmt.Errorf("failed to save solution %s: %w", doc.Path(), err)
		}
	}

	e.changedSolutions = append(e.changedSolutions, doc.Path())
	e.logger.Info("fixed solution", "solution", filepath.Base(doc.Path()), "removed", len(remove))
	return true, nil
}

// referencedFileName resolves an item include against the project directory
// and returns the file name it points to.
func referencedFileName(dir, include string) string {
	include = filepath.FromSlash(strings.ReplaceAll(include, `\`, "/"))
	if !filepath.IsAbs(include) {
		include = filepath.Join(dir, include)
	}
	return filepath.Base(filepath.Clean(include))
}

func fileStem(name string) string {
	name = filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// referenceMetadata builds the metadata of the assembly reference that replaces
// a project reference. projectPath is the full path of the edited project.
func referenceMetadata(rule rules.Rule, projectPath string) ([]msbuild.Metadata, error) {
	var md []msbuild.Metadata
	if rule.HintPath != "" {
		rel, err := MakeRelativePath(projectPath, rule.HintPath)
		if err != nil {
			return nil, err
		}
		md = append(md, msbuild.Metadata{
			Name:  msbuild.MetadataHintPath,
			Value: rel + `\` + rule.AssemblyReference,
		})
	}
	if rule.RequiredTargetFramework != "" {
		md = append(md, msbuild.Metadata{
			Name:  msbuild.MetadataRequiredTargetFramework,
			Value: rule.RequiredTargetFramework,
		})
	}
	if rule.SpecificVersion != nil {
		md = append(md, msbuild.Metadata{
			Name:  msbuild.MetadataSpecificVersion,
			Value: formatBool(*rule.SpecificVersion),
		})
	}
	return md, nil
}

// formatBool writes booleans the way MSBuild files spell them.
func formatBool(b bool) string {
	s := strconv.FormatBool(b)
	return strings.ToUpper(s[:1]) + s[1:]
}
