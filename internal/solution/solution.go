// Package solution reads, edits and writes Visual Studio solution (.sln) files.
//
// Only the project header lines are understood structurally:
//
//	Project("{PARENT-GUID}") = "Name", "Relative\Path.csproj", "{PROJECT-GUID}"
//
// Every other line (EndProject, Global sections, configuration platforms, blank
// lines) is kept as opaque text so that a document saved without edits matches
// its source, except for the trailing line terminator which is dropped.
package solution

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// Extension is the file extension of solution files.
const Extension = ".sln"

// headerPattern matches a complete project header line.
var headerPattern = regexp.MustCompile(
	`^Project\("(?P<parent>\{[A-F0-9-]+\})"\) = "(?P<name>.*?)", "(?P<path>.*?)", "(?P<guid>\{[A-F0-9-]+\})"$`)

var (
	parentIndex = headerPattern.SubexpIndex("parent")
	nameIndex   = headerPattern.SubexpIndex("name")
	pathIndex   = headerPattern.SubexpIndex("path")
	guidIndex   = headerPattern.SubexpIndex("guid")
)

// Project is a project header parsed from a solution file.
// Solution folders are projects whose RelativePath equals their Name.
type Project struct {
	ParentGUID   string
	Name         string
	RelativePath string
	GUID         string

	// cr is set when the source line carried a carriage return that is not
	// part of the document's line separator.
	cr bool
}

// IsFolder reports whether the project is a solution folder pseudo-project.
func (p *Project) IsFolder() bool {
	return p.RelativePath == p.Name
}

// String renders the project as a solution header line.
func (p *Project) String() string {
	return `Project("` + p.ParentGUID + `") = "` + p.Name + `", "` + p.RelativePath + `", "` + p.GUID + `"`
}

// Entry is one line of a solution document: either opaque text or a project header.
type Entry struct {
	Text    string
	Project *Project
}

// IsProject reports whether the entry holds a parsed project header.
func (e Entry) IsProject() bool {
	return e.Project != nil
}

func (e Entry) render() string {
	if e.Project == nil {
		return e.Text
	}
	if e.Project.cr {
		return e.Project.String() + "\r"
	}
	return e.Project.String()
}

// Document is a solution file loaded into memory.
type Document struct {
	path    string
	newline string
	entries []Entry
}

// Load reads and parses the solution file at path.
// A missing file yields an error matching fs.ErrNotExist.
func Load(path string) (*Document, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a directory walk
	if err != nil {
		return nil, fmt.Errorf("failed to read solution %s: %w", path, err)
	}
	return Parse(path, string(content)), nil
}

// Parse builds a document from the full text of a solution file. It never
// fails: lines that are not project headers are kept verbatim.
func Parse(path, text string) *Document {
	doc := &Document{path: path, newline: "\n"}

	if text == "" {
		return doc
	}

	lines := strings.Split(text, "\n")
	// A terminator after the last line ends that line, it does not open a new one.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	terminated := len(lines)
	if !strings.HasSuffix(text, "\n") {
		// A carriage return on an unterminated last line is content.
		terminated--
	}
	if crlf(lines[:terminated]) {
		doc.newline = "\r\n"
		for i := range lines[:terminated] {
			lines[i] = strings.TrimSuffix(lines[i], "\r")
		}
	}

	doc.entries = make([]Entry, 0, len(lines))
	for _, line := range lines {
		doc.entries = append(doc.entries, parseLine(line))
	}
	return doc
}

// crlf reports whether every terminated line ends with a carriage return.
func crlf(terminated []string) bool {
	if len(terminated) == 0 {
		return false
	}
	for _, line := range terminated {
		if !strings.HasSuffix(line, "\r") {
			return false
		}
	}
	return true
}

func parseLine(line string) Entry {
	body, cr := strings.CutSuffix(line, "\r")
	m := headerPattern.FindStringSubmatch(body)
	if m == nil {
		return Entry{Text: line}
	}
	return Entry{Project: &Project{
		ParentGUID:   m[parentIndex],
		Name:         m[nameIndex],
		RelativePath: m[pathIndex],
		GUID:         m[guidIndex],
		cr:           cr,
	}}
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// Entries returns a copy of the document's lines in order.
func (d *Document) Entries() []Entry {
	return slices.Clone(d.entries)
}

// Projects returns the project headers in document order. Solution folders
// are only included when includeFolders is true.
func (d *Document) Projects(includeFolders bool) []*Project {
	var projects []*Project
	for _, e := range d.entries {
		if e.Project == nil {
			continue
		}
		if !includeFolders && e.Project.IsFolder() {
			continue
		}
		projects = append(projects, e.Project)
	}
	return projects
}

// RemoveProject deletes a project header together with the line that follows
// it (its EndProject), then every opaque line mentioning the project's GUID.
// Projects that are not part of the document are ignored.
//
// Headers are assumed to be followed directly by EndProject. Projects that
// carry a ProjectSection between the two lines leave that section behind.
func (d *Document) RemoveProject(p *Project) {
	idx := slices.IndexFunc(d.entries, func(e Entry) bool { return e.Project == p })
	if p == nil || idx < 0 {
		return
	}

	end := min(idx+2, len(d.entries))
	d.entries = slices.Delete(d.entries, idx, end)

	d.entries = slices.DeleteFunc(d.entries, func(e Entry) bool {
		return e.Project == nil && e.Text != "" && strings.Contains(e.Text, p.GUID)
	})
}

// RemoveProjects removes each project independently.
func (d *Document) RemoveProjects(projects []*Project) {
	for _, p := range projects {
		d.RemoveProject(p)
	}
}

// String serializes the document. The trailing line separator is omitted.
func (d *Document) String() string {
	var sb strings.Builder
	for i, e := range d.entries {
		if i > 0 {
			sb.WriteString(d.newline)
		}
		sb.WriteString(e.render())
	}
	return sb.String()
}

// Save writes the document back to the file it was loaded from.
func (d *Document) Save() error {
	return d.SaveAs(d.path)
}

// SaveAs writes the document to path.
func (d *Document) SaveAs(path string) error {
	if err := os.WriteFile(path, []byte(d.String()), 0o644); err != nil { //nolint:gosec // G306: solution files are not secrets
		return fmt.Errorf("failed to write solution %s: %w", path, err)
	}
	return nil
}
