// Package msbuild loads, edits and saves MSBuild project files (.csproj).
//
// The model is intentionally small: items of a given type can be listed,
// removed and added, and the document is written back with its original
// formatting (XML declaration, indentation, line endings, byte order mark)
// left as intact as the XML round trip allows.
package msbuild

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// Item types and metadata names used when rewriting references.
const (
	ItemProjectReference = "ProjectReference"
	ItemReference        = "Reference"

	MetadataHintPath                = "HintPath"
	MetadataRequiredTargetFramework = "RequiredTargetFramework"
	MetadataSpecificVersion         = "SpecificVersion"
)

// Extension is the file extension of C# project files.
const Extension = ".csproj"

const defaultIndent = "  "

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// emptyTag matches self-closing tags written without a space before "/>".
var emptyTag = regexp.MustCompile(`([^ /])/>`)

// Metadata is one named value attached to an item. Order is preserved on write.
type Metadata struct {
	Name  string
	Value string
}

// Project is an MSBuild project file held in memory.
type Project struct {
	path  string
	doc   *etree.Document
	bom   bool
	crlf  bool
	props map[string]string

	// spacedEmpty is set when the source writes empty elements as <x />.
	spacedEmpty bool
}

// New returns an empty project that will be written to path.
func New(path string) *Project {
	doc := newDocument()
	doc.CreateElement("Project")
	p := newProject(path, doc, false, false)
	p.spacedEmpty = true
	return p
}

// Load reads and parses the project file at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a directory listing
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse builds a project from file content. path is used to resolve
// relative item includes and as the default save location.
func Parse(path string, data []byte) (*Project, error) {
	bom := bytes.HasPrefix(data, utf8BOM)
	data = bytes.TrimPrefix(data, utf8BOM)
	crlf := bytes.Contains(data, []byte("\r\n"))

	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", path, err)
	}
	root := doc.Root()
	if root == nil || !strings.EqualFold(root.Tag, "Project") {
		return nil, fmt.Errorf("failed to parse project %s: root element is not <Project>", path)
	}
	p := newProject(path, doc, bom, crlf)
	p.spacedEmpty = bytes.Contains(data, []byte(" />"))
	return p, nil
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalAttrVal = true
	doc.WriteSettings.CanonicalText = true
	return doc
}

func newProject(path string, doc *etree.Document, bom, crlf bool) *Project {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := &Project{path: path, doc: doc, bom: bom, crlf: crlf}
	p.collectProperties()
	return p
}

// FullPath returns the absolute path of the project file.
func (p *Project) FullPath() string {
	return p.path
}

// Directory returns the directory containing the project file.
func (p *Project) Directory() string {
	return filepath.Dir(p.path)
}

// Items returns every item of the given type in document order.
func (p *Project) Items(itemType string) []*Item {
	var items []*Item
	for _, group := range p.itemGroups() {
		for _, el := range group.ChildElements() {
			if strings.EqualFold(el.Tag, itemType) {
				items = append(items, &Item{el: el, project: p})
			}
		}
	}
	return items
}

// RemoveItems deletes the given items. Item groups left without children are
// removed as well.
func (p *Project) RemoveItems(items []*Item) {
	for _, item := range items {
		if item == nil || item.project != p {
			continue
		}
		group := item.el.Parent()
		if group == nil {
			continue
		}
		removeWithIndent(group, item.el)
		if len(group.ChildElements()) == 0 {
			if parent := group.Parent(); parent != nil {
				removeWithIndent(parent, group)
			}
		}
	}
}

// AddItem appends an item to the first unconditioned item group that already
// holds items of the same type, or to a new item group after the last one.
func (p *Project) AddItem(itemType, include string, metadata []Metadata) *Item {
	root := p.doc.Root()
	group := p.groupFor(itemType)
	if group == nil {
		group = etree.NewElement("ItemGroup")
		insertIndented(root, group, p.afterLastItemGroup(), childIndent(root))
	}

	el := etree.NewElement(itemType)
	el.CreateAttr("Include", include)
	indent := childIndent(group)
	insertIndented(group, el, -1, indent)

	if len(metadata) > 0 {
		unit := indentUnit(root)
		for _, m := range metadata {
			child := etree.NewElement(m.Name)
			child.SetText(m.Value)
			insertIndented(el, child, -1, indent+unit)
		}
	}

	return &Item{el: el, project: p}
}

// Property returns the evaluated value of a property, or "" when undefined.
func (p *Project) Property(name string) string {
	return p.lookup(name)
}

// Save writes the project to path.
func (p *Project) Save(path string) error {
	data, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("failed to serialize project %s: %w", p.path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: project files are not secrets
		return fmt.Errorf("failed to write project %s: %w", path, err)
	}
	return nil
}

// Bytes serializes the project as it would be saved.
func (p *Project) Bytes() ([]byte, error) {
	data, err := p.doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	if p.spacedEmpty {
		data = emptyTag.ReplaceAll(data, []byte("$1 />"))
	}
	if p.crlf {
		data = bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
	}
	if p.bom {
		data = append(append([]byte{}, utf8BOM...), data...)
	}
	return data, nil
}

func (p *Project) itemGroups() []*etree.Element {
	root := p.doc.Root()
	if root == nil {
		return nil
	}
	var groups []*etree.Element
	for _, el := range root.ChildElements() {
		if strings.EqualFold(el.Tag, "ItemGroup") {
			groups = append(groups, el)
		}
	}
	return groups
}

func (p *Project) groupFor(itemType string) *etree.Element {
	for _, group := range p.itemGroups() {
		if group.SelectAttr("Condition") != nil {
			continue
		}
		for _, el := range group.ChildElements() {
			if strings.EqualFold(el.Tag, itemType) {
				return group
			}
		}
	}
	return nil
}

// afterLastItemGroup returns the token index just past the last item group,
// or -1 to append at the end of the project.
func (p *Project) afterLastItemGroup() int {
	groups := p.itemGroups()
	if len(groups) == 0 {
		return -1
	}
	return groups[len(groups)-1].Index() + 1
}

// insertIndented inserts child into parent at token index at (-1 appends),
// preceded by a newline and indent. Appending keeps the parent's closing tag
// on its own line.
func insertIndented(parent, child *etree.Element, at int, indent string) {
	if at < 0 {
		at = len(parent.Child)
		if at > 0 {
			if blank(parent.Child[at-1]) {
				at--
			}
		}
		if at == len(parent.Child) {
			parent.AddChild(etree.NewCharData("\n" + closingIndent(parent)))
		}
	}
	parent.InsertChildAt(at, child)
	parent.InsertChildAt(at, etree.NewCharData("\n"+indent))
}

// removeWithIndent removes child and the whitespace that precedes it.
func removeWithIndent(parent, child *etree.Element) {
	idx := child.Index()
	if idx > 0 {
		if blank(parent.Child[idx-1]) {
			parent.RemoveChildAt(idx - 1)
		}
	}
	parent.RemoveChild(child)
}

// childIndent guesses the indentation used for children of el.
func childIndent(el *etree.Element) string {
	for i, tok := range el.Child {
		if _, ok := tok.(*etree.Element); !ok || i == 0 {
			continue
		}
		if cd, ok := blankText(el.Child[i-1]); ok {
			return lastLine(cd.Data)
		}
	}
	return closingIndent(el) + indentUnit(el)
}

// closingIndent returns the indentation of el's own line.
func closingIndent(el *etree.Element) string {
	parent := el.Parent()
	if parent == nil {
		return ""
	}
	idx := el.Index()
	if idx > 0 {
		if cd, ok := blankText(parent.Child[idx-1]); ok {
			return lastLine(cd.Data)
		}
	}
	return ""
}

// indentUnit derives one indentation step from the project root's children.
func indentUnit(el *etree.Element) string {
	for el.Parent() != nil && el.Parent().Parent() != nil {
		el = el.Parent()
	}
	for i, tok := range el.Child {
		if _, ok := tok.(*etree.Element); !ok || i == 0 {
			continue
		}
		if cd, ok := blankText(el.Child[i-1]); ok {
			if unit := lastLine(cd.Data); unit != "" {
				return unit
			}
		}
	}
	return defaultIndent
}

// blankText returns tok as character data when it holds only whitespace.
// CharData built with etree.NewCharData carries no whitespace flag, so the
// text itself is checked.
func blankText(tok etree.Token) (*etree.CharData, bool) {
	cd, ok := tok.(*etree.CharData)
	if !ok || strings.TrimSpace(cd.Data) != "" {
		return nil, false
	}
	return cd, true
}

func blank(tok etree.Token) bool {
	_, ok := blankText(tok)
	return ok
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
