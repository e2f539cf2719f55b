package msbuild

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// Item is a single item element such as <ProjectReference Include="..." />.
type Item struct {
	el      *etree.Element
	project *Project
}

// ItemType returns the element name of the item.
func (i *Item) ItemType() string {
	return i.el.Tag
}

// Include returns the raw Include attribute.
func (i *Item) Include() string {
	return i.el.SelectAttrValue("Include", "")
}

// EvaluatedInclude returns the Include attribute with $(Property) references expanded.
func (i *Item) EvaluatedInclude() string {
	return i.project.expand(i.Include())
}

// Metadata returns the value of a metadata child element, or "" when absent.
func (i *Item) Metadata(name string) string {
	for _, child := range i.el.ChildElements() {
		if strings.EqualFold(child.Tag, name) {
			return child.Text()
		}
	}
	if attr := i.el.SelectAttr(name); attr != nil {
		return attr.Value
	}
	return ""
}

// propertyRef matches $(Name); property functions such as $([System.IO.Path]::...) are left alone.
var propertyRef = regexp.MustCompile(`\$\(([A-Za-z_][A-Za-z0-9_.\-]*)\)`)

// expand substitutes property references the way MSBuild does for plain
// properties: project properties first, then reserved properties, then the
// environment. Undefined properties expand to the empty string.
func (p *Project) expand(s string) string {
	if !strings.Contains(s, "$(") {
		return s
	}
	return propertyRef.ReplaceAllStringFunc(s, func(m string) string {
		return p.lookup(m[2 : len(m)-1])
	})
}

func (p *Project) lookup(name string) string {
	if v, ok := p.props[strings.ToLower(name)]; ok {
		return v
	}
	if v, ok := p.reserved(name); ok {
		return v
	}
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return ""
}

func (p *Project) reserved(name string) (string, bool) {
	dir := filepath.Dir(p.path)
	file := filepath.Base(p.path)
	ext := filepath.Ext(file)

	switch strings.ToLower(name) {
	case "msbuildprojectfullpath":
		return p.path, true
	case "msbuildprojectdirectory":
		return dir, true
	case "msbuildthisfiledirectory":
		return dir + string(filepath.Separator), true
	case "msbuildprojectfile", "msbuildthisfile":
		return file, true
	case "msbuildprojectname", "msbuildthisfilename":
		return strings.TrimSuffix(file, ext), true
	case "msbuildprojectextension", "msbuildthisfileextension":
		return ext, true
	}
	return "", false
}

// collectProperties reads the unconditioned properties of every PropertyGroup
// in document order; later definitions win. Property names are case-insensitive.
func (p *Project) collectProperties() {
	p.props = make(map[string]string)
	root := p.doc.Root()
	if root == nil {
		return
	}
	for _, group := range root.ChildElements() {
		if !strings.EqualFold(group.Tag, "PropertyGroup") || group.SelectAttr("Condition") != nil {
			continue
		}
		for _, prop := range group.ChildElements() {
			if prop.SelectAttr("Condition") != nil {
				continue
			}
			p.props[strings.ToLower(prop.Tag)] = p.expand(prop.Text())
		}
	}
}
