package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/reffix/internal/config"
)

// schemaNode is the subset of JSON schema the reference page renders.
type schemaNode struct {
	Description string                 `json:"description"`
	Type        any                    `json:"type"`
	Required    []string               `json:"required"`
	Properties  map[string]*schemaNode `json:"properties"`
	Items       *schemaNode            `json:"items"`
	Enum        []any                  `json:"enum"`
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// generateConfigDocs generates the mapping file reference.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var root schemaNode
	if err := json.Unmarshal(config.SchemaJSON(), &root); err != nil {
		return fmt.Errorf("failed to parse configuration schema: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "reffix mapping file reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("reffix reads a JSON (or YAML) mapping file. Without an explicit path the first `*.json` file of the working directory is used.")

	w.Header(2, "Top-level fields")
	writeFieldsTable(w, configFields(&root))

	if refs := root.Properties["referencesConfig"]; refs != nil && refs.Items != nil {
		w.Header(2, "Reference entries")
		w.Paragraph("Each entry of `referencesConfig` maps one project file to an assembly:")
		writeFieldsTable(w, configFields(refs.Items))
	}

	w.Header(2, "Example")
	w.CodeBlock("json", `{
  "include": ["src"],
  "exclude": ["src/Legacy"],
  "referencesConfig": [
    {
      "projectReference": "Core.csproj",
      "assemblyReference": "Company.Core",
      "hintPath": "C:\\libs\\Core",
      "requiredTargetFramework": "4.0",
      "specificVersion": false
    }
  ]
}`)

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}

// configFields lists the properties of node in name order.
func configFields(node *schemaNode) []ConfigField {
	names := make([]string, 0, len(node.Properties))
	for name := range node.Properties {
		names = append(names, name)
	}
	slices.Sort(names)

	fields := make([]ConfigField, 0, len(names))
	for _, name := range names {
		prop := node.Properties[name]
		fields = append(fields, ConfigField{
			Name:        name,
			Type:        typeName(prop),
			Required:    slices.Contains(node.Required, name),
			Description: prop.Description,
		})
	}
	return fields
}

func typeName(node *schemaNode) string {
	var types []string
	switch t := node.Type.(type) {
	case string:
		types = []string{t}
	case []any:
		for _, v := range t {
			types = append(types, fmt.Sprint(v))
		}
	}
	name := strings.Join(types, " or ")
	if name == "array" && node.Items != nil {
		name = "array of " + typeName(node.Items)
	}
	return name
}

func writeFieldsTable(w *MarkdownWriter, fields []ConfigField) {
	headers := []string{"Field", "Type", "Required", "Description"}
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		req := "No"
		if f.Required {
			req = "Yes"
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, req, cleanDescription(f.Description)})
	}
	w.Table(headers, rows)
}
