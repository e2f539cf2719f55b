// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/reffix/internal/cli/output"
)

// AppProject is a project with one reference the workspace mapping rewrites
// and one it leaves alone.
const AppProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <ItemGroup>
    <ProjectReference Include="..\OldLib\OldLib.csproj" />
    <ProjectReference Include="..\Keep\Keep.csproj" />
  </ItemGroup>
</Project>
`

// LibProject is a project without references.
const LibProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <ItemGroup>
    <Compile Include="Class1.cs" />
  </ItemGroup>
</Project>
`

// AllSolution lists App, OldLib and Keep.
const AllSolution = "Microsoft Visual Studio Solution File, Format Version 12.00\r\n" +
	"Project(\"{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}\") = \"App\", \"App\\App.csproj\", \"{AAAAAAAA-0000-0000-0000-000000000001}\"\r\n" +
	"EndProject\r\n" +
	"Project(\"{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}\") = \"OldLib\", \"OldLib\\OldLib.csproj\", \"{BBBBBBBB-0000-0000-0000-000000000002}\"\r\n" +
	"EndProject\r\n" +
	"Project(\"{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}\") = \"Keep\", \"Keep\\Keep.csproj\", \"{CCCCCCCC-0000-0000-0000-000000000003}\"\r\n" +
	"EndProject\r\n" +
	"Global\r\n" +
	"EndGlobal\r\n"

// SetupTestWorkspace creates a temporary workspace with a mapping file
// (mapping.json), a src tree of projects and a solution, and an empty logs
// directory. The mapping replaces OldLib.csproj and names one project that
// does not exist.
func SetupTestWorkspace(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	files := map[string]string{
		filepath.Join("src", "App", "App.csproj"):       AppProject,
		filepath.Join("src", "OldLib", "OldLib.csproj"): LibProject,
		filepath.Join("src", "Keep", "Keep.csproj"):     LibProject,
		filepath.Join("src", "All.sln"):                 AllSolution,
	}
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // G306: test fixture
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	for _, dir := range []string{"libs", "logs"} {
		if err := os.MkdirAll(filepath.Join(tmpDir, dir), 0o755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	mapping := map[string]any{
		"include": []string{"src"},
		"referencesConfig": []map[string]any{
			{
				"projectReference":  "OldLib.csproj",
				"assemblyReference": "OldLib",
				"hintPath":          filepath.Join(tmpDir, "libs"),
				"specificVersion":   false,
			},
			{
				"projectReference":  "Missing.csproj",
				"assemblyReference": "Missing",
			},
		},
	}
	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode mapping: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "mapping.json"), data, 0o644); err != nil { //nolint:gosec // G306: test fixture
		t.Fatalf("failed to create mapping.json: %v", err)
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererPlain creates a new test renderer in plain mode.
func NewTestRendererPlain() *TestRenderer {
	return NewTestRenderer(output.ModePlain, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}
