package solution

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const sampleSolution = "\ufeff\r\n" +
	"Microsoft Visual Studio Solution File, Format Version 12.00\r\n" +
	"# Visual Studio 14\r\n" +
	"VisualStudioVersion = 14.0.25420.1\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "A", "A\A.csproj", "{11111111-1111-1111-1111-111111111111}"` + "\r\n" +
	"EndProject\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "B", "B\B.csproj", "{22222222-2222-2222-2222-222222222222}"` + "\r\n" +
	"EndProject\r\n" +
	`Project("{2150E333-8FDC-42A3-9474-1A3956D46DE8}") = "Libs", "Libs", "{44444444-4444-4444-4444-444444444444}"` + "\r\n" +
	"EndProject\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "C", "C\C.csproj", "{33333333-3333-3333-3333-333333333333}"` + "\r\n" +
	"EndProject\r\n" +
	"Global\r\n" +
	"\tGlobalSection(ProjectConfigurationPlatforms) = postSolution\r\n" +
	"\t\t{11111111-1111-1111-1111-111111111111}.Debug|Any CPU.ActiveCfg = Debug|Any CPU\r\n" +
	"\t\t{22222222-2222-2222-2222-222222222222}.Debug|Any CPU.ActiveCfg = Debug|Any CPU\r\n" +
	"\t\t{22222222-2222-2222-2222-222222222222}.Debug|Any CPU.Build.0 = Debug|Any CPU\r\n" +
	"\t\t{33333333-3333-3333-3333-333333333333}.Debug|Any CPU.ActiveCfg = Debug|Any CPU\r\n" +
	"\tEndGlobalSection\r\n" +
	"\tGlobalSection(NestedProjects) = preSolution\r\n" +
	"\t\t{22222222-2222-2222-2222-222222222222} = {44444444-4444-4444-4444-444444444444}\r\n" +
	"\tEndGlobalSection\r\n" +
	"EndGlobal\r\n"

func TestParse_ProjectHeaders(t *testing.T) {
	doc := Parse("test.sln", sampleSolution)

	projects := doc.Projects(false)
	require.Len(t, projects, 3)

	assert.Equal(t, "A", projects[0].Name)
	assert.Equal(t, `A\A.csproj`, projects[0].RelativePath)
	assert.Equal(t, "{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}", projects[0].ParentGUID)
	assert.Equal(t, "{11111111-1111-1111-1111-111111111111}", projects[0].GUID)
	assert.Equal(t, "B", projects[1].Name)
	assert.Equal(t, "C", projects[2].Name)
}

func TestParse_FoldersOnlyWhenRequested(t *testing.T) {
	doc := Parse("test.sln", sampleSolution)

	all := doc.Projects(true)
	require.Len(t, all, 4)
	assert.Equal(t, "Libs", all[2].Name)
	assert.True(t, all[2].IsFolder())
	assert.False(t, all[0].IsFolder())
}

func TestParse_OpaqueLinesKept(t *testing.T) {
	doc := Parse("test.sln", sampleSolution)

	entries := doc.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "\ufeff", entries[0].Text)
	assert.False(t, entries[0].IsProject())
	assert.Equal(t, "Microsoft Visual Studio Solution File, Format Version 12.00", entries[1].Text)
	assert.True(t, entries[4].IsProject())
	assert.Equal(t, "EndProject", entries[5].Text)
}

func TestParse_HeaderWithTrailingContentIsOpaque(t *testing.T) {
	line := `Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "A", "A.csproj", "{11111111-1111-1111-1111-111111111111}" extra`
	doc := Parse("test.sln", line)

	assert.Empty(t, doc.Projects(true))
	assert.Equal(t, line, doc.String())
}

func TestParse_LowercaseGUIDIsOpaque(t *testing.T) {
	line := `Project("{fae04ec0-301f-11d3-bf4b-00c04f79efbc}") = "A", "A.csproj", "{11111111-1111-1111-1111-111111111111}"`
	doc := Parse("test.sln", line)

	assert.Empty(t, doc.Projects(true))
}

func TestString_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "crlf sample", input: sampleSolution, want: strings.TrimSuffix(sampleSolution, "\r\n")},
		{name: "lf trailing", input: "a\nb\n", want: "a\nb"},
		{name: "no trailing terminator", input: "a\nb", want: "a\nb"},
		{name: "blank lines", input: "a\n\n\nb\n\n", want: "a\n\n\nb\n"},
		{name: "mixed terminators", input: "a\r\nb\nc\r\n", want: "a\r\nb\nc\r"},
		{name: "single terminator", input: "\n", want: ""},
		{name: "crlf unterminated carriage return", input: "A\r\nB\r", want: "A\r\nB\r"},
		{name: "crlf unterminated", input: "A\r\nB", want: "A\r\nB"},
		{
			name:  "mixed header keeps carriage return",
			input: "x\n" + `Project("{A}") = "N", "N.csproj", "{B}"` + "\r\nEndProject\n",
			want:  "x\n" + `Project("{A}") = "N", "N.csproj", "{B}"` + "\r\nEndProject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse("test.sln", tt.input).String())
		})
	}
}

func TestRemoveProject_RemovesHeaderEndProjectAndGUIDLines(t *testing.T) {
	doc := Parse("test.sln", sampleSolution)
	b := doc.Projects(false)[1]
	require.Equal(t, "B", b.Name)

	before := len(doc.Entries())
	doc.RemoveProject(b)

	out := doc.String()
	assert.NotContains(t, out, `"B"`)
	assert.NotContains(t, out, b.GUID)
	assert.Contains(t, out, `"A", "A\A.csproj"`)
	assert.Contains(t, out, `"C", "C\C.csproj"`)
	assert.Contains(t, out, "{11111111-1111-1111-1111-111111111111}.Debug|Any CPU.ActiveCfg")
	assert.Contains(t, out, "GlobalSection(NestedProjects) = preSolution")
	// header + EndProject + two configuration lines + one nesting line
	assert.Equal(t, before-5, len(doc.Entries()))

	names := []string{}
	for _, p := range doc.Projects(false) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"A", "C"}, names)
}

func TestRemoveProject_UnknownIsNoop(t *testing.T) {
	doc := Parse("test.sln", sampleSolution)
	stranger := &Project{Name: "B", GUID: "{22222222-2222-2222-2222-222222222222}"}

	doc.RemoveProject(stranger)
	doc.RemoveProject(nil)

	assert.Equal(t, strings.TrimSuffix(sampleSolution, "\r\n"), doc.String())
}

func TestRemoveProject_LastLine(t *testing.T) {
	doc := Parse("test.sln", `Project("{A}") = "N", "N.csproj", "{B}"`)

	doc.RemoveProject(doc.Projects(false)[0])

	assert.Empty(t, doc.Entries())
	assert.Equal(t, "", doc.String())
}

func TestRemoveProject_NestedSectionLeftBehind(t *testing.T) {
	text := `Project("{E24C65DC-7377-472B-9ABA-BC803B73C61A}") = "Web", "http://localhost/Web", "{55555555-5555-5555-5555-555555555555}"` + "\n" +
		"\tProjectSection(WebsiteProperties) = preProject\n" +
		"\t\tDebug.AspNetCompiler.Debug = \"True\"\n" +
		"\tEndProjectSection\n" +
		"EndProject\n"
	doc := Parse("web.sln", text)

	doc.RemoveProject(doc.Projects(false)[0])

	assert.Equal(t, "\t\tDebug.AspNetCompiler.Debug = \"True\"\n\tEndProjectSection\nEndProject", doc.String())
}

func TestRemoveProjects_SkipsMissing(t *testing.T) {
	doc := Parse("test.sln", sampleSolution)
	projects := doc.Projects(false)

	doc.RemoveProjects([]*Project{projects[0], {Name: "ghost", GUID: "{99}"}, projects[2]})

	remaining := doc.Projects(true)
	require.Len(t, remaining, 2)
	assert.Equal(t, "B", remaining[0].Name)
	assert.Equal(t, "Libs", remaining[1].Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.sln"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveAs_WritesSerializedDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.sln")
	require.NoError(t, os.WriteFile(path, []byte(sampleSolution), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path())

	doc.RemoveProject(doc.Projects(false)[2])
	require.NoError(t, doc.Save())

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.String(), string(written))
	assert.NotContains(t, string(written), "C.csproj")
	assert.False(t, strings.HasSuffix(string(written), "\r\n"))
}

func TestSaveAs_MissingDirectory(t *testing.T) {
	doc := Parse("test.sln", "a")
	err := doc.SaveAs(filepath.Join(t.TempDir(), "nope", "x.sln"))
	assert.Error(t, err)
}

func guidGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		return fmt.Sprintf("{%08X-0000-0000-0000-%012X}",
			rapid.Uint32().Draw(t, "hi"), rapid.Uint64Range(0, 1<<40).Draw(t, "lo"))
	})
}

func headerGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		name := rapid.StringMatching(`[A-Za-z][A-Za-z0-9.]{0,12}`).Draw(t, "name")
		return (&Project{
			ParentGUID:   guidGen().Draw(t, "parent"),
			Name:         name,
			RelativePath: name + `\` + name + ".csproj",
			GUID:         guidGen().Draw(t, "guid"),
		}).String()
	})
}

func TestProperty_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lines := rapid.SliceOf(rapid.OneOf(
			rapid.StringMatching(`[ -~\t]{0,40}`),
			headerGen(),
			rapid.Just("EndProject"),
		)).Draw(rt, "lines")
		sep := rapid.SampledFrom([]string{"\n", "\r\n"}).Draw(rt, "sep")
		trailing := rapid.Bool().Draw(rt, "trailing")

		text := strings.Join(lines, sep)
		if trailing {
			text += sep
		}

		got := Parse("prop.sln", text).String()
		if got != text && got+sep != text {
			rt.Fatalf("round trip mismatch:\n in: %q\nout: %q", text, got)
		}
	})
}

func TestProperty_RemoveProject(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 8).Draw(rt, "count")
		guids := rapid.SliceOfNDistinct(guidGen(), count, count, func(s string) string { return s }).Draw(rt, "guids")

		var lines []string
		lines = append(lines, "Microsoft Visual Studio Solution File, Format Version 12.00")
		for i, g := range guids {
			lines = append(lines,
				fmt.Sprintf(`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "P%d", "P%d.csproj", "%s"`, i, i, g),
				"EndProject")
		}
		lines = append(lines, "Global")
		for _, g := range guids {
			n := rapid.IntRange(0, 3).Draw(rt, "cfgLines")
			for j := 0; j < n; j++ {
				lines = append(lines, fmt.Sprintf("\t\t%s.Cfg%d = Debug", g, j))
			}
		}
		lines = append(lines, "EndGlobal")

		doc := Parse("prop.sln", strings.Join(lines, "\r\n"))
		victim := rapid.IntRange(0, count-1).Draw(rt, "victim")
		target := doc.Projects(false)[victim]

		mentions := 0
		for _, e := range doc.Entries() {
			if !e.IsProject() && strings.Contains(e.Text, target.GUID) {
				mentions++
			}
		}
		before := len(doc.Entries())

		doc.RemoveProject(target)

		if got, want := len(doc.Entries()), before-2-mentions; got != want {
			rt.Fatalf("expected %d entries after removal, got %d", want, got)
		}
		if strings.Contains(doc.String(), target.GUID) {
			rt.Fatalf("guid %s still present", target.GUID)
		}
		if got := len(doc.Projects(false)); got != count-1 {
			rt.Fatalf("expected %d projects, got %d", count-1, got)
		}
	})
}
