package engine

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/reffix/internal/config"
	"github.com/leapstack-labs/reffix/internal/msbuild"
	"github.com/leapstack-labs/reffix/internal/rules"
	"github.com/leapstack-labs/reffix/internal/solution"
	"github.com/leapstack-labs/reffix/internal/testutil"
)

const appProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <AssemblyName>App</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <Reference Include="System" />
  </ItemGroup>
  <ItemGroup>
    <ProjectReference Include="..\OldLib\OldLib.csproj">
      <Project>{11111111-2222-3333-4444-555555555555}</Project>
      <Name>OldLib</Name>
    </ProjectReference>
    <ProjectReference Include="..\Keep\Keep.csproj" />
  </ItemGroup>
</Project>
`

const plainProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <ItemGroup>
    <Compile Include="Class1.cs" />
  </ItemGroup>
</Project>
`

const appSolution = "Microsoft Visual Studio Solution File, Format Version 12.00\r\n" +
	"Project(\"{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}\") = \"App\", \"App\\App.csproj\", \"{AAAAAAAA-0000-0000-0000-000000000001}\"\r\n" +
	"EndProject\r\n" +
	"Project(\"{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}\") = \"OldLib\", \"OldLib\\OldLib.csproj\", \"{BBBBBBBB-0000-0000-0000-000000000002}\"\r\n" +
	"EndProject\r\n" +
	"Project(\"{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}\") = \"Keep\", \"Keep\\Keep.csproj\", \"{CCCCCCCC-0000-0000-0000-000000000003}\"\r\n" +
	"EndProject\r\n" +
	"Global\r\n" +
	"\tGlobalSection(ProjectConfigurationPlatforms) = postSolution\r\n" +
	"\t\t{AAAAAAAA-0000-0000-0000-000000000001}.Debug|Any CPU.ActiveCfg = Debug|Any CPU\r\n" +
	"\t\t{BBBBBBBB-0000-0000-0000-000000000002}.Debug|Any CPU.ActiveCfg = Debug|Any CPU\r\n" +
	"\t\t{CCCCCCCC-0000-0000-0000-000000000003}.Debug|Any CPU.ActiveCfg = Debug|Any CPU\r\n" +
	"\tEndGlobalSection\r\n" +
	"EndGlobal\r\n"

func boolPtr(b bool) *bool { return &b }

func newEngine(t *testing.T, refs []config.ReferenceConfig, dryRun bool, include ...string) (*Engine, *rules.Set) {
	t.Helper()
	set := rules.New(refs)
	e, err := New(Config{
		Include: include,
		Rules:   set,
		Logger:  testutil.NewTestLogger(t),
		DryRun:  dryRun,
	})
	require.NoError(t, err)
	return e, set
}

func loadProject(t *testing.T, path string) *msbuild.Project {
	t.Helper()
	p, err := msbuild.Load(path)
	require.NoError(t, err)
	return p
}

func TestNew_RequiresRules(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFixProject_Nil(t *testing.T) {
	e, _ := newEngine(t, nil, false)

	changed, err := e.FixProject(nil)
	require.NoError(t, err)
	assert.False(t, changed)

	var p *msbuild.Project
	changed, err = e.FixProject(p)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFixProject_NoMatchLeavesFileUntouched(t *testing.T) {
	tests := []struct {
		name string
		refs []config.ReferenceConfig
		body string
	}{
		{name: "no rules", body: appProject},
		{
			name: "rules name other projects",
			refs: []config.ReferenceConfig{
				{ProjectReference: "Other.csproj", AssemblyReference: "Other"},
				{ProjectReference: "oldlib.csproj", AssemblyReference: "OldLib"},
			},
			body: appProject,
		},
		{
			name: "project without references",
			refs: []config.ReferenceConfig{{ProjectReference: "OldLib.csproj", AssemblyReference: "OldLib"}},
			body: plainProject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutil.WriteTree(t, map[string]string{"App/App.csproj": tt.body})
			path := filepath.Join(root, "App", "App.csproj")
			e, set := newEngine(t, tt.refs, false, root)

			changed, err := e.FixProject(loadProject(t, path))
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, tt.body, testutil.ReadFile(t, path))
			assert.Empty(t, e.ChangedProjects())
			assert.Len(t, set.Unmatched(), len(tt.refs))
		})
	}
}

func TestFixProject_ReplacesReference(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"App/App.csproj": appProject})
	path := filepath.Join(root, "App", "App.csproj")
	e, set := newEngine(t, []config.ReferenceConfig{
		{
			ProjectReference:        "OldLib.csproj",
			AssemblyReference:       "NewLib.dll",
			HintPath:                `C:\libs`,
			RequiredTargetFramework: "4.0",
			SpecificVersion:         boolPtr(false),
		},
		{ProjectReference: "Unused.csproj", AssemblyReference: "Unused"},
	}, false, root)

	changed, err := e.FixProject(loadProject(t, path))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{path}, e.ChangedProjects())

	saved := loadProject(t, path)
	refs := saved.Items(msbuild.ItemProjectReference)
	require.Len(t, refs, 1)
	assert.Equal(t, `..\Keep\Keep.csproj`, refs[0].Include())

	var added *msbuild.Item
	for _, item := range saved.Items(msbuild.ItemReference) {
		if item.Include() == "NewLib.dll" {
			added = item
		}
	}
	require.NotNil(t, added)
	assert.True(t, strings.HasSuffix(added.Metadata(msbuild.MetadataHintPath), `\NewLib.dll`))
	assert.Equal(t, `C:\libs\NewLib.dll`, added.Metadata(msbuild.MetadataHintPath))
	assert.Equal(t, "4.0", added.Metadata(msbuild.MetadataRequiredTargetFramework))
	assert.Equal(t, "False", added.Metadata(msbuild.MetadataSpecificVersion))

	rs := set.Rules()
	assert.True(t, set.Applied(rs[0]))
	assert.False(t, set.Applied(rs[1]))
	assert.Equal(t, []rules.Rule{rs[1]}, e.Unmatched())
}

func TestFixProject_RelativeHintPath(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"src/App/App.csproj": appProject})
	path := filepath.Join(root, "src", "App", "App.csproj")
	e, _ := newEngine(t, []config.ReferenceConfig{{
		ProjectReference:  "OldLib.csproj",
		AssemblyReference: "OldLib",
		HintPath:          filepath.Join(root, "libs"),
		SpecificVersion:   boolPtr(true),
	}}, false, root)

	changed, err := e.FixProject(loadProject(t, path))
	require.NoError(t, err)
	require.True(t, changed)

	out := testutil.ReadFile(t, path)
	assert.Contains(t, out, `<HintPath>..\..\libs\OldLib</HintPath>`)
	assert.Contains(t, out, "<SpecificVersion>True</SpecificVersion>")
	assert.NotContains(t, out, "RequiredTargetFramework")
}

func TestFixProject_PlaceholderHintPath(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"App/App.csproj": appProject})
	path := filepath.Join(root, "App", "App.csproj")
	e, _ := newEngine(t, []config.ReferenceConfig{{
		ProjectReference:  "OldLib.csproj",
		AssemblyReference: "OldLib",
		HintPath:          `$(SharedLibs)\bin`,
	}}, false, root)

	_, err := e.FixProject(loadProject(t, path))
	require.NoError(t, err)
	assert.Contains(t, testutil.ReadFile(t, path), `<HintPath>$(SharedLibs)\bin\OldLib</HintPath>`)
}

func TestFixProject_InvalidHintPath(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"App/App.csproj": appProject})
	path := filepath.Join(root, "App", "App.csproj")
	e, set := newEngine(t, []config.ReferenceConfig{{
		ProjectReference:  "OldLib.csproj",
		AssemblyReference: "OldLib",
		HintPath:          `libs\bin`,
	}}, false, root)

	changed, err := e.FixProject(loadProject(t, path))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, changed)
	assert.Equal(t, appProject, testutil.ReadFile(t, path))
	assert.Len(t, set.Unmatched(), 1)
}

func TestFixProject_EvaluatesProperties(t *testing.T) {
	body := strings.Replace(appProject,
		`<AssemblyName>App</AssemblyName>`,
		`<AssemblyName>App</AssemblyName>
    <LibsDir>..\..\shared\</LibsDir>`, 1)
	body = strings.Replace(body, `Include="..\OldLib\OldLib.csproj"`, `Include="$(LibsDir)Old\.\OldLib.csproj"`, 1)

	root := testutil.WriteTree(t, map[string]string{"src/App/App.csproj": body})
	path := filepath.Join(root, "src", "App", "App.csproj")
	e, set := newEngine(t, []config.ReferenceConfig{{ProjectReference: "OldLib.csproj", AssemblyReference: "OldLib"}}, false, root)

	changed, err := e.FixProject(loadProject(t, path))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, set.Unmatched())
	assert.Contains(t, testutil.ReadFile(t, path), `<Reference Include="OldLib" />`)
}

func TestFixProject_DryRun(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"App/App.csproj": appProject})
	path := filepath.Join(root, "App", "App.csproj")
	e, set := newEngine(t, []config.ReferenceConfig{{ProjectReference: "OldLib.csproj", AssemblyReference: "OldLib"}}, true, root)

	changed, err := e.FixProject(loadProject(t, path))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{path}, e.ChangedProjects())
	assert.Empty(t, set.Unmatched())
	assert.Equal(t, appProject, testutil.ReadFile(t, path))
}

func TestFixSolution(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"All.sln": appSolution})
	path := filepath.Join(root, "All.sln")
	doc, err := solution.Load(path)
	require.NoError(t, err)

	e, _ := newEngine(t, []config.ReferenceConfig{{ProjectReference: "OldLib.csproj", AssemblyReference: "NewLib.dll"}}, false, root)

	changed, err := e.FixSolution(doc)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{path}, e.ChangedSolutions())

	out := testutil.ReadFile(t, path)
	assert.NotContains(t, out, "OldLib")
	assert.NotContains(t, out, "BBBBBBBB")
	assert.Contains(t, out, `= "App", "App\App.csproj"`)
	assert.Contains(t, out, `= "Keep", "Keep\Keep.csproj"`)
	assert.Contains(t, out, "{AAAAAAAA-0000-0000-0000-000000000001}.Debug|Any CPU.ActiveCfg")
	assert.Contains(t, out, "{CCCCCCCC-0000-0000-0000-000000000003}.Debug|Any CPU.ActiveCfg")
	assert.Equal(t, strings.Count(appSolution, "\r\n")-4, strings.Count(out, "\r\n"))
}

func TestFixSolution_NothingToRemove(t *testing.T) {
	tests := []struct {
		name string
		refs []config.ReferenceConfig
	}{
		{name: "no rules"},
		{name: "rule without project reference", refs: []config.ReferenceConfig{{AssemblyReference: "X"}}},
		{name: "no project with that name", refs: []config.ReferenceConfig{{ProjectReference: "Missing.csproj", AssemblyReference: "X"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutil.WriteTree(t, map[string]string{"All.sln": appSolution})
			path := filepath.Join(root, "All.sln")
			doc, err := solution.Load(path)
			require.NoError(t, err)

			e, _ := newEngine(t, tt.refs, false, root)
			changed, err := e.FixSolution(doc)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, appSolution, testutil.ReadFile(t, path))
		})
	}
}

func TestFixSolution_IgnoresFolders(t *testing.T) {
	text := "Project(\"{2150E333-8FDC-42A3-9474-1A3956D46DE8}\") = \"OldLib\", \"OldLib\", \"{DDDDDDDD-0000-0000-0000-000000000004}\"\n" +
		"EndProject\n"
	e, _ := newEngine(t, []config.ReferenceConfig{{ProjectReference: "OldLib.csproj", AssemblyReference: "X"}}, true)

	changed, err := e.FixSolution(solution.Parse("All.sln", text))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRun(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"App/App.csproj":              appProject,
		"Keep/Keep.csproj":            plainProject,
		"OldLib/OldLib.csproj":        plainProject,
		"All.sln":                     appSolution,
		"Tools/Tools.sln":             "Microsoft Visual Studio Solution File, Format Version 12.00\n",
		"Legacy/Legacy/Legacy.csproj": appProject,
	})
	set := rules.New([]config.ReferenceConfig{
		{ProjectReference: "OldLib.csproj", AssemblyReference: "NewLib.dll"},
		{ProjectReference: "Missing.csproj", AssemblyReference: "Missing"},
	})
	e, err := New(Config{
		Include: []string{root},
		Exclude: []string{filepath.Join(root, "Legacy")},
		Rules:   set,
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	assert.Equal(t, StateInit, e.State())

	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReporting, e.State())

	assert.Equal(t, 3, result.ProjectsFound)
	assert.Equal(t, 2, result.SolutionsFound)
	assert.Equal(t, []string{filepath.Join(root, "App", "App.csproj")}, result.ChangedProjects)
	assert.Equal(t, []string{filepath.Join(root, "All.sln")}, result.ChangedSolutions)
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, "Missing.csproj", result.Unmatched[0].ProjectReference)
	assert.False(t, result.DryRun)
	assert.Equal(t, "Modified 1 projects and 1 solutions", result.Summary())

	assert.Equal(t, appProject, testutil.ReadFile(t, filepath.Join(root, "Legacy", "Legacy", "Legacy.csproj")))

	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestRun_ReportsOnError(t *testing.T) {
	set := rules.New([]config.ReferenceConfig{{ProjectReference: "OldLib.csproj", AssemblyReference: "NewLib.dll"}})
	e, err := New(Config{
		Include: []string{filepath.Join(t.TempDir(), "missing")},
		Rules:   set,
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, err.Error(), "project discovery failed")
	assert.Len(t, result.Unmatched, 1)
	assert.Empty(t, result.ChangedProjects)
	assert.Equal(t, StateReporting, e.State())
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"App/App.csproj": appProject,
		"All.sln":        appSolution,
	})
	e, _ := newEngine(t, []config.ReferenceConfig{{ProjectReference: "OldLib.csproj", AssemblyReference: "NewLib.dll"}}, true, root)

	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Len(t, result.ChangedProjects, 1)
	assert.Len(t, result.ChangedSolutions, 1)
	assert.Empty(t, result.Unmatched)

	assert.Equal(t, appProject, testutil.ReadFile(t, filepath.Join(root, "App", "App.csproj")))
	assert.Equal(t, appSolution, testutil.ReadFile(t, filepath.Join(root, "All.sln")))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "scanning", StateScanning.String())
	assert.Equal(t, "fixing", StateFixing.String())
	assert.Equal(t, "reporting", StateReporting.String())
	assert.Equal(t, "state(9)", State(9).String())
}
