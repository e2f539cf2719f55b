package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	intconfig "github.com/leapstack-labs/reffix/internal/config"
	"github.com/leapstack-labs/reffix/internal/engine"
	"github.com/leapstack-labs/reffix/internal/rules"
)

// Health check statuses, as understood by Renderer.StatusLine.
const (
	StatusPass  = "success"
	StatusWarn  = "warning"
	StatusError = "error"
)

// Health check names, in the order they run.
const (
	CheckMappingFile  = "Mapping file"
	CheckIncludePaths = "Include paths"
	CheckExcludePaths = "Exclude paths"
	CheckHintPaths    = "Hint paths"
	CheckRuleUsage    = "Rule usage"
	CheckLogDirectory = "Log directory"
)

// CheckInfo describes what a health check verifies and how it can fail.
type CheckInfo struct {
	Name      string
	Verifies  string
	OnFailure string
}

// DoctorChecks lists the checks run by the doctor command.
var DoctorChecks = []CheckInfo{
	{CheckMappingFile, "The mapping file loads and matches the schema", StatusError},
	{CheckIncludePaths, "Every include path is an existing directory", StatusError},
	{CheckExcludePaths, "Every exclude path is an existing directory", StatusWarn},
	{CheckHintPaths, "Every hint path without MSBuild properties exists", StatusWarn},
	{CheckRuleUsage, "A dry run over the include paths succeeds. Mappings it never uses are warnings", StatusError},
	{CheckLogDirectory, "The log directory is writable", StatusError},
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string
	Status  string
	Summary string
	Details []string
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [config-file] [log-dir]",
		Short: "Check the mapping file and the directories it names",
		Long: `Check that a run would succeed without changing any file.

The doctor command validates the mapping file, checks that the include,
exclude and hint paths exist, reports mapped projects that no project
references, and checks that the log directory is writable.`,
		Example: `  # Check the first *.json mapping in the current directory
  reffix doctor

  # Check an explicit mapping file
  reffix doctor references.json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	checks := collectHealthChecks(cmd.Context(), cc)

	r.Header(1, "Health checks")
	var failed, warned int
	for _, c := range checks {
		r.StatusLine(c.Name, c.Status, c.Summary)
		for _, d := range c.Details {
			r.Muted("      " + d)
		}
		switch c.Status {
		case StatusError:
			failed++
		case StatusWarn:
			warned++
		}
	}
	r.Println()

	if failed > 0 {
		err := fmt.Errorf("%d of %d checks failed", failed, len(checks))
		r.Error(err.Error())
		return reported(err)
	}
	if warned > 0 {
		r.Success(fmt.Sprintf("All checks passed with %d warnings", warned))
		return nil
	}
	r.Success("All checks passed")
	return nil
}

func collectHealthChecks(ctx context.Context, cc *CommandContext) []HealthCheck {
	mapping, err := intconfig.LoadFile(cc.Cfg.ConfigFile)
	if err != nil {
		return []HealthCheck{{
			Name:    CheckMappingFile,
			Status:  StatusError,
			Summary: cc.Cfg.ConfigFile,
			Details: []string{err.Error()},
		}}
	}

	checks := []HealthCheck{{
		Name:    CheckMappingFile,
		Status:  StatusPass,
		Summary: fmt.Sprintf("%s (%d references)", cc.Cfg.ConfigFile, len(mapping.References)),
	}}
	checks = append(checks,
		checkDirectories(CheckIncludePaths, mapping.Include, StatusError),
		checkDirectories(CheckExcludePaths, mapping.Exclude, StatusWarn),
		checkHintPaths(mapping.References),
	)
	if checks[1].Status != StatusError {
		checks = append(checks, checkRuleUsage(ctx, cc, mapping))
	}
	checks = append(checks, checkLogDir(cc.Cfg.LogDir))
	return checks
}

func checkDirectories(name string, dirs []string, missingStatus string) HealthCheck {
	var missing []string
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		return HealthCheck{
			Name:    name,
			Status:  missingStatus,
			Summary: fmt.Sprintf("(%d of %d missing)", len(missing), len(dirs)),
			Details: missing,
		}
	}
	return HealthCheck{Name: name, Status: StatusPass, Summary: fmt.Sprintf("(%d)", len(dirs))}
}

func checkHintPaths(refs []intconfig.ReferenceConfig) HealthCheck {
	var missing []string
	for _, ref := range refs {
		// Paths with MSBuild properties are resolved by the build, not here
		if ref.HintPath == "" || strings.Contains(ref.HintPath, "$(") {
			continue
		}
		if _, err := os.Stat(ref.HintPath); err != nil {
			missing = append(missing, ref.ProjectReference+": "+ref.HintPath)
		}
	}
	if len(missing) > 0 {
		return HealthCheck{
			Name:    CheckHintPaths,
			Status:  StatusWarn,
			Summary: fmt.Sprintf("(%d missing)", len(missing)),
			Details: missing,
		}
	}
	return HealthCheck{Name: CheckHintPaths, Status: StatusPass}
}

func checkRuleUsage(ctx context.Context, cc *CommandContext, mapping *intconfig.Config) HealthCheck {
	eng, err := engine.New(engine.Config{
		Include: mapping.Include,
		Exclude: mapping.Exclude,
		Rules:   rules.New(mapping.References),
		Logger:  cc.Logger,
		DryRun:  true,
	})
	if err != nil {
		return HealthCheck{Name: CheckRuleUsage, Status: StatusError, Details: []string{err.Error()}}
	}

	result, err := eng.Run(ctx)
	if err != nil {
		return HealthCheck{Name: CheckRuleUsage, Status: StatusError, Details: []string{err.Error()}}
	}

	summary := fmt.Sprintf("(%d of %d projects and %d of %d solutions would change)",
		len(result.ChangedProjects), result.ProjectsFound,
		len(result.ChangedSolutions), result.SolutionsFound)
	if len(result.Unmatched) > 0 {
		details := make([]string, 0, len(result.Unmatched))
		for _, rule := range result.Unmatched {
			details = append(details, "not referenced: "+rule.String())
		}
		return HealthCheck{Name: CheckRuleUsage, Status: StatusWarn, Summary: summary, Details: details}
	}
	return HealthCheck{Name: CheckRuleUsage, Status: StatusPass, Summary: summary}
}

func checkLogDir(dir string) HealthCheck {
	f, err := os.CreateTemp(dir, ".reffix-doctor-*")
	if err != nil {
		return HealthCheck{Name: CheckLogDirectory, Status: StatusError, Summary: dir, Details: []string{err.Error()}}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return HealthCheck{Name: CheckLogDirectory, Status: StatusPass, Summary: dir}
}
