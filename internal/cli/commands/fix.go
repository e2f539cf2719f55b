package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/reffix/internal/cli/output"
	intconfig "github.com/leapstack-labs/reffix/internal/config"
	"github.com/leapstack-labs/reffix/internal/engine"
	"github.com/leapstack-labs/reffix/internal/report"
	"github.com/leapstack-labs/reffix/internal/rules"
)

// NewFixCommand creates the fix command.
func NewFixCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fix [config-file] [log-dir]",
		Short: "Replace project references with assembly references",
		Long: `Rewrite project references into assembly references.

Every project file (*.csproj) below the include paths of the mapping file is
searched for project references named in the mapping. Matching references are
replaced by assembly references with the configured hint path, target
framework and specific version. Afterwards the mapped projects are removed
from every solution file (*.sln) below the include paths.

Without a config file the first *.json file of the working directory is used.
Changed files are listed in ChangeLog.txt in the log directory.`,
		Example: `  # Use the first *.json mapping in the current directory
  reffix fix

  # Use an explicit mapping file and log directory
  reffix fix references.json ./logs

  # Show what would change without writing any file
  reffix fix --dry-run`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFix(cmd)
		},
	}
}

func runFix(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	mapping, err := intconfig.LoadFile(cc.Cfg.ConfigFile)
	if err != nil {
		cc.Logger.Error("failed to load mapping", "path", cc.Cfg.ConfigFile, "error", err)
		r.Error(err.Error())
		return reported(err)
	}
	cc.Logger.Debug("loaded mapping", "path", cc.Cfg.ConfigFile,
		"include", len(mapping.Include), "rules", len(mapping.References))

	eng, err := engine.New(engine.Config{
		Include: mapping.Include,
		Exclude: mapping.Exclude,
		Rules:   rules.New(mapping.References),
		Logger:  cc.Logger,
		DryRun:  cc.Cfg.DryRun,
	})
	if err != nil {
		return err
	}

	result, runErr := eng.Run(cmd.Context())
	if result != nil {
		renderResult(r, result)
		if err := writeChangeLog(cc, result); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		cc.Logger.Error("run failed", "error", runErr)
		r.Error(runErr.Error())
		return reported(runErr)
	}

	r.Success("SUCCESS - " + result.Summary())
	return nil
}

func renderResult(r *output.Renderer, result *engine.Result) {
	if result.DryRun {
		r.Muted("Dry run: no files were written")
	}
	for _, path := range result.ChangedProjects {
		r.Println("Fixed references for " + path)
	}
	for _, path := range result.ChangedSolutions {
		r.Println("Fixed solution " + path)
	}

	r.Println()
	r.Header(2, "Summary")
	r.Table([]string{"Item", "Found", "Modified"}, [][]string{
		{"Projects", strconv.Itoa(result.ProjectsFound), strconv.Itoa(len(result.ChangedProjects))},
		{"Solutions", strconv.Itoa(result.SolutionsFound), strconv.Itoa(len(result.ChangedSolutions))},
	})
	r.Println(output.FormatKeyValue("Duration:", result.Duration.Round(time.Millisecond).String()))

	if len(result.Unmatched) > 0 {
		names := make([]string, 0, len(result.Unmatched))
		for _, rule := range result.Unmatched {
			names = append(names, "  "+rule.String())
		}
		r.Warning("Following references were not found in any of the processed projects:\n" +
			strings.Join(names, "\n"))
	}
}

func writeChangeLog(cc *CommandContext, result *engine.Result) error {
	if result.DryRun {
		return nil
	}
	path := filepath.Join(cc.Cfg.LogDir, intconfig.DefaultChangeLogFileName)
	written, err := report.WriteChangeLog(path, result.ChangedProjects, result.ChangedSolutions)
	if err != nil {
		cc.Logger.Error("failed to write change log", "path", path, "error", err)
		return fmt.Errorf("change log: %w", err)
	}
	if written {
		cc.Logger.Info("wrote change log", "path", path)
		cc.Renderer.Muted("Change log written to " + path)
	}
	return nil
}
