// Package cli provides the command-line interface for reffix.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/reffix/internal/cli/commands"
	"github.com/leapstack-labs/reffix/internal/cli/config"
	"github.com/leapstack-labs/reffix/internal/cli/output"
	intconfig "github.com/leapstack-labs/reffix/internal/config"
	"github.com/leapstack-labs/reffix/internal/logging"
)

// Version information, set at build time with
// -ldflags "-X github.com/leapstack-labs/reffix/internal/cli.GitCommit=...".
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// logCloser closes the run log opened by the last PersistentPreRunE.
var logCloser io.Closer

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reffix [config-file] [log-dir]",
		Short: "reffix - project reference to assembly reference rewriter",
		Long: `reffix replaces project references in MSBuild project files with assembly
references and removes the replaced projects from solution files.

The mapping file lists the directories to scan and, for each project that
should be consumed as a prebuilt assembly, the assembly name and hint path.
Running reffix without a subcommand runs fix.`,
		Version: Version,
		Args:    cobra.MaximumNArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help, completion and version commands
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.Load(cmd.Flags(), args)
			if err != nil {
				return err
			}

			logger, closer, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			logCloser = closer

			logger.Debug("configuration loaded", "config", cfg.ConfigFile, "log_dir", cfg.LogDir,
				"dry_run", cfg.DryRun, "output", cfg.OutputFormat)

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fix := commands.NewFixCommand()
			fix.SetContext(cmd.Context())
			fix.SetOut(cmd.OutOrStdout())
			fix.SetErr(cmd.ErrOrStderr())
			return fix.RunE(fix, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}} (commit ` + GitCommit + `)
`)

	// Global persistent flags
	rootCmd.PersistentFlags().String("config", "", "mapping file (default: first *.json in the working directory)")
	rootCmd.PersistentFlags().String("log-dir", "", "directory for reffix.log and ChangeLog.txt (default: working directory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Report changes without writing any file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|plain)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
	_ = rootCmd.MarkPersistentFlagDirname("log-dir")

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{
		Version: Version,
		Commit:  GitCommit,
		Date:    BuildDate,
	}))
	rootCmd.AddCommand(commands.NewFixCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger builds the run logger: warnings (everything with --verbose) on
// stderr, everything in reffix.log in the log directory.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, io.Closer, error) {
	consoleLevel := slog.LevelWarn
	if cfg.Verbose {
		consoleLevel = slog.LevelDebug
	}

	noColor := cfg.Mode() == output.ModePlain
	if f, ok := cmd.ErrOrStderr().(*os.File); !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: file descriptors fit in int
		noColor = true
	}

	return logging.New(logging.Options{
		Console:      cmd.ErrOrStderr(),
		ConsoleLevel: consoleLevel,
		NoColor:      noColor,
		FilePath:     filepath.Join(cfg.LogDir, intconfig.DefaultLogFileName),
		FileLevel:    slog.LevelDebug,
	})
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		if !commands.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for reffix.

To load completions:

Bash:
  $ source <(reffix completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ reffix completion bash > /etc/bash_completion.d/reffix
  # macOS:
  $ reffix completion bash > $(brew --prefix)/etc/bash_completion.d/reffix

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ reffix completion zsh > "${fpath[1]}/_reffix"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ reffix completion fish | source

  # To load completions for each session, execute once:
  $ reffix completion fish > ~/.config/fish/completions/reffix.fish

PowerShell:
  PS> reffix completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> reffix completion powershell > reffix.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
