package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/reffix/internal/cli"
	"github.com/leapstack-labs/reffix/internal/cli/commands"
	"github.com/leapstack-labs/reffix/internal/cli/config"
)

// generateCLIDocs writes index.md and one page per documented command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string][]byte{"index.md": cliIndex(root)}
	for _, cmd := range documented(root) {
		pages[cmd.Name()+".md"] = commandPage(cmd)
	}

	for name, data := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// documented returns the subcommands that get a page.
func documented(root *cobra.Command) []*cobra.Command {
	var cmds []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for reffix")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)

	w.Header(2, "Usage")
	w.CodeBlock("bash", root.UseLine())
	if root.RunE != nil {
		w.Paragraph(fmt.Sprintf("Without a command reffix runs %s, so `reffix mapping.json logs` and `reffix fix mapping.json logs` are the same run.",
			InlineCode("fix")))
	}
	if acceptsPositionals(root) {
		writePositionals(w)
	}

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documented(root) {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](%s.md)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global options")
	writeFlags(w, root.PersistentFlags())
	w.Paragraph("Flags win over positional arguments, positional arguments win over environment variables, and environment variables win over the defaults.")

	w.Header(2, "Exit status")
	w.Paragraph("reffix exits with status 1 when the mapping cannot be loaded, a directory cannot be scanned, a file cannot be written or a doctor check fails.")

	return w.Bytes()
}

func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())
	if acceptsPositionals(cmd) {
		writePositionals(w)
	}

	if cmd.Name() == "doctor" {
		writeDoctorChecks(w)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlags(w, cmd.LocalFlags())
	}
	if cmd.HasAvailableInheritedFlags() {
		w.Header(2, "Global options")
		writeFlags(w, cmd.InheritedFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
	return w.Bytes()
}

// acceptsPositionals reports whether cmd takes the mapping file and log directory.
func acceptsPositionals(cmd *cobra.Command) bool {
	for _, p := range config.Positionals {
		if !strings.Contains(cmd.Use, "["+p.Name+"]") {
			return false
		}
	}
	return true
}

func writePositionals(w *MarkdownWriter) {
	w.Header(2, "Arguments")
	rows := make([][]string, 0, len(config.Positionals))
	for _, p := range config.Positionals {
		rows = append(rows, []string{InlineCode(p.Name), InlineCode(config.EnvVar(p.Key)), p.Description})
	}
	w.Table([]string{"Argument", "Environment", "Description"}, rows)
}

func writeDoctorChecks(w *MarkdownWriter) {
	w.Header(2, "Checks")
	rows := make([][]string, 0, len(commands.DoctorChecks))
	for _, c := range commands.DoctorChecks {
		rows = append(rows, []string{c.Name, c.Verifies, c.OnFailure})
	}
	w.Table([]string{"Check", "Verifies", "Fails as"}, rows)
}

// writeFlags renders flags with the environment variable that sets each one.
func writeFlags(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		option := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			option = InlineCode("-"+f.Shorthand) + ", " + option
		}
		def := f.DefValue
		if def != "" && f.Value.Type() == "string" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{option, def, InlineCode(config.EnvVar(config.FlagKey(f.Name))), cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Default", "Environment", "Description"}, rows)
}

// cleanExample strips the indentation shared by all non-blank lines.
func cleanExample(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
