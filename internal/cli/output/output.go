// Package output renders command results to the terminal.
//
// Three modes are supported: text (styled, for terminals), plain (no escape
// codes, for pipes and log capture) and auto, which picks text when stdout is
// a terminal and plain otherwise.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// OutputMode selects how the renderer formats output.
type OutputMode string //nolint:revive // output.OutputMode reads better at call sites than output.Mode

// Output modes.
const (
	ModeAuto  OutputMode = "auto"
	ModeText  OutputMode = "text"
	ModePlain OutputMode = "plain"
)

// Modes lists the accepted --output values.
var Modes = []string{string(ModeAuto), string(ModeText), string(ModePlain)}

// ParseMode validates an --output value. The empty string means auto.
func ParseMode(s string) (OutputMode, error) {
	switch OutputMode(strings.ToLower(s)) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeText:
		return ModeText, nil
	case ModePlain:
		return ModePlain, nil
	}
	return "", fmt.Errorf("invalid output format %q (valid: %s)", s, strings.Join(Modes, ", "))
}

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Key     lipgloss.Style
}

// NewStyles builds the colored style set on a lipgloss renderer.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Warning: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Error:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("14")),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Key:     lr.NewStyle().Bold(true),
	}
}

// plainStyles renders every string unchanged.
func plainStyles() *Styles {
	s := lipgloss.NewStyle()
	return &Styles{Header: s, Success: s, Warning: s, Error: s, Info: s, Muted: s, Key: s}
}

// Renderer writes styled or plain output to a pair of writers.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   OutputMode

	Styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	r := &Renderer{out: out, errOut: errOut, isTTY: isTTY, mode: mode}
	if r.EffectiveMode() == ModeText {
		lr := lipgloss.NewRenderer(out)
		if isTTY {
			lr.SetColorProfile(termenv.ANSI256)
		}
		r.Styles = NewStyles(lr)
	} else {
		r.Styles = plainStyles()
	}
	return r
}

// EffectiveMode resolves auto against the terminal state.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode == ModeAuto || r.mode == "" {
		if r.isTTY {
			return ModeText
		}
		return ModePlain
	}
	return r.mode
}

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.errOut
}

// Println writes a line to standard output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output to standard output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section title. Level 1 titles are upper-cased.
func (r *Renderer) Header(level int, title string) {
	r.Println(r.Styles.Header.Render(FormatHeader(level, title)))
}

// Success writes a success line.
func (r *Renderer) Success(msg string) {
	r.Println(r.Styles.Success.Render(msg))
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(msg string) {
	r.Println(r.Styles.Muted.Render(msg))
}

// Warning writes a warning to the error writer.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.Styles.Warning.Render("WARNING:")+" "+msg)
}

// Error writes an error to the error writer.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.Styles.Error.Render("ERROR:")+" "+msg)
}

// StatusLine writes an indented item with a status marker.
func (r *Renderer) StatusLine(name, status, detail string) {
	var marker string
	switch status {
	case "success":
		marker = r.Styles.Success.Render("✓")
	case "warning":
		marker = r.Styles.Warning.Render("!")
	case "error":
		marker = r.Styles.Error.Render("✗")
	default:
		marker = r.Styles.Muted.Render("-")
	}
	line := fmt.Sprintf("  %s %s", marker, name)
	if detail != "" {
		line += " " + r.Styles.Muted.Render(detail)
	}
	r.Println(line)
}

// Table renders rows under a header, box-drawn in text mode and ASCII otherwise.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	if r.EffectiveMode() == ModeText {
		t.SetStyle(table.StyleLight)
	} else {
		t.SetStyle(table.StyleDefault)
	}

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}
	t.Render()
}

// FormatHeader formats a section title without styling.
func FormatHeader(level int, title string) string {
	if level <= 1 {
		return strings.ToUpper(title)
	}
	return title
}

// FormatKeyValue formats an aligned "key: value" line.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("  %-20s %s", key+":", value)
}
