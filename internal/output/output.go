// Package output provides consistent CLI output formatting with optional
// color when writing to a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette, single accent.
const (
	colorGreen  = "114" // success
	colorYellow = "220" // warnings
	colorRed    = "196" // errors
	colorGray   = "245" // secondary text
	colorCyan   = "81"  // headers, ids
)

// Styles holds the text styles used by the Writer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	ID      lipgloss.Style
	Score   lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCyan)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		ID:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
	}
}

// NoColorStyles returns an unstyled set for non-terminal output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		ID:      lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
	}
}

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer. Color is enabled only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return &Writer{out: out, styles: stylesFor(out)}
}

// NewPlain creates a Writer that never emits color.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: NoColorStyles()}
}

func stylesFor(out io.Writer) Styles {
	if os.Getenv("NO_COLOR") != "" {
		return NoColorStyles()
	}
	f, ok := out.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// Styles exposes the active style set for custom formatting.
func (w *Writer) Styles() Styles {
	return w.styles
}

// Println writes a plain line.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Println(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Printf writes a plain formatted line.
func (w *Writer) Printf(format string, args ...any) {
	w.Println(fmt.Sprintf(format, args...))
}

// Header writes a bold section line.
func (w *Writer) Header(msg string) {
	w.Println(w.styles.Header.Render(msg))
}

// Success writes a success line.
func (w *Writer) Success(msg string) {
	w.Println(w.styles.Success.Render("✓ " + msg))
}

// Successf writes a formatted success line.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning writes a warning line.
func (w *Writer) Warning(msg string) {
	w.Println(w.styles.Warning.Render("! " + msg))
}

// Error writes an error line.
func (w *Writer) Error(msg string) {
	w.Println(w.styles.Error.Render("✗ " + msg))
}

// Dim writes a secondary-text line.
func (w *Writer) Dim(msg string) {
	w.Println(w.styles.Dim.Render(msg))
}

// Indent writes each line of content indented.
func (w *Writer) Indent(content string) {
	for _, line := range strings.Split(content, "\n") {
		w.Println("   " + line)
	}
}

// Newline writes an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
