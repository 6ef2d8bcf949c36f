package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/buildtl/internal/layout"
)

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TextWriter renders human-readable output
type TextWriter struct {
	w      io.Writer
	styled bool
}

// NewTextWriter creates a text writer; colors are used only on terminals
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w, styled: IsTerminal(w)}
}

// WriteTable writes rows as a table
func (t *TextWriter) WriteTable(rows []layout.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(t.w, "No units recorded")
		return err
	}

	table := tablewriter.NewWriter(t.w)
	table.Header("Iteration", "Unit", "Slot", "Start", "Duration", "Status")
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			shortID(r.Iteration),
			r.Unit,
			strconv.Itoa(r.Slot),
			FormatDuration(r.Offset),
			FormatDuration(r.Duration),
			status(r),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// WriteBars writes the packed timeline as one bar line per slot
func (t *TextWriter) WriteBars(rows []layout.Row, slots int, total time.Duration, width int) error {
	_, err := fmt.Fprintln(t.w, RenderBars(rows, slots, total, width, t.styled))
	return err
}

// WriteReport writes a session summary
func (t *TextWriter) WriteReport(r *ReportOutput) error {
	title := "Compilation report"
	if t.styled {
		title = lipgloss.NewStyle().Bold(true).Render(title)
	}
	lines := []string{
		title,
		fmt.Sprintf("  Iterations:  %d (%d with trace timing)", r.Iterations, r.Traced),
		fmt.Sprintf("  Units:       %d in %d slots", r.Units, r.Slots),
		fmt.Sprintf("  Total:       %s", FormatDuration(msDuration(r.TotalMS))),
		fmt.Sprintf("  Compilation: %s", FormatDuration(msDuration(r.CompilationMS))),
		fmt.Sprintf("  Unit span:   %s", FormatDuration(msDuration(r.UnitSpanMS))),
		fmt.Sprintf("  Reload:      %s", FormatDuration(msDuration(r.ReloadMS))),
	}
	if r.Errors > 0 || r.Warnings > 0 {
		lines = append(lines, fmt.Sprintf("  Diagnostics: %d errors, %d warnings", r.Errors, r.Warnings))
	}
	if r.Running {
		lines = append(lines, "  Status:      compiling")
	}
	_, err := fmt.Fprintln(t.w, strings.Join(lines, "\n"))
	return err
}

// FormatDuration rounds to milliseconds
func FormatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func status(r layout.Row) string {
	var parts []string
	switch {
	case r.Running:
		parts = append(parts, "running")
	case r.Synthesized:
		parts = append(parts, "estimated")
	default:
		parts = append(parts, "done")
	}
	if r.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%dE", r.Errors))
	}
	if r.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%dW", r.Warnings))
	}
	return strings.Join(parts, " ")
}

// Printf writes a formatted status line
func (t *TextWriter) Printf(format string, args ...any) {
	fmt.Fprintf(t.w, format, args...)
}
