package diagnostics

import (
	"fmt"
	"io"
	"strings"
)

// Formatter formats diagnostics for display.
type Formatter struct {
	// ShowContext prints the source lines around located diagnostics.
	ShowContext bool
	// ShowSource appends the producing stage to the header.
	ShowSource bool
	// Colorize uses ANSI color codes.
	Colorize bool
	// ContextLines is the number of lines shown either side of the error line.
	ContextLines int

	extractor *ContextExtractor
}

// NewFormatter creates a formatter that shows one line of context.
func NewFormatter() *Formatter {
	return &Formatter{ShowContext: true, ContextLines: 1, extractor: NewContextExtractor()}
}

// NewSimpleFormatter creates a formatter that prints header lines only.
func NewSimpleFormatter() *Formatter {
	return &Formatter{}
}

// Format formats a single diagnostic. Context that cannot be read is skipped.
func (f *Formatter) Format(d Diagnostic) string {
	var b strings.Builder

	if d.HasLocation() {
		fmt.Fprintf(&b, "%s: ", f.colorize(d.Location.String(), colorCyan))
	}
	fmt.Fprintf(&b, "%s: %s", f.colorize(d.Severity.String(), f.severityColor(d.Severity)), d.Message)
	if f.ShowSource && d.Source != "" {
		fmt.Fprintf(&b, " (%s)", d.Source)
	}
	b.WriteString("\n")

	if f.ShowContext && d.Location.Path != "" && d.Location.Line > 0 {
		if f.extractor == nil {
			f.extractor = NewContextExtractor()
		}
		ctx, err := f.extractor.ExtractContext(d.Location.Path, d.Location.Line, d.Location.Column, f.ContextLines)
		if err == nil {
			b.WriteString(ctx.Format())
		}
	}
	return b.String()
}

// WriteAll writes every diagnostic to w.
func (f *Formatter) WriteAll(w io.Writer, diags []Diagnostic) error {
	for _, d := range diags {
		if _, err := io.WriteString(w, f.Format(d)); err != nil {
			return err
		}
	}
	return nil
}

// Summary renders "N error(s), M warning(s)", or "" without diagnostics.
func (f *Formatter) Summary(diags []Diagnostic) string {
	var errs, warnings int
	for _, d := range diags {
		if d.IsError() {
			errs++
		} else {
			warnings++
		}
	}
	parts := make([]string, 0, 2)
	if errs > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d error(s)", errs), colorRed))
	}
	if warnings > 0 {
		parts = append(parts, f.colorize(fmt.Sprintf("%d warning(s)", warnings), colorYellow))
	}
	return strings.Join(parts, ", ")
}

func (f *Formatter) severityColor(s Severity) string {
	if s == SeverityError {
		return colorRed
	}
	return colorYellow
}

func (f *Formatter) colorize(s, color string) string {
	if !f.Colorize {
		return s
	}
	return color + s + colorReset
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)
