// Package diagnostics describes problems found in project and definition
// files, with their location and an optional snippet of the offending source.
package diagnostics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/electwix/dsdl-catalyst/internal/dsdl"
)

// Severity indicates the seriousness of a diagnostic.
type Severity int

const (
	// SeverityWarning does not stop generation.
	SeverityWarning Severity = iota
	// SeverityError aborts the run.
	SeverityError
)

// String returns the lower-case name of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Location represents a position in a source file. Line and Column are
// 1-based; a zero Line refers to the file as a whole.
type Location struct {
	Path   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.Line <= 0 {
		return l.Path
	}
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// Diagnostic is a positioned message about an input file.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location Location
	// Source names the stage that produced the diagnostic, e.g. "config" or "reader".
	Source string
}

// HasLocation returns true if the diagnostic names a file.
func (d Diagnostic) HasLocation() bool {
	return d.Location.Path != ""
}

// IsError returns true if the diagnostic is an error.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// String renders path:line:column: severity: message.
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.HasLocation() {
		fmt.Fprintf(&b, "%s: ", d.Location)
	}
	fmt.Fprintf(&b, "%s: %s", d.Severity, d.Message)
	return b.String()
}

// FromError builds an error diagnostic for err. A wrapped *dsdl.ParseError
// supplies the exact location; otherwise the diagnostic refers to path as a
// whole.
func FromError(source, path string, err error) Diagnostic {
	var parseErr *dsdl.ParseError
	if errors.As(err, &parseErr) {
		return Diagnostic{
			Severity: SeverityError,
			Message:  parseErr.Message,
			Location: Location{Path: parseErr.Path, Line: parseErr.Line, Column: parseErr.Column},
			Source:   source,
		}
	}
	return Diagnostic{
		Severity: SeverityError,
		Message:  err.Error(),
		Location: Location{Path: path},
		Source:   source,
	}
}

// Warning builds a warning diagnostic about path as a whole.
func Warning(source, path, message string) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Message:  message,
		Location: Location{Path: path},
		Source:   source,
	}
}

// Collection accumulates diagnostics in report order.
type Collection struct {
	diags []Diagnostic
}

// Add appends diagnostics to the collection.
func (c *Collection) Add(diags ...Diagnostic) {
	c.diags = append(c.diags, diags...)
}

// All returns the collected diagnostics.
func (c *Collection) All() []Diagnostic {
	return c.diags
}

// HasErrors reports whether any collected diagnostic is an error.
func (c *Collection) HasErrors() bool {
	for _, d := range c.diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Len returns the number of collected diagnostics.
func (c *Collection) Len() int { return len(c.diags) }
