// Package diag collects positioned compiler diagnostics
package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"
)

// Severity of a diagnostic
type Severity int

const (
	Error Severity = iota
	Warning
)

var severityNames = []string{"error", "warning"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// Diagnostic is a single positioned message. Line and Column are 1-based;
// program-level diagnostics use 0:0.
type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int
	Column   int
}

// String renders "line:col - message"
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d - %s", d.Line, d.Column, d.Message)
}

// List accumulates diagnostics in report order
type List struct {
	items []Diagnostic
}

// Errorf appends an error at line:col
func (l *List) Errorf(line, col int, format string, args ...interface{}) {
	l.add(Error, line, col, format, args...)
}

// Warnf appends a warning at line:col
func (l *List) Warnf(line, col int, format string, args ...interface{}) {
	l.add(Warning, line, col, format, args...)
}

func (l *List) add(sev Severity, line, col int, format string, args ...interface{}) {
	l.items = append(l.items, Diagnostic{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   col,
	})
}

// Append adds all diagnostics of other
func (l *List) Append(other List) {
	l.items = append(l.items, other.items...)
}

// All returns the diagnostics in report order
func (l *List) All() []Diagnostic { return l.items }

// Len returns the number of diagnostics
func (l *List) Len() int { return len(l.items) }

// IsEmpty reports whether nothing was reported
func (l *List) IsEmpty() bool { return len(l.items) == 0 }

// Errors returns only the error-severity diagnostics
func (l *List) Errors() []Diagnostic {
	var errs []Diagnostic
	for _, d := range l.items {
		if d.Severity == Error {
			errs = append(errs, d)
		}
	}
	return errs
}

// HasErrors reports whether at least one error was reported
func (l *List) HasErrors() bool {
	for _, d := range l.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by position, keeping report order for ties
func (l *List) Sort() {
	sort.SliceStable(l.items, func(i, j int) bool {
		a, b := l.items[i], l.items[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// String renders one diagnostic per line
func (l *List) String() string {
	var sb strings.Builder
	for _, d := range l.items {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorBold   = "\x1b[1m"
	colorReset  = "\x1b[0m"
)

// Format writes diagnostics as "file:line:col: severity: message".
// Severity is colored when w is a terminal.
func (l *List) Format(w io.Writer, file string) error {
	color := isTerminal(w)
	for _, d := range l.items {
		sev := d.Severity.String()
		if color {
			c := colorRed
			if d.Severity == Warning {
				c = colorYellow
			}
			sev = colorBold + c + sev + colorReset
		}
		if _, err := fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", file, d.Line, d.Column, sev, d.Message); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
