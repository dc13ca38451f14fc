// Package diag collects diagnostics reported by MIR passes.
//
// Passes never abort the pipeline on a malformed body. They report into a
// Bag and carry on; the driver decides afterwards whether the errors are
// fatal for the item.
package diag

import (
	"fmt"
	"io"
	"sync"

	"github.com/roach88/mirkit/internal/mir"
)

// Severity is the severity level of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Code     string // e.g. "E104"
	Message  string
	// Body names the item the diagnostic is about.
	Body string
	// Pass is the pass that reported it, if any.
	Pass     string
	Location *mir.Location
	Span     mir.Span
	Help     string
}

func (d *Diagnostic) String() string {
	s := d.Severity.String()
	if d.Code != "" {
		s += "[" + d.Code + "]"
	}
	s += ": " + d.Message
	if d.Body != "" {
		s += "\n  --> " + d.Body
		if d.Location != nil {
			s += " at " + d.Location.String()
		}
	}
	if d.Pass != "" {
		s += "\n  = note: reported by " + d.Pass
	}
	if d.Help != "" {
		s += "\n  = help: " + d.Help
	}
	return s
}

// Bag collects diagnostics from concurrent passes.
type Bag struct {
	mu          sync.Mutex
	diagnostics []*Diagnostic
	errorCount  int
	warnCount   int
}

// NewBag returns an empty bag.
func NewBag() *Bag {
	return &Bag{}
}

// Add records d.
func (b *Bag) Add(d *Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.diagnostics = append(b.diagnostics, d)
	switch d.Severity {
	case Error:
		b.errorCount++
	case Warning:
		b.warnCount++
	}
}

// Errorf records an error with the given code.
func (b *Bag) Errorf(code, format string, args ...any) *Diagnostic {
	d := &Diagnostic{Severity: Error, Code: code, Message: fmt.Sprintf(format, args...)}
	b.Add(d)
	return d
}

// Warnf records a warning with the given code.
func (b *Bag) Warnf(code, format string, args ...any) *Diagnostic {
	d := &Diagnostic{Severity: Warning, Code: code, Message: fmt.Sprintf(format, args...)}
	b.Add(d)
	return d
}

// HasErrors reports whether any error was recorded.
func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount > 0
}

// ErrorCount returns the number of errors.
func (b *Bag) ErrorCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount
}

// WarningCount returns the number of warnings.
func (b *Bag) WarningCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.warnCount
}

// Diagnostics returns a copy of everything recorded so far.
func (b *Bag) Diagnostics() []*Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Diagnostic, len(b.diagnostics))
	copy(out, b.diagnostics)
	return out
}

// Clear drops every diagnostic.
func (b *Bag) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diagnostics = nil
	b.errorCount = 0
	b.warnCount = 0
}

// WriteTo writes every diagnostic followed by a summary line.
func (b *Bag) WriteTo(w io.Writer) (int64, error) {
	diags := b.Diagnostics()
	errs, warns := b.ErrorCount(), b.WarningCount()

	var n int64
	for _, d := range diags {
		m, err := fmt.Fprintf(w, "%s\n\n", d)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}

	var m int
	var err error
	switch {
	case errs > 0 && warns > 0:
		m, err = fmt.Fprintf(w, "%d error(s) and %d warning(s) emitted\n", errs, warns)
	case errs > 0:
		m, err = fmt.Fprintf(w, "%d error(s) emitted\n", errs)
	case warns > 0:
		m, err = fmt.Fprintf(w, "%d warning(s) emitted\n", warns)
	}
	return n + int64(m), err
}
