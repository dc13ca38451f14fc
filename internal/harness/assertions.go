package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/mirkit/internal/diag"
	"github.com/roach88/mirkit/internal/mir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	// Diagnostics are every diagnostic of the run, for context.
	Diagnostics []*diag.Diagnostic
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&buf, "\nDiagnostics:\n")
		for i, d := range e.Diagnostics {
			fmt.Fprintf(&buf, "  [%d] %s[%s] %s: %s\n", i+1, d.Severity, d.Code, d.Body, d.Message)
		}
	}

	return buf.String()
}

func checkAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case AssertBodyPhase:
		return assertBodyPhase(r, a)
	case AssertBlockCount:
		return assertBlockCount(r, a)
	case AssertDumpContains:
		return assertDump(r, a, true)
	case AssertDumpExcludes:
		return assertDump(r, a, false)
	case AssertDiagnostic:
		return assertDiagnostic(r, a)
	case AssertNoErrors:
		return assertNoErrors(r)
	case AssertRunError:
		return assertRunError(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func lookupBody(r *Result, a Assertion) (*mir.Body, error) {
	b, ok := r.Body(a.Body)
	if !ok {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("body %s", a.Body),
			Actual:   "body was not run",
		}
	}
	return b, nil
}

func assertBodyPhase(r *Result, a Assertion) error {
	b, err := lookupBody(r, a)
	if err != nil {
		return err
	}
	want, err := mir.ParsePhaseName(a.Phase)
	if err != nil {
		return err
	}
	if b.Phase != want {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s at %s", a.Body, want),
			Actual:   fmt.Sprintf("%s at %s", a.Body, b.Phase),
		}
	}
	return nil
}

func assertBlockCount(r *Result, a Assertion) error {
	b, err := lookupBody(r, a)
	if err != nil {
		return err
	}
	if got := b.BasicBlocks.Len(); got != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s has %d blocks", a.Body, *a.Count),
			Actual:   fmt.Sprintf("%d blocks", got),
		}
	}
	return nil
}

func assertDump(r *Result, a Assertion, want bool) error {
	b, err := lookupBody(r, a)
	if err != nil {
		return err
	}
	dump := mir.FormatMirFn(b)
	if strings.Contains(dump, a.Text) == want {
		return nil
	}
	expected := fmt.Sprintf("dump of %s contains %q", a.Body, a.Text)
	if !want {
		expected = fmt.Sprintf("dump of %s does not contain %q", a.Body, a.Text)
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: "\n" + dump}
}

func assertDiagnostic(r *Result, a Assertion) error {
	for _, d := range r.Diagnostics {
		if d.Code != a.Code {
			continue
		}
		if a.Body != "" && d.Body != a.Body {
			continue
		}
		if a.Severity != "" && d.Severity.String() != a.Severity {
			continue
		}
		if a.Text != "" && !strings.Contains(d.Message, a.Text) {
			continue
		}
		return nil
	}
	return &AssertionError{
		Type:        a.Type,
		Expected:    fmt.Sprintf("diagnostic %s (body %q, severity %q, text %q)", a.Code, a.Body, a.Severity, a.Text),
		Actual:      fmt.Sprintf("%d diagnostic(s), none matching", len(r.Diagnostics)),
		Diagnostics: r.Diagnostics,
	}
}

func assertNoErrors(r *Result) error {
	var errs int
	for _, d := range r.Diagnostics {
		if d.Severity == diag.Error {
			errs++
		}
	}
	if errs == 0 {
		return nil
	}
	return &AssertionError{
		Type:        AssertNoErrors,
		Expected:    "no error diagnostics",
		Actual:      fmt.Sprintf("%d error(s)", errs),
		Diagnostics: r.Diagnostics,
	}
}

func assertRunError(r *Result, a Assertion) error {
	if r.RunErr == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("run error containing %q", a.Text),
			Actual:   "pipeline succeeded",
		}
	}
	if !strings.Contains(r.RunErr.Error(), a.Text) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("run error containing %q", a.Text),
			Actual:   r.RunErr.Error(),
		}
	}
	return nil
}
