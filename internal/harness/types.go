package harness

import (
	"github.com/roach88/mirkit/internal/diag"
	"github.com/roach88/mirkit/internal/mir"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool

	// Bodies are the fn bodies after the pipeline, in fixture order.
	Bodies []*mir.Body

	// Diagnostics are sorted by body, code and message so parallel runs
	// compare equal.
	Diagnostics []*diag.Diagnostic

	// RunErr is the error the pipeline stopped with, if any.
	RunErr error

	// Dump holds MIR dumps requested by the pipeline's session.
	Dump string

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Body returns the body named name.
func (r *Result) Body(name string) (*mir.Body, bool) {
	for _, b := range r.Bodies {
		if b.Source.Instance.Name == name {
			return b, true
		}
	}
	return nil, false
}
