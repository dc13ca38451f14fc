package mir

import (
	"errors"
	"fmt"
)

// bug aborts on a broken internal invariant. These are programming errors
// in whatever built or transformed the body, never user input errors.
func bug(format string, args ...any) {
	panic(fmt.Sprintf("mir: "+format, args...))
}

// EvalErrorKind classifies constant evaluation failures.
type EvalErrorKind uint8

const (
	// EvalReported means evaluation failed and a diagnostic was emitted.
	EvalReported EvalErrorKind = iota
	// EvalTooGeneric means the constant depends on generic parameters that
	// are not known yet.
	EvalTooGeneric
)

func (k EvalErrorKind) String() string {
	if k == EvalTooGeneric {
		return "too generic"
	}
	return "reported"
}

// EvalError is a constant evaluation failure.
type EvalError struct {
	Kind  EvalErrorKind
	Const string
	Span  Span
	Err   error
}

func (e *EvalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluating %s (%s): %s: %v", e.Const, e.Span, e.Kind, e.Err)
	}
	return fmt.Sprintf("evaluating %s (%s): %s", e.Const, e.Span, e.Kind)
}

func (e *EvalError) Unwrap() error { return e.Err }

// IsTooGeneric reports whether err is an EvalError of kind EvalTooGeneric.
func IsTooGeneric(err error) bool {
	var e *EvalError
	return errors.As(err, &e) && e.Kind == EvalTooGeneric
}

// AsEvalError extracts an EvalError from err.
func AsEvalError(err error) (*EvalError, bool) {
	var e *EvalError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
