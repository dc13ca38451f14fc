package mir

import (
	"context"
	"fmt"
)

// Reveal controls how much of opaque types a ParamEnv exposes.
type Reveal uint8

const (
	RevealUserFacing Reveal = iota
	RevealAll
)

// ParamEnv is the environment constants are evaluated in.
type ParamEnv struct {
	Reveal Reveal
}

// ConstNormalizer substitutes the final generic arguments into a constant
// before evaluation.
type ConstNormalizer func(ConstantKind) (ConstantKind, error)

// ConstEvaluator evaluates constants. Implementations return an
// *EvalError on failure.
type ConstEvaluator interface {
	EvalConst(ctx context.Context, env ParamEnv, c ConstantKind, span Span) (ValueConst, error)
}

// MonoCheckStatus is the outcome of PostMonoChecks.
type MonoCheckStatus uint8

const (
	MonoCheckPassed MonoCheckStatus = iota
	MonoCheckFailed
	// MonoCheckTooGeneric means some constant could not be evaluated
	// because it still depends on generic parameters.
	MonoCheckTooGeneric
)

func (s MonoCheckStatus) String() string {
	switch s {
	case MonoCheckFailed:
		return "failed"
	case MonoCheckTooGeneric:
		return "too generic"
	default:
		return "passed"
	}
}

// PostMonoChecks evaluates every required constant once the body's generic
// arguments are known.
//
// A hard evaluation failure stops checking and is returned with
// MonoCheckFailed. Too-generic results do not stop checking; if no hard
// failure follows, the first of them is returned with MonoCheckTooGeneric.
func (b *Body) PostMonoChecks(ctx context.Context, env ParamEnv, normalize ConstNormalizer, eval ConstEvaluator) (MonoCheckStatus, error) {
	var tooGeneric error
	for _, c := range b.RequiredConsts {
		if err := ctx.Err(); err != nil {
			return MonoCheckFailed, err
		}

		lit := c.Literal
		if normalize != nil {
			n, err := normalize(lit)
			if err != nil {
				if IsTooGeneric(err) {
					if tooGeneric == nil {
						tooGeneric = err
					}
					continue
				}
				return MonoCheckFailed, fmt.Errorf("normalizing %s: %w", lit, err)
			}
			lit = n
		}

		if _, err := eval.EvalConst(ctx, env, lit, c.Span); err != nil {
			if IsTooGeneric(err) {
				if tooGeneric == nil {
					tooGeneric = err
				}
				continue
			}
			return MonoCheckFailed, err
		}
	}
	if tooGeneric != nil {
		return MonoCheckTooGeneric, tooGeneric
	}
	return MonoCheckPassed, nil
}
