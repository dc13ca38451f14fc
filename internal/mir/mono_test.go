package mir

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEvaluator fails constants by name.
type scriptedEvaluator struct {
	failures map[string]EvalErrorKind
	seen     []string
}

func (e *scriptedEvaluator) EvalConst(_ context.Context, _ ParamEnv, c ConstantKind, span Span) (ValueConst, error) {
	e.seen = append(e.seen, c.String())
	if kind, ok := e.failures[c.String()]; ok {
		return ValueConst{}, &EvalError{Kind: kind, Const: c.String(), Span: span}
	}
	return Uint(Usize, 0), nil
}

func unevaluated(name string) Constant {
	return Constant{Literal: UnevaluatedConst{Name: name, Type: PrimTy{Kind: Usize}}}
}

// TestPostMonoChecks tests the three outcomes of required-constant
// checking.
func TestPostMonoChecks(t *testing.T) {
	tests := []struct {
		name       string
		failures   map[string]EvalErrorKind
		wantStatus MonoCheckStatus
		wantConst  string
		wantSeen   []string
	}{
		{
			name:       "all evaluate",
			wantStatus: MonoCheckPassed,
			wantSeen:   []string{"A", "B", "C"},
		},
		{
			name:       "hard failure stops",
			failures:   map[string]EvalErrorKind{"B": EvalReported},
			wantStatus: MonoCheckFailed,
			wantConst:  "B",
			wantSeen:   []string{"A", "B"},
		},
		{
			name:       "too generic continues",
			failures:   map[string]EvalErrorKind{"A": EvalTooGeneric, "C": EvalTooGeneric},
			wantStatus: MonoCheckTooGeneric,
			wantConst:  "A",
			wantSeen:   []string{"A", "B", "C"},
		},
		{
			name:       "hard failure after too generic",
			failures:   map[string]EvalErrorKind{"A": EvalTooGeneric, "C": EvalReported},
			wantStatus: MonoCheckFailed,
			wantConst:  "C",
			wantSeen:   []string{"A", "B", "C"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := newTestBody(diamondBlocks(), 1, 1)
			body.RequiredConsts = []Constant{unevaluated("A"), unevaluated("B"), unevaluated("C")}
			eval := &scriptedEvaluator{failures: tt.failures}

			status, err := body.PostMonoChecks(context.Background(), ParamEnv{}, nil, eval)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantSeen, eval.seen)
			if tt.wantConst == "" {
				require.NoError(t, err)
				return
			}
			evalErr, ok := AsEvalError(err)
			require.True(t, ok, "expected *EvalError, got %v", err)
			assert.Equal(t, tt.wantConst, evalErr.Const)
		})
	}
}

// TestPostMonoChecks_NormalizerError tests that normalization failures
// propagate wrapped.
func TestPostMonoChecks_NormalizerError(t *testing.T) {
	body := newTestBody(diamondBlocks(), 1, 1)
	body.RequiredConsts = []Constant{unevaluated("A")}
	boom := errors.New("layout error")

	status, err := body.PostMonoChecks(context.Background(), ParamEnv{}, func(ConstantKind) (ConstantKind, error) {
		return nil, boom
	}, &scriptedEvaluator{})

	assert.Equal(t, MonoCheckFailed, status)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTooGeneric(err))
}

// TestPostMonoChecks_Cancelled tests that a cancelled context stops
// checking.
func TestPostMonoChecks_Cancelled(t *testing.T) {
	body := newTestBody(diamondBlocks(), 1, 1)
	body.RequiredConsts = []Constant{unevaluated("A")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := body.PostMonoChecks(ctx, ParamEnv{}, nil, &scriptedEvaluator{})

	assert.Equal(t, MonoCheckFailed, status)
	assert.ErrorIs(t, err, context.Canceled)
}
