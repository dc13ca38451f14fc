package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirkit/internal/mir"
)

func statementStrings(data *mir.BasicBlockData) []string {
	out := make([]string, len(data.Statements))
	for i, s := range data.Statements {
		out[i] = s.String()
	}
	return out
}

// TestRemoveStorageMarkers tests that markers become nops in place.
func TestRemoveStorageMarkers(t *testing.T) {
	body := diamondBody()
	RemoveStorageMarkers{}.RunPass(NewTyCtxt(nil, nil), body)

	assert.Equal(t, []string{"nop"}, statementStrings(body.Block(0)))
	assert.Equal(t, []string{"_0 = move _2", "nop"}, statementStrings(body.Block(3)))
	assert.Equal(t, []string{"_2 = const 1_i32"}, statementStrings(body.Block(1)))

	assert.False(t, RemoveStorageMarkers{}.IsEnabled(&Session{}))
	assert.True(t, RemoveStorageMarkers{}.IsEnabled(&Session{OptLevel: 1}))
}

// TestCleanupPostBorrowck tests that borrowck-only constructs are gone and
// the body validates in the post-cleanup phase.
func TestCleanupPostBorrowck(t *testing.T) {
	blocks := []mir.BasicBlockData{
		block(mir.FalseEdge{RealTarget: 1, ImaginaryTarget: 2},
			mir.FakeRead{Cause: mir.ForLet, Place: mir.PlaceFrom(1)},
		),
		block(mir.FalseUnwind{RealTarget: 2, Unwind: mir.UnwindAction{Kind: mir.UnwindContinue}}),
		block(mir.Return{}, mir.Assign{Place: mir.ReturnPlaceRef(), Rvalue: mir.Use{Operand: mir.Copy{Place: mir.PlaceFrom(1)}}}),
	}
	body := newBody("cleanup", blocks)
	body.UserTypeAnnotations = []mir.CanonicalUserTypeAnnotation{{UserTy: i32(), Inferred: i32()}}
	body.LocalDecls[1].UserTy = &mir.UserTypeProjections{}

	// Warm the cache so the test also sees it dropped.
	require.Equal(t, [][]mir.BasicBlock{nil, {0}, {0, 1}}, body.BasicBlocks.Predecessors())

	CleanupPostBorrowck{}.RunPass(NewTyCtxt(nil, nil), body)

	assert.Equal(t, []string{"nop"}, statementStrings(body.Block(0)))
	assert.Equal(t, mir.Goto{Target: 1}, body.Block(0).Terminator().Kind)
	assert.Equal(t, mir.Goto{Target: 2}, body.Block(1).Terminator().Kind)
	assert.Empty(t, body.UserTypeAnnotations)
	assert.Nil(t, body.LocalDecls[1].UserTy)
	assert.Equal(t, [][]mir.BasicBlock{nil, {0}, {1}}, body.BasicBlocks.Predecessors())

	body.Phase = mir.Analysis(mir.AnalysisPostCleanup)
	assert.Empty(t, Validate(body))
}

// TestDeaggregator tests tuple, enum and array expansion.
func TestDeaggregator(t *testing.T) {
	pair := mir.TupleTy{Elems: []mir.Ty{i32(), i32()}}
	option := mir.AdtTy{Name: "Option", Args: []mir.Ty{i32()}}
	array := mir.ArrayTy{Elem: i32(), Len: mir.Uint(mir.Usize, 2)}

	blocks := []mir.BasicBlockData{
		block(mir.Return{},
			mir.StorageLive{Local: 2},
			mir.Assign{Place: mir.PlaceFrom(2), Rvalue: mir.Aggregate{
				Kind:   mir.AggregateTuple{},
				Fields: []mir.Operand{constI32(1), mir.Copy{Place: mir.PlaceFrom(1)}},
			}},
			mir.Assign{Place: mir.PlaceFrom(3), Rvalue: mir.Aggregate{
				Kind:   mir.AggregateAdt{Name: "Some", Variant: 1, IsEnum: true},
				Fields: []mir.Operand{mir.Copy{Place: mir.PlaceFrom(1)}},
			}},
			mir.Assign{Place: mir.PlaceFrom(4), Rvalue: mir.Aggregate{
				Kind:   mir.AggregateArray{Elem: i32()},
				Fields: []mir.Operand{constI32(3), constI32(4)},
			}},
			mir.Assign{Place: mir.ReturnPlaceRef(), Rvalue: mir.Use{Operand: mir.Copy{Place: mir.PlaceFrom(1)}}},
		),
	}
	body := newBody("agg", blocks, pair, option, array)

	Deaggregator{}.RunPass(NewTyCtxt(nil, nil), body)

	assert.Equal(t, []string{
		"StorageLive(_2)",
		"(_2.0: i32) = const 1_i32",
		"(_2.1: i32) = _1",
		"((_3 as variant#1).0: i32) = _1",
		"discriminant(_3) = 1",
		"_4[0 of 2] = const 3_i32",
		"_4[1 of 2] = const 4_i32",
		"_0 = _1",
	}, statementStrings(body.Block(0)))

	// The terminator location moved with the statements.
	assert.Equal(t, mir.Location{Block: 0, StatementIndex: 8}, body.TerminatorLoc(0))
	assert.False(t, body.StmtAt(body.TerminatorLoc(0)).IsStatement())
}

// TestDeaggregator_EmptyAggregate tests that a field-less struct becomes a
// nop and a field-less enum variant only sets the discriminant.
func TestDeaggregator_EmptyAggregate(t *testing.T) {
	unitStruct := mir.AdtTy{Name: "Marker"}
	option := mir.AdtTy{Name: "Option", Args: []mir.Ty{i32()}}
	blocks := []mir.BasicBlockData{
		block(mir.Return{},
			mir.Assign{Place: mir.PlaceFrom(2), Rvalue: mir.Aggregate{Kind: mir.AggregateAdt{Name: "Marker"}}},
			mir.Assign{Place: mir.PlaceFrom(3), Rvalue: mir.Aggregate{Kind: mir.AggregateAdt{Name: "None", IsEnum: true}}},
		),
	}
	body := newBody("empty", blocks, unitStruct, option)

	Deaggregator{}.RunPass(NewTyCtxt(nil, nil), body)

	assert.Equal(t, []string{"nop", "discriminant(_3) = 0"}, statementStrings(body.Block(0)))
}

// TestSimplifyGoto tests that goto chains collapse and predecessors follow.
func TestSimplifyGoto(t *testing.T) {
	blocks := []mir.BasicBlockData{
		block(mir.Goto{Target: 1}),
		block(mir.Goto{Target: 2}),
		block(mir.Goto{Target: 3}, mir.Nop{}),
		block(mir.Return{}, mir.Assign{Place: mir.ReturnPlaceRef(), Rvalue: mir.Use{Operand: constI32(0)}}),
	}
	body := newBody("chain", blocks)
	require.Equal(t, [][]mir.BasicBlock{nil, {0}, {1}, {2}}, body.BasicBlocks.Predecessors())

	SimplifyGoto{}.RunPass(NewTyCtxt(nil, nil), body)

	assert.Equal(t, mir.Goto{Target: 3}, body.Block(0).Terminator().Kind)
	assert.Empty(t, body.BasicBlocks.Predecessors()[0])
	assert.Equal(t, []mir.BasicBlock{0, 1, 2}, body.BasicBlocks.Predecessors()[3])
	assert.Equal(t, []mir.BasicBlock{0, 3}, body.BasicBlocks.ReversePostorder())
}

// TestSimplifyGoto_Boundaries tests chains that must not be followed.
func TestSimplifyGoto_Boundaries(t *testing.T) {
	t.Run("cleanup boundary", func(t *testing.T) {
		cleanup := block(mir.UnwindResume{})
		cleanup.IsCleanup = true
		blocks := []mir.BasicBlockData{
			block(mir.Drop{Place: mir.PlaceFrom(1), Target: 1, Unwind: mir.CleanupTo(2)}),
			block(mir.Return{}),
			block(mir.Goto{Target: 3}),
			cleanup,
		}
		body := newBody("drop", blocks)

		SimplifyGoto{}.RunPass(NewTyCtxt(nil, nil), body)

		assert.Equal(t, mir.CleanupTo(2), body.Block(0).Terminator().Kind.(mir.Drop).Unwind)
	})

	t.Run("goto cycle terminates", func(t *testing.T) {
		blocks := []mir.BasicBlockData{
			block(mir.Goto{Target: 1}),
			block(mir.Goto{Target: 2}),
			block(mir.Goto{Target: 1}),
		}
		body := newBody("spin", blocks)

		SimplifyGoto{}.RunPass(NewTyCtxt(nil, nil), body)

		target := body.Block(0).Terminator().Kind.(mir.Goto).Target
		assert.Contains(t, []mir.BasicBlock{1, 2}, target)
		assert.True(t, body.BasicBlocks.IsCyclic())
	})

	t.Run("statements block the chain", func(t *testing.T) {
		body := diamondBody()
		SimplifyGoto{}.RunPass(NewTyCtxt(nil, nil), body)
		assert.Equal(t, [][]mir.BasicBlock{nil, {0}, {0}, {1, 2}}, body.BasicBlocks.Predecessors())
	})
}

// TestRemoveUnreachableBlocks tests that unreachable blocks are emptied
// without renumbering.
func TestRemoveUnreachableBlocks(t *testing.T) {
	dead := block(mir.Goto{Target: 2}, mir.Assign{Place: mir.ReturnPlaceRef(), Rvalue: mir.Use{Operand: constI32(9)}})
	blocks := []mir.BasicBlockData{
		block(mir.Return{}),
		dead,
		block(mir.Return{}),
		block(mir.Unreachable{}, mir.Nop{}),
	}
	body := newBody("dead", blocks)

	RemoveUnreachableBlocks{}.RunPass(NewTyCtxt(nil, nil), body)

	require.Equal(t, 4, body.BasicBlocks.Len())
	assert.Equal(t, mir.Return{}, body.Block(0).Terminator().Kind)
	for _, bb := range []mir.BasicBlock{1, 2, 3} {
		assert.True(t, body.Block(bb).IsEmptyUnreachable(), "bb%d", bb)
	}
	assert.Empty(t, body.Block(1).Statements)
	assert.Len(t, body.Block(3).Statements, 1)
	assert.Equal(t, [][]mir.BasicBlock{nil, nil, nil, nil}, body.BasicBlocks.Predecessors())
}

// stubEvaluator fails constants named in fail.
type stubEvaluator struct {
	fail map[string]mir.EvalErrorKind
}

func (e stubEvaluator) EvalConst(_ context.Context, _ mir.ParamEnv, c mir.ConstantKind, span mir.Span) (mir.ValueConst, error) {
	if kind, ok := e.fail[c.String()]; ok {
		return mir.ValueConst{}, &mir.EvalError{Kind: kind, Const: c.String(), Span: span}
	}
	return mir.Uint(mir.Usize, 1), nil
}

// TestCheckRequiredConsts tests that failing required constants are
// reported.
func TestCheckRequiredConsts(t *testing.T) {
	tests := []struct {
		name         string
		fail         map[string]mir.EvalErrorKind
		wantErrors   int
		wantWarnings int
	}{
		{"all good", nil, 0, 0},
		{"hard failure", map[string]mir.EvalErrorKind{"B": mir.EvalReported}, 1, 0},
		{"too generic", map[string]mir.EvalErrorKind{"A": mir.EvalTooGeneric}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := diamondBody()
			for _, name := range []string{"A", "B"} {
				body.RequiredConsts = append(body.RequiredConsts, mir.Constant{
					Literal: mir.UnevaluatedConst{Name: name, Type: mir.PrimTy{Kind: mir.Usize}},
				})
			}
			tcx := NewTyCtxt(nil, stubEvaluator{fail: tt.fail})

			CheckRequiredConsts{}.RunPass(tcx, body)

			assert.Equal(t, tt.wantErrors, tcx.Diag.ErrorCount())
			assert.Equal(t, tt.wantWarnings, tcx.Diag.WarningCount())
			for _, d := range tcx.Diag.Diagnostics() {
				assert.Equal(t, ErrRequiredConst, d.Code)
				assert.Equal(t, "CheckRequiredConsts", d.Pass)
			}
		})
	}

	t.Run("no evaluator", func(t *testing.T) {
		tcx := NewTyCtxt(nil, nil)
		CheckRequiredConsts{}.RunPass(tcx, diamondBody())
		assert.False(t, tcx.Diag.HasErrors())
	})
}
