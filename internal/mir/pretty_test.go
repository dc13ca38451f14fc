package mir

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// TestWriteMirFn_Diamond tests the dump of a branching body.
func TestWriteMirFn_Diamond(t *testing.T) {
	body := newTestBody(diamondBlocks(), 1, 1)
	body.VarDebugInfo = []VarDebugInfo{{
		Name:  Intern("x"),
		Value: DebugPlace{Place: PlaceFrom(1)},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteMirFn(&buf, body))

	newGolden(t).Assert(t, "diamond", buf.Bytes())
}

// TestWriteMirFn_Cleanup tests the dump of calls, cleanup blocks and
// projections.
func TestWriteMirFn_Cleanup(t *testing.T) {
	ret := BasicBlock(1)
	locals := testLocals(1, 1)
	locals[1].Ty = RefTy{Mut: Imm, Elem: AdtTy{Name: "Vec", Args: []Ty{i32()}}}
	locals[1] = locals[1].AsImmutable()
	locals[2].Ty = TupleTy{Elems: []Ty{i32(), PrimTy{Kind: Bool}}}

	blocks := []BasicBlockData{
		block(Call{
			Func:        ConstOperand{Constant: Constant{Literal: ValueConst{Type: FnDefTy{Name: "len"}}}},
			Args:        []Operand{Copy{Place: PlaceFrom(1).Project(Deref{})}},
			Destination: PlaceFrom(0),
			Target:      &ret,
			Unwind:      CleanupTo(2),
		}),
		block(Return{},
			Assign{Place: PlaceFrom(2), Rvalue: BinaryOp{Op: Add, Left: Copy{Place: PlaceFrom(0)}, Right: ConstOperand{Constant: Constant{Literal: Int(I32, -1)}}, Checked: true}},
			Assign{Place: PlaceFrom(0), Rvalue: Use{Operand: Move{Place: PlaceFrom(2).Project(Field{Index: 0, Ty: i32()})}}},
		),
		{Term: term(UnwindResume{}), IsCleanup: true},
	}
	body := NewBody(MirSourceItem(DefID{Index: 2}, "length"), blocks, nil, locals, nil, 1, nil, DummySpan, nil, nil)
	body.Phase = Runtime(RuntimeOptimized)

	newGolden(t).Assert(t, "cleanup", []byte(FormatMirFn(body)))
}

// TestFormatMirFn_KeepsNops tests that statements removed in place still
// show up as nop lines, keeping statement indices readable.
func TestFormatMirFn_KeepsNops(t *testing.T) {
	body := newTestBody(diamondBlocks(), 1, 1)
	body.BasicBlocksMut().Get(0).RetainStatements(func(*Statement) bool { return false })

	out := FormatMirFn(body)
	assert.Contains(t, out, "    bb0: {\n        nop;\n        switchInt(")
	assert.NotContains(t, out, "StorageLive")
}
