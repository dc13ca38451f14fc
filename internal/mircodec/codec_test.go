package mircodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirkit/internal/mir"
)

func emitString(e *Encoder, s string) { e.EmitString(s) }
func readString(d *Decoder) string    { return d.ReadString() }

// TestClearCrossCrateRoundTrip tests both channels for both variants.
func TestClearCrossCrateRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value mir.ClearCrossCrate[string]
	}{
		{"set", mir.SetCrossCrate("lint root")},
		{"set empty", mir.SetCrossCrate("")},
		{"clear", mir.ClearCross[string]()},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/local", func(t *testing.T) {
			e := NewEncoder(false)
			EncodeClearCrossCrate(e, tt.value, emitString)

			d := NewDecoder(e.Bytes(), false)
			got := DecodeClearCrossCrate(d, readString)

			require.NoError(t, d.Err())
			assert.Equal(t, tt.value, got)
			assert.Zero(t, d.Remaining())
		})
		t.Run(tt.name+"/cross crate", func(t *testing.T) {
			e := NewEncoder(true)
			EncodeClearCrossCrate(e, tt.value, emitString)
			assert.Empty(t, e.Bytes())

			d := NewDecoder(e.Bytes(), true)
			got := DecodeClearCrossCrate(d, readString)

			require.NoError(t, d.Err())
			assert.True(t, got.IsClear())
		})
	}
}

// TestClearCrossCrate_WireShape tests the tag bytes.
func TestClearCrossCrate_WireShape(t *testing.T) {
	e := NewEncoder(false)
	EncodeClearCrossCrate(e, mir.ClearCross[string](), emitString)
	assert.Equal(t, []byte{0}, e.Bytes())

	e.Reset()
	EncodeClearCrossCrate(e, mir.SetCrossCrate("ab"), emitString)
	assert.Equal(t, []byte{1, 2, 'a', 'b'}, e.Bytes())
}

// TestClearCrossCrate_BadTagPanics tests that an unknown tag aborts.
func TestClearCrossCrate_BadTagPanics(t *testing.T) {
	d := NewDecoder([]byte{7}, false)
	assert.PanicsWithValue(t, "mircodec: invalid tag for ClearCrossCrate: 7", func() { DecodeClearCrossCrate(d, readString) })
}

func sampleBody() *mir.Body {
	i32 := mir.PrimTy{Kind: mir.I32}
	ret := mir.BasicBlock(1)
	annotated := mir.Span{Lo: 3, Hi: 4}
	argIdx := uint16(1)
	promoted := mir.Promoted(0)

	locals := []mir.LocalDecl{
		mir.NewLocalDecl(i32, mir.DummySpan),
		mir.NewLocalDecl(mir.RefTy{Mut: mir.Mut, Elem: mir.ArrayTy{Elem: i32, Len: mir.Uint(mir.Usize, 4)}}, mir.Span{Lo: 1, Hi: 2}).
			WithInfo(mir.UserLocal{Binding: mir.VarBinding{Mode: mir.BindByValue, OptTyInfo: &annotated}}),
		mir.NewLocalDecl(mir.ParamTy{Index: 0, Name: "T"}, mir.DummySpan).AsInternal().WithInfo(mir.StaticRef{IsThreadLocal: true}),
		mir.NewLocalDecl(mir.TupleTy{Elems: []mir.Ty{i32, mir.PrimTy{Kind: mir.Bool}}}, mir.DummySpan).WithInfo(mir.DerefTemp{}),
	}
	locals[1].UserTy = (&mir.UserTypeProjections{}).PushProjection(mir.UserTypeProjection{Base: 0}, annotated).Index()

	blocks := []mir.BasicBlockData{
		{
			Statements: []mir.Statement{
				{Kind: mir.StorageLive{Local: 3}},
				{Kind: mir.Assign{
					Place:  mir.PlaceFrom(3),
					Rvalue: mir.BinaryOp{Op: mir.Add, Checked: true, Left: mir.Copy{Place: mir.PlaceFrom(1).Project(mir.Deref{}).Project(mir.ConstantIndex{Offset: 1, MinLength: 4})}, Right: mir.ConstOperand{Constant: mir.Constant{Literal: mir.Int(mir.I32, -2)}}},
				}},
				{Kind: mir.FakeRead{Cause: mir.ForLet, Place: mir.PlaceFrom(3)}},
			},
			Term: &mir.Terminator{Kind: mir.Assert{
				Cond:   mir.Move{Place: mir.PlaceFrom(3).Project(mir.Field{Index: 1, Ty: mir.PrimTy{Kind: mir.Bool}})},
				Msg:    mir.AssertOverflow,
				Target: 1,
				Unwind: mir.CleanupTo(2),
			}},
		},
		{
			Statements: []mir.Statement{
				{Kind: mir.Assign{Place: mir.PlaceFrom(0), Rvalue: mir.Aggregate{Kind: mir.AggregateAdt{Name: "Option", Variant: 1, IsEnum: true}, Fields: []mir.Operand{mir.Copy{Place: mir.PlaceFrom(2)}}}}},
			},
			Term: &mir.Terminator{
				SourceInfo: mir.SourceInfo{Span: mir.Span{Lo: 9, Hi: 10}, Scope: 1},
				Kind: mir.Call{
					Func:        mir.ConstOperand{Constant: mir.Constant{Literal: mir.UnevaluatedConst{Name: "callee", Promoted: &promoted, Type: i32}}},
					Destination: mir.PlaceFrom(0),
					Target:      &ret,
					Unwind:      mir.UnwindAction{Kind: mir.UnwindTerminateAction},
				},
			},
		},
		{Term: &mir.Terminator{Kind: mir.UnwindResume{}}, IsCleanup: true},
	}

	var scopes mir.SourceScopes
	root := scopes.Push(mir.SourceScopeData{LocalData: mir.SetCrossCrate(mir.SourceScopeLocalData{Safety: mir.Safety{Kind: mir.ExplicitUnsafe, Block: mir.HirID{LocalID: 4}}})})
	scopes.Push(mir.SourceScopeData{ParentScope: &root, Inlined: &mir.InlinedScope{Instance: mir.Instance{Name: "inlined", Args: []mir.Ty{i32}}}})

	kind := mir.GeneratorAsyncBlock
	body := mir.NewBody(mir.MirSourceItem(mir.DefID{Crate: 1, Index: 42}, "sample"), blocks, scopes, locals, []mir.CanonicalUserTypeAnnotation{{UserTy: i32, Inferred: i32}}, 1,
		[]mir.VarDebugInfo{{Name: mir.Intern("xs"), Value: mir.DebugPlace{Place: mir.PlaceFrom(1)}, ArgumentIndex: &argIdx}},
		mir.Span{Lo: 0, Hi: 100}, &kind, nil)
	body.Generator.YieldTy = i32
	body.RequiredConsts = []mir.Constant{{Literal: mir.UnevaluatedConst{Name: "N", Type: mir.PrimTy{Kind: mir.Usize}}}}
	injection := mir.Analysis(mir.AnalysisPostCleanup)
	body.InjectionPhase = &injection
	body.Phase = mir.Runtime(mir.RuntimeInitial)
	body.PassCount = 7
	return body
}

// TestBodyRoundTrip_Local tests that the incremental channel keeps every
// field.
func TestBodyRoundTrip_Local(t *testing.T) {
	body := sampleBody()
	data := Marshal(body, false)

	got, err := Unmarshal(data, false)
	require.NoError(t, err)

	assert.Equal(t, data, Marshal(got, false), "re-encoding must be stable")
	assert.Equal(t, mir.FormatMirFn(body), mir.FormatMirFn(got))
	assert.Equal(t, body.Phase, got.Phase)
	assert.Equal(t, 7, got.PassCount)
	assert.True(t, got.IsPolymorphic())
	assert.Equal(t, body.LocalDecls, got.LocalDecls)
	assert.Equal(t, body.SourceScopes, got.SourceScopes)
	assert.Equal(t, body.RequiredConsts, got.RequiredConsts)
	assert.Equal(t, *body.InjectionPhase, *got.InjectionPhase)
	assert.Equal(t, body.Generator, got.Generator)
	assert.Equal(t, "xs", got.VarDebugInfo[0].Name.String())
	for bb, bd := range body.BasicBlocks.All() {
		assert.Equal(t, *bd, *got.BasicBlocks.Get(bb), "%s", bb)
	}
}

// TestBodyRoundTrip_CrossCrate tests that crate-local payloads are
// dropped and everything else survives.
func TestBodyRoundTrip_CrossCrate(t *testing.T) {
	body := sampleBody()
	local := Marshal(body, false)
	cross := Marshal(body, true)
	assert.Less(t, len(cross), len(local))

	got, err := Unmarshal(cross, true)
	require.NoError(t, err)

	for i := range got.LocalDecls {
		assert.True(t, got.LocalDecls[i].LocalInfo.IsClear(), "local %d", i)
		assert.Equal(t, body.LocalDecls[i].Ty, got.LocalDecls[i].Ty)
	}
	for i := range got.SourceScopes {
		_, ok := got.SourceScopes.LintRoot(mir.SourceScope(i))
		assert.False(t, ok)
	}
	assert.Equal(t, mir.FormatMirFn(body), mir.FormatMirFn(got))
}

// TestDecodeBody_Truncated tests that every prefix of a valid encoding
// fails cleanly.
func TestDecodeBody_Truncated(t *testing.T) {
	data := Marshal(sampleBody(), false)

	for _, n := range []int{0, 1, len(data) / 3, len(data) / 2, len(data) - 1} {
		_, err := Unmarshal(data[:n], false)
		assert.Error(t, err, "prefix %d", n)
	}
}

// TestDecodeBody_TrailingBytes tests that extra input is rejected.
func TestDecodeBody_TrailingBytes(t *testing.T) {
	data := append(Marshal(sampleBody(), false), 0)

	_, err := Unmarshal(data, false)
	assert.ErrorContains(t, err, "trailing")
}

// TestDecodeBody_BadVersion tests the format version guard.
func TestDecodeBody_BadVersion(t *testing.T) {
	data := Marshal(sampleBody(), false)
	data[0] = 99

	_, err := Unmarshal(data, false)
	assert.ErrorContains(t, err, "unsupported format version")
}
