package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scopePtr(s SourceScope) *SourceScope { return &s }

// TestSourceScopes_InlinedParent tests that the nearest inlined ancestor
// is recorded at push time.
func TestSourceScopes_InlinedParent(t *testing.T) {
	callee := Instance{Def: DefID{Index: 7}, Name: "callee"}
	lint := HirID{Owner: DefID{Index: 1}, LocalID: 9}

	var ss SourceScopes
	root := ss.Push(SourceScopeData{LocalData: SetCrossCrate(SourceScopeLocalData{LintRoot: lint})})
	plain := ss.Push(SourceScopeData{ParentScope: scopePtr(root)})
	inlined := ss.Push(SourceScopeData{ParentScope: scopePtr(plain), Inlined: &InlinedScope{Instance: callee}})
	child := ss.Push(SourceScopeData{ParentScope: scopePtr(inlined)})
	grandchild := ss.Push(SourceScopeData{ParentScope: scopePtr(child)})

	assert.Nil(t, ss[root].InlinedParentScope)
	assert.Nil(t, ss[plain].InlinedParentScope)
	assert.Nil(t, ss[inlined].InlinedParentScope)
	require.NotNil(t, ss[child].InlinedParentScope)
	assert.Equal(t, inlined, *ss[child].InlinedParentScope)
	require.NotNil(t, ss[grandchild].InlinedParentScope)
	assert.Equal(t, inlined, *ss[grandchild].InlinedParentScope)

	_, ok := ss.InlinedInstance(plain)
	assert.False(t, ok)
	got, ok := ss.InlinedInstance(grandchild)
	require.True(t, ok)
	assert.Equal(t, callee.Def, got.Def)

	assert.Equal(t, []SourceScope{grandchild, child, inlined, plain, root}, ss.Ancestors(grandchild))

	lr, ok := ss.LintRoot(root)
	require.True(t, ok)
	assert.Equal(t, lint, lr)
	_, ok = ss.LintRoot(plain)
	assert.False(t, ok)
}

// TestSourceScopes_NestedInline tests that an inlined scope inside another
// inlined scope points at the outer one.
func TestSourceScopes_NestedInline(t *testing.T) {
	var ss SourceScopes
	root := ss.Push(SourceScopeData{})
	outer := ss.Push(SourceScopeData{ParentScope: scopePtr(root), Inlined: &InlinedScope{Instance: Instance{Name: "outer"}}})
	inner := ss.Push(SourceScopeData{ParentScope: scopePtr(outer), Inlined: &InlinedScope{Instance: Instance{Name: "inner"}}})

	require.NotNil(t, ss[inner].InlinedParentScope)
	assert.Equal(t, outer, *ss[inner].InlinedParentScope)

	got, ok := ss.InlinedInstance(inner)
	require.True(t, ok)
	assert.Equal(t, "inner", got.Name)
}

// TestSafety_String tests the debug format.
func TestSafety_String(t *testing.T) {
	assert.Equal(t, "Safe", Safety{}.String())
	assert.Equal(t, "ExplicitUnsafe(HirId(DefId(0:1).2))", Safety{Kind: ExplicitUnsafe, Block: HirID{Owner: DefID{Index: 1}, LocalID: 2}}.String())
}
