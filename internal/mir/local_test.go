package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLocalDeclPredicates tests origin classification of locals.
func TestLocalDeclPredicates(t *testing.T) {
	annotated := Span{Lo: 1, Hi: 2}
	base := NewLocalDecl(i32(), DummySpan)

	tests := []struct {
		name        string
		info        LocalInfo
		user        bool
		makeMutable bool
		nonref      bool
		refForGuard bool
		refStatic   bool
		threadLocal bool
		derefTemp   bool
	}{
		{name: "boring", info: Boring{}},
		{name: "by value", info: UserLocal{Binding: VarBinding{Mode: BindByValue}}, user: true, makeMutable: true, nonref: true},
		{name: "by value annotated", info: UserLocal{Binding: VarBinding{Mode: BindByValue, OptTyInfo: &annotated}}, user: true, nonref: true},
		{name: "by ref", info: UserLocal{Binding: VarBinding{Mode: BindByRef}}, user: true},
		{name: "self by value", info: UserLocal{Binding: ImplicitSelf{Kind: ImplicitSelfImm}}, user: true, makeMutable: true, nonref: true},
		{name: "self by ref", info: UserLocal{Binding: ImplicitSelf{Kind: ImplicitSelfImmRef}}, user: true, nonref: true},
		{name: "ref for guard", info: UserLocal{Binding: RefForGuard{}}, user: true, refForGuard: true},
		{name: "static", info: StaticRef{Def: DefID{Index: 3}}, refStatic: true},
		{name: "thread local", info: StaticRef{Def: DefID{Index: 3}, IsThreadLocal: true}, refStatic: true, threadLocal: true},
		{name: "deref temp", info: DerefTemp{}, derefTemp: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base.WithInfo(tt.info)

			assert.Equal(t, tt.user, d.IsUserVariable(), "IsUserVariable")
			assert.Equal(t, tt.makeMutable, d.CanBeMadeMutable(), "CanBeMadeMutable")
			assert.Equal(t, tt.nonref, d.IsNonrefBinding(), "IsNonrefBinding")
			assert.Equal(t, tt.refForGuard, d.IsRefForGuard(), "IsRefForGuard")
			assert.Equal(t, tt.refStatic, d.IsRefToStatic(), "IsRefToStatic")
			assert.Equal(t, tt.threadLocal, d.IsRefToThreadLocal(), "IsRefToThreadLocal")
			assert.Equal(t, tt.derefTemp, d.IsDerefTemp(), "IsDerefTemp")
		})
	}
}

// TestLocalDeclBuilders tests the copy-returning builders.
func TestLocalDeclBuilders(t *testing.T) {
	d := NewLocalDecl(i32(), Span{Lo: 4, Hi: 8})

	assert.Equal(t, Mut, d.Mutability)
	assert.False(t, d.Internal)
	assert.Equal(t, OutermostSourceScope, d.SourceInfo.Scope)
	assert.IsType(t, Boring{}, d.Info())

	internal := d.AsInternal().AsImmutable()
	assert.True(t, internal.Internal)
	assert.Equal(t, Imm, internal.Mutability)
	assert.Equal(t, Mut, d.Mutability)
}

// TestLocalDecl_CrossCrateInfoPanics tests that origin predicates cannot
// be asked of declarations decoded from another crate.
func TestLocalDecl_CrossCrateInfoPanics(t *testing.T) {
	d := NewLocalDecl(i32(), DummySpan)
	d.LocalInfo = ClearCross[LocalInfo]()

	assert.PanicsWithValue(t, "mir: unwrapping cross-crate data", func() { d.IsUserVariable() })
}
