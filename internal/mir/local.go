package mir

// Mutability of a local, reference or binding.
type Mutability uint8

const (
	Imm Mutability = iota
	Mut
)

func (m Mutability) String() string {
	if m == Mut {
		return "mut"
	}
	return "not"
}

// LocalKind classifies a local by its position in the local table.
type LocalKind uint8

const (
	LocalReturnPointer LocalKind = iota
	LocalArg
	LocalTemp
)

func (k LocalKind) String() string {
	switch k {
	case LocalReturnPointer:
		return "ReturnPointer"
	case LocalArg:
		return "Arg"
	default:
		return "Temp"
	}
}

// LocalDecl describes one local.
type LocalDecl struct {
	Mutability Mutability
	// LocalInfo is only kept for the defining crate.
	LocalInfo ClearCrossCrate[LocalInfo]
	// Internal locals are compiler temporaries exempt from some checks
	// (for example the Sized check on generator interiors).
	Internal   bool
	Ty         Ty
	UserTy     *UserTypeProjections
	SourceInfo SourceInfo
}

// NewLocalDecl returns a mutable, non-internal local of type ty declared in
// the outermost scope.
func NewLocalDecl(ty Ty, span Span) LocalDecl {
	return LocalDeclWithSourceInfo(ty, OutermostSourceInfo(span))
}

// LocalDeclWithSourceInfo is NewLocalDecl with explicit source info.
func LocalDeclWithSourceInfo(ty Ty, si SourceInfo) LocalDecl {
	return LocalDecl{
		Mutability: Mut,
		LocalInfo:  SetCrossCrate[LocalInfo](Boring{}),
		Ty:         ty,
		SourceInfo: si,
	}
}

// AsInternal returns a copy of d marked internal.
func (d LocalDecl) AsInternal() LocalDecl {
	d.Internal = true
	return d
}

// AsImmutable returns a copy of d made immutable.
func (d LocalDecl) AsImmutable() LocalDecl {
	d.Mutability = Imm
	return d
}

// WithInfo returns a copy of d with the given local info.
func (d LocalDecl) WithInfo(info LocalInfo) LocalDecl {
	d.LocalInfo = SetCrossCrate(info)
	return d
}

// Info returns the crate-local origin information. It panics on a
// declaration decoded from cross-crate metadata.
func (d *LocalDecl) Info() LocalInfo {
	return d.LocalInfo.AssertCrateLocal()
}

// IsUserVariable reports whether the local was declared by the user.
func (d *LocalDecl) IsUserVariable() bool {
	_, ok := d.Info().(UserLocal)
	return ok
}

// CanBeMadeMutable reports whether suggesting `mut` on the binding would
// make sense: plain bindings and the implicit self of a by-value method.
func (d *LocalDecl) CanBeMadeMutable() bool {
	u, ok := d.Info().(UserLocal)
	if !ok {
		return false
	}
	switch f := u.Binding.(type) {
	case VarBinding:
		return f.Mode == BindByValue && f.OptTyInfo == nil
	case ImplicitSelf:
		return f.Kind == ImplicitSelfImm
	default:
		return false
	}
}

// IsNonrefBinding reports whether the local is bound by value (including
// any implicit self).
func (d *LocalDecl) IsNonrefBinding() bool {
	u, ok := d.Info().(UserLocal)
	if !ok {
		return false
	}
	switch f := u.Binding.(type) {
	case VarBinding:
		return f.Mode == BindByValue
	case ImplicitSelf:
		return true
	default:
		return false
	}
}

// IsRefForGuard reports whether the local is the reference introduced for
// a binding used in a match guard.
func (d *LocalDecl) IsRefForGuard() bool {
	u, ok := d.Info().(UserLocal)
	if !ok {
		return false
	}
	_, ok = u.Binding.(RefForGuard)
	return ok
}

// IsRefToStatic reports whether the local holds a reference to a static.
func (d *LocalDecl) IsRefToStatic() bool {
	_, ok := d.Info().(StaticRef)
	return ok
}

// IsRefToThreadLocal reports whether the local holds a reference to a
// thread-local static.
func (d *LocalDecl) IsRefToThreadLocal() bool {
	s, ok := d.Info().(StaticRef)
	return ok && s.IsThreadLocal
}

// IsDerefTemp reports whether the local was introduced to hold an
// intermediate dereference.
func (d *LocalDecl) IsDerefTemp() bool {
	_, ok := d.Info().(DerefTemp)
	return ok
}

// LocalInfo records where a local came from.
type LocalInfo interface{ isLocalInfo() }

// UserLocal is a binding written by the user.
type UserLocal struct{ Binding BindingForm }

// StaticRef is a temporary holding a reference to a static.
type StaticRef struct {
	Def           DefID
	IsThreadLocal bool
}

// ConstRef is a temporary holding a reference to a constant item.
type ConstRef struct{ Def DefID }

// AggregateTemp is a temporary created for an aggregate expression.
type AggregateTemp struct{}

// BlockTailTemp is a temporary holding the tail expression of a block.
type BlockTailTemp struct{ Info BlockTailInfo }

// DerefTemp is a temporary introduced to split a deref projection.
type DerefTemp struct{}

// FakeBorrow is a temporary holding a fake borrow for a match guard.
type FakeBorrow struct{}

// Boring is a local with nothing interesting about its origin.
type Boring struct{}

func (UserLocal) isLocalInfo()     {}
func (StaticRef) isLocalInfo()     {}
func (ConstRef) isLocalInfo()      {}
func (AggregateTemp) isLocalInfo() {}
func (BlockTailTemp) isLocalInfo() {}
func (DerefTemp) isLocalInfo()     {}
func (FakeBorrow) isLocalInfo()    {}
func (Boring) isLocalInfo()        {}

// BlockTailInfo describes the tail expression of a block.
type BlockTailInfo struct {
	TailResultIsIgnored bool
	Span                Span
}

// BindingMode is how a pattern binds its value.
type BindingMode uint8

const (
	BindByValue BindingMode = iota
	BindByRef
)

// BindingForm says how a user variable was bound.
type BindingForm interface{ isBindingForm() }

// VarBinding is an ordinary let or pattern binding.
type VarBinding struct {
	Mode BindingMode
	// OptTyInfo is the span of an explicit type annotation.
	OptTyInfo  *Span
	PatSpan    Span
	MatchPlace *Place
}

// ImplicitSelfKind says how `self` is taken by a method.
type ImplicitSelfKind uint8

const (
	ImplicitSelfImm ImplicitSelfKind = iota
	ImplicitSelfMut
	ImplicitSelfImmRef
	ImplicitSelfMutRef
	ImplicitSelfNone
)

// ImplicitSelf is the `self` parameter of a method.
type ImplicitSelf struct{ Kind ImplicitSelfKind }

// RefForGuard is the reference to a binding used inside a match guard.
type RefForGuard struct{}

func (VarBinding) isBindingForm()   {}
func (ImplicitSelf) isBindingForm() {}
func (RefForGuard) isBindingForm()  {}
