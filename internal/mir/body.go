package mir

import "iter"

// MirSource says which item a body belongs to.
type MirSource struct {
	Instance Instance
	// Promoted is set when the body is a promoted constant extracted from
	// Instance's body.
	Promoted *Promoted
}

// MirSourceItem returns the source for the plain item def.
func MirSourceItem(def DefID, name string) MirSource {
	return MirSource{Instance: Instance{Def: def, Name: name}}
}

// DefID returns the item the body belongs to.
func (s MirSource) DefID() DefID { return s.Instance.Def }

func (s MirSource) String() string {
	if s.Promoted != nil {
		return s.Instance.String() + "::" + s.Promoted.String()
	}
	return s.Instance.String()
}

// GeneratorKind says what produced a generator body.
type GeneratorKind uint8

const (
	GeneratorGen GeneratorKind = iota
	GeneratorAsyncBlock
	GeneratorAsyncClosure
	GeneratorAsyncFn
)

func (k GeneratorKind) String() string {
	switch k {
	case GeneratorAsyncBlock:
		return "async block"
	case GeneratorAsyncClosure:
		return "async closure body"
	case GeneratorAsyncFn:
		return "async fn body"
	default:
		return "generator"
	}
}

// GeneratorLayout is the state layout produced by the generator
// transform: the saved locals and which of them each suspension point
// keeps alive.
type GeneratorLayout struct {
	FieldTys      []Ty
	VariantFields [][]int
}

// GeneratorInfo carries the generator-only parts of a body.
type GeneratorInfo struct {
	YieldTy         Ty
	GeneratorDrop   *Body
	GeneratorLayout *GeneratorLayout
	GeneratorKind   GeneratorKind
}

// Body is the MIR of one function, constant or promoted fragment.
type Body struct {
	// BasicBlocks is the control-flow graph. Mutate it through
	// BasicBlocksMut so cached graph facts are dropped.
	BasicBlocks *BasicBlocks

	// Phase is advanced only by the pass driver.
	Phase     MirPhase
	PassCount int

	Source       MirSource
	SourceScopes SourceScopes

	// Generator is nil for ordinary functions.
	Generator *GeneratorInfo

	// LocalDecls holds the return place, then ArgCount arguments, then
	// user variables and temporaries.
	LocalDecls          []LocalDecl
	UserTypeAnnotations []CanonicalUserTypeAnnotation
	ArgCount            int

	// SpreadArg marks the argument that is a tuple spread into the real
	// arguments by the "rust-call" ABI.
	SpreadArg *Local

	VarDebugInfo []VarDebugInfo
	Span         Span

	// RequiredConsts must evaluate successfully for the body to be
	// well-formed after monomorphization.
	RequiredConsts []Constant

	// InjectionPhase is set on hand-written bodies. Everything before this
	// phase skips them.
	InjectionPhase *MirPhase

	TaintedByErrors *ErrorGuaranteed

	isPolymorphic bool
}

// NewBody builds a body in the Built phase. It panics unless there is a
// local for the return place and for every argument.
func NewBody(
	source MirSource,
	blocks []BasicBlockData,
	scopes SourceScopes,
	locals []LocalDecl,
	userTypeAnnotations []CanonicalUserTypeAnnotation,
	argCount int,
	debugInfo []VarDebugInfo,
	span Span,
	generatorKind *GeneratorKind,
	taintedByErrors *ErrorGuaranteed,
) *Body {
	if len(locals) <= argCount {
		bug("expected at least %d locals, got %d", argCount+1, len(locals))
	}

	body := &Body{
		BasicBlocks:         NewBasicBlocks(blocks),
		Phase:               Built(),
		Source:              source,
		SourceScopes:        scopes,
		LocalDecls:          locals,
		UserTypeAnnotations: userTypeAnnotations,
		ArgCount:            argCount,
		VarDebugInfo:        debugInfo,
		Span:                span,
		TaintedByErrors:     taintedByErrors,
	}
	if generatorKind != nil {
		body.Generator = &GeneratorInfo{GeneratorKind: *generatorKind}
	}
	body.isPolymorphic = body.hasNonRegionParam()
	return body
}

// NewCFGOnlyBody builds a body holding nothing but blocks. It has no
// locals, not even a return place, and is only useful in tests of
// graph-level code.
func NewCFGOnlyBody(blocks []BasicBlockData) *Body {
	body := &Body{
		BasicBlocks: NewBasicBlocks(blocks),
		Phase:       Built(),
		Source:      MirSourceItem(DefID{}, "crate"),
	}
	body.isPolymorphic = body.hasNonRegionParam()
	return body
}

// Block returns the data of bb for reading. Like BasicBlocks.Get, writes
// through the result bypass cache invalidation; use BasicBlocksMut.
func (b *Body) Block(bb BasicBlock) *BasicBlockData {
	return b.BasicBlocks.Get(bb)
}

// BasicBlocksMut returns the write guard over the body's blocks.
func (b *Body) BasicBlocksMut() BlocksMut {
	return b.BasicBlocks.AsMut()
}

// IsPolymorphic reports whether the body mentioned generic parameters
// when it was built. It is never recomputed, even after optimizations
// remove every use of them.
func (b *Body) IsPolymorphic() bool { return b.isPolymorphic }

// LocalKind classifies l by its index.
func (b *Body) LocalKind(l Local) LocalKind {
	switch {
	case l == ReturnPlace:
		if b.LocalDecls[ReturnPlace].Mutability != Mut {
			bug("return place should be mutable")
		}
		return LocalReturnPointer
	case int(l) < b.ArgCount+1:
		return LocalArg
	default:
		return LocalTemp
	}
}

func localRange(from, to int) iter.Seq[Local] {
	return func(yield func(Local) bool) {
		for i := from; i < to; i++ {
			if !yield(Local(i)) {
				return
			}
		}
	}
}

// ArgsIter iterates over the argument locals.
func (b *Body) ArgsIter() iter.Seq[Local] {
	return localRange(1, b.ArgCount+1)
}

// VarsAndTempsIter iterates over every local that is neither the return
// place nor an argument.
func (b *Body) VarsAndTempsIter() iter.Seq[Local] {
	return localRange(b.ArgCount+1, len(b.LocalDecls))
}

// MutVarsIter iterates over user variables declared mutable.
func (b *Body) MutVarsIter() iter.Seq[Local] {
	return func(yield func(Local) bool) {
		for l := range b.VarsAndTempsIter() {
			decl := &b.LocalDecls[l]
			if decl.IsUserVariable() && decl.Mutability == Mut {
				if !yield(l) {
					return
				}
			}
		}
	}
}

// MutVarsAndArgsIter iterates over mutable arguments and mutable user
// variables.
func (b *Body) MutVarsAndArgsIter() iter.Seq[Local] {
	return func(yield func(Local) bool) {
		for i := 1; i < len(b.LocalDecls); i++ {
			decl := &b.LocalDecls[i]
			if (i < b.ArgCount+1 || decl.IsUserVariable()) && decl.Mutability == Mut {
				if !yield(Local(i)) {
					return
				}
			}
		}
	}
}

// DrainVarsAndTemps removes and returns every local after the arguments.
func (b *Body) DrainVarsAndTemps() []LocalDecl {
	start := b.ArgCount + 1
	if start > len(b.LocalDecls) {
		return nil
	}
	drained := append([]LocalDecl(nil), b.LocalDecls[start:]...)
	b.LocalDecls = b.LocalDecls[:start]
	return drained
}

// SourceInfo returns the source info of the statement or terminator at
// loc.
func (b *Body) SourceInfo(loc Location) SourceInfo {
	block := b.Block(loc.Block)
	n := len(block.Statements)
	switch {
	case loc.StatementIndex < n:
		return block.Statements[loc.StatementIndex].SourceInfo
	case loc.StatementIndex == n:
		return block.Terminator().SourceInfo
	default:
		bug("location %s out of range for block with %d statements", loc, n)
		return SourceInfo{}
	}
}

// ReturnTy returns the type of the return place.
func (b *Body) ReturnTy() Ty { return b.LocalDecls[ReturnPlace].Ty }

// TerminatorLoc returns the location of bb's terminator.
func (b *Body) TerminatorLoc(bb BasicBlock) Location {
	return Location{Block: bb, StatementIndex: len(b.Block(bb).Statements)}
}

// StmtOrTerm is either a statement or a terminator, never both.
type StmtOrTerm struct {
	Stmt *Statement
	Term *Terminator
}

// IsStatement reports whether the statement side is populated.
func (s StmtOrTerm) IsStatement() bool { return s.Stmt != nil }

// StmtAt returns the statement at loc, or the terminator when loc points
// past the last statement.
func (b *Body) StmtAt(loc Location) StmtOrTerm {
	block := b.Block(loc.Block)
	if loc.StatementIndex < len(block.Statements) {
		return StmtOrTerm{Stmt: &block.Statements[loc.StatementIndex]}
	}
	return StmtOrTerm{Term: block.Terminator()}
}

// YieldTy returns the generator yield type, if any.
func (b *Body) YieldTy() (Ty, bool) {
	if b.Generator == nil || b.Generator.YieldTy == nil {
		return nil, false
	}
	return b.Generator.YieldTy, true
}

// GeneratorLayout returns the generator state layout, if computed.
func (b *Body) GeneratorLayout() *GeneratorLayout {
	if b.Generator == nil {
		return nil
	}
	return b.Generator.GeneratorLayout
}

// GeneratorDrop returns the generator drop glue body, if any.
func (b *Body) GeneratorDrop() *Body {
	if b.Generator == nil {
		return nil
	}
	return b.Generator.GeneratorDrop
}

// GeneratorKind returns what kind of generator this body is.
func (b *Body) GeneratorKind() (GeneratorKind, bool) {
	if b.Generator == nil {
		return 0, false
	}
	return b.Generator.GeneratorKind, true
}

// ShouldSkip reports whether passes must leave the body alone because it
// was injected at a later phase than the current one.
func (b *Body) ShouldSkip() bool {
	if b.InjectionPhase == nil {
		return false
	}
	return b.Phase.Less(*b.InjectionPhase)
}

// IsCustomMir reports whether the body was written by hand rather than
// built from source.
func (b *Body) IsCustomMir() bool { return b.InjectionPhase != nil }

func (b *Body) hasNonRegionParam() bool {
	for i := range b.LocalDecls {
		if HasNonRegionParam(b.LocalDecls[i].Ty) {
			return true
		}
	}
	for _, a := range b.UserTypeAnnotations {
		if HasNonRegionParam(a.Inferred) {
			return true
		}
	}
	for _, c := range b.RequiredConsts {
		if constantHasParam(c.Literal) {
			return true
		}
	}
	for _, bd := range b.BasicBlocks.All() {
		for i := range bd.Statements {
			if a, ok := bd.Statements[i].Kind.(Assign); ok && rvalueHasParam(a.Rvalue) {
				return true
			}
		}
	}
	return false
}

func constantHasParam(c ConstantKind) bool {
	return c != nil && (constHasParam(c) || HasNonRegionParam(c.Ty()))
}

func operandHasParam(op Operand) bool {
	c, ok := op.(ConstOperand)
	return ok && constantHasParam(c.Constant.Literal)
}

func rvalueHasParam(rv Rvalue) bool {
	switch rv := rv.(type) {
	case Use:
		return operandHasParam(rv.Operand)
	case BinaryOp:
		return operandHasParam(rv.Left) || operandHasParam(rv.Right)
	case UnaryOp:
		return operandHasParam(rv.Operand)
	case Aggregate:
		for _, f := range rv.Fields {
			if operandHasParam(f) {
				return true
			}
		}
	}
	return false
}

// RestorePolymorphic sets the flag a decoder read back from the encoded
// body. Only codecs should call it.
func (b *Body) RestorePolymorphic(v bool) { b.isPolymorphic = v }
