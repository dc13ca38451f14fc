package mir

import "fmt"

// SourceInfo ties a statement or terminator back to the source.
type SourceInfo struct {
	Span  Span
	Scope SourceScope
}

// OutermostSourceInfo returns source info in the outermost scope.
func OutermostSourceInfo(span Span) SourceInfo {
	return SourceInfo{Span: span, Scope: OutermostSourceScope}
}

// Statement is a single non-branching operation in a basic block.
type Statement struct {
	SourceInfo SourceInfo
	Kind       StatementKind
}

// MakeNop replaces the statement with a no-op in place, keeping every
// index into the block valid.
func (s *Statement) MakeNop() {
	s.Kind = Nop{}
}

// IsNop reports whether the statement does nothing.
func (s *Statement) IsNop() bool {
	_, ok := s.Kind.(Nop)
	return ok
}

func (s Statement) String() string { return StatementKindString(s.Kind) }

// StatementKind is the operation a statement performs.
type StatementKind interface{ isStatementKind() }

// Assign writes an rvalue to a place.
type Assign struct {
	Place  Place
	Rvalue Rvalue
}

// FakeReadCause says why a fake read was emitted.
type FakeReadCause uint8

const (
	ForMatchGuard FakeReadCause = iota
	ForMatchedPlace
	ForLet
	ForIndex
)

func (c FakeReadCause) String() string {
	switch c {
	case ForMatchGuard:
		return "ForMatchGuard"
	case ForMatchedPlace:
		return "ForMatchedPlace"
	case ForIndex:
		return "ForIndex"
	default:
		return "ForLet"
	}
}

// FakeRead is a read the borrow checker must see but codegen must not.
type FakeRead struct {
	Cause FakeReadCause
	Place Place
}

// SetDiscriminant writes the discriminant of an enum.
type SetDiscriminant struct {
	Place   Place
	Variant VariantIdx
}

// StorageLive starts the storage lifetime of a local.
type StorageLive struct{ Local Local }

// StorageDead ends the storage lifetime of a local.
type StorageDead struct{ Local Local }

// Retag marks a place for the aliasing model checker.
type Retag struct{ Place Place }

// Nop does nothing. Passes turn removed statements into Nop.
type Nop struct{}

func (Assign) isStatementKind()          {}
func (FakeRead) isStatementKind()        {}
func (SetDiscriminant) isStatementKind() {}
func (StorageLive) isStatementKind()     {}
func (StorageDead) isStatementKind()     {}
func (Retag) isStatementKind()           {}
func (Nop) isStatementKind()             {}

// StatementKindString renders a statement the way the MIR dump does.
func StatementKindString(k StatementKind) string {
	switch k := k.(type) {
	case Assign:
		return fmt.Sprintf("%s = %s", k.Place, RvalueString(k.Rvalue))
	case FakeRead:
		return fmt.Sprintf("FakeRead(%s, %s)", k.Cause, k.Place)
	case SetDiscriminant:
		return fmt.Sprintf("discriminant(%s) = %d", k.Place, k.Variant)
	case StorageLive:
		return fmt.Sprintf("StorageLive(%s)", k.Local)
	case StorageDead:
		return fmt.Sprintf("StorageDead(%s)", k.Local)
	case Retag:
		return fmt.Sprintf("Retag(%s)", k.Place)
	case Nop:
		return "nop"
	default:
		return fmt.Sprintf("%T", k)
	}
}
