package mir

import "fmt"

// Local indexes Body.LocalDecls.
type Local uint32

// ReturnPlace is the local holding the function's return value.
const ReturnPlace Local = 0

// Index returns the local as a slice index.
func (l Local) Index() int { return int(l) }

func (l Local) String() string { return fmt.Sprintf("_%d", uint32(l)) }

// BasicBlock indexes the block list of a body.
type BasicBlock uint32

// StartBlock is the entry block of every body.
const StartBlock BasicBlock = 0

// Index returns the block as a slice index.
func (bb BasicBlock) Index() int { return int(bb) }

func (bb BasicBlock) String() string { return fmt.Sprintf("bb%d", uint32(bb)) }

// StartLocation returns the location of the first statement of bb.
func (bb BasicBlock) StartLocation() Location {
	return Location{Block: bb, StatementIndex: 0}
}

// SourceScope indexes Body.SourceScopes.
type SourceScope uint32

// OutermostSourceScope is the root of every scope tree.
const OutermostSourceScope SourceScope = 0

// Index returns the scope as a slice index.
func (s SourceScope) Index() int { return int(s) }

func (s SourceScope) String() string { return fmt.Sprintf("scope[%d]", uint32(s)) }

// Promoted identifies a promoted constant extracted from a body.
type Promoted uint32

// Index returns the promoted index as a slice index.
func (p Promoted) Index() int { return int(p) }

func (p Promoted) String() string { return fmt.Sprintf("promoted[%d]", uint32(p)) }

// UserTypeAnnotationIndex indexes Body.UserTypeAnnotations.
type UserTypeAnnotationIndex uint32

func (u UserTypeAnnotationIndex) String() string { return fmt.Sprintf("user_ty[%d]", uint32(u)) }

// FieldIdx is the index of a field within a struct, tuple or variant.
type FieldIdx uint32

// VariantIdx is the index of an enum variant.
type VariantIdx uint32

// DefID identifies an item defined by the front end.
type DefID struct {
	Crate uint32
	Index uint32
}

func (d DefID) String() string { return fmt.Sprintf("DefId(%d:%d)", d.Crate, d.Index) }

// HirID identifies a node in the front end's typed AST.
type HirID struct {
	Owner   DefID
	LocalID uint32
}

func (h HirID) String() string { return fmt.Sprintf("HirId(%s.%d)", h.Owner, h.LocalID) }

// ErrorGuaranteed records that an error has already been reported for a body.
type ErrorGuaranteed struct{}
