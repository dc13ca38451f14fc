package mir

import (
	"fmt"
	"strings"
)

// Place is a memory location: a local followed by a projection path.
type Place struct {
	Local      Local
	Projection []PlaceElem
}

// PlaceFrom returns the place naming local l itself.
func PlaceFrom(l Local) Place { return Place{Local: l} }

// ReturnPlaceRef is the place of the return slot.
func ReturnPlaceRef() Place { return Place{Local: ReturnPlace} }

// AsLocal returns the local if the place has no projections.
func (p Place) AsLocal() (Local, bool) {
	return p.Local, len(p.Projection) == 0
}

// IsIndirect reports whether the place goes through a dereference.
func (p Place) IsIndirect() bool {
	for _, e := range p.Projection {
		if _, ok := e.(Deref); ok {
			return true
		}
	}
	return false
}

// Project returns a new place with elem appended to the projection.
func (p Place) Project(elem PlaceElem) Place {
	proj := make([]PlaceElem, len(p.Projection), len(p.Projection)+1)
	copy(proj, p.Projection)
	return Place{Local: p.Local, Projection: append(proj, elem)}
}

func (p Place) String() string {
	s := p.Local.String()
	for _, e := range p.Projection {
		switch e := e.(type) {
		case Deref:
			s = "(*" + s + ")"
		case Field:
			s = fmt.Sprintf("(%s.%d: %s)", s, e.Index, e.Ty)
		case Index:
			s = fmt.Sprintf("%s[%s]", s, e.Local)
		case ConstantIndex:
			if e.FromEnd {
				s = fmt.Sprintf("%s[-%d of %d]", s, e.Offset, e.MinLength)
			} else {
				s = fmt.Sprintf("%s[%d of %d]", s, e.Offset, e.MinLength)
			}
		case Subslice:
			if e.FromEnd {
				s = fmt.Sprintf("%s[%d:-%d]", s, e.From, e.To)
			} else {
				s = fmt.Sprintf("%s[%d..%d]", s, e.From, e.To)
			}
		case Downcast:
			s = fmt.Sprintf("(%s as variant#%d)", s, e.Variant)
		}
	}
	return s
}

// PlaceElem is one step of a place projection.
type PlaceElem interface{ isPlaceElem() }

// Deref follows a reference or pointer.
type Deref struct{}

// Field selects a field of a struct, tuple or downcast variant.
type Field struct {
	Index FieldIdx
	Ty    Ty
}

// Index selects an array element by the value of a local.
type Index struct{ Local Local }

// ConstantIndex selects an array element at a fixed offset.
type ConstantIndex struct {
	Offset    uint64
	MinLength uint64
	FromEnd   bool
}

// Subslice narrows an array or slice.
type Subslice struct {
	From    uint64
	To      uint64
	FromEnd bool
}

// Downcast views an enum as one of its variants.
type Downcast struct {
	Name    string
	Variant VariantIdx
}

func (Deref) isPlaceElem()         {}
func (Field) isPlaceElem()         {}
func (Index) isPlaceElem()         {}
func (ConstantIndex) isPlaceElem() {}
func (Subslice) isPlaceElem()      {}
func (Downcast) isPlaceElem()      {}

// Operand is a value read by an rvalue or terminator.
type Operand interface {
	isOperand()
	String() string
}

// Copy reads a place without invalidating it.
type Copy struct{ Place Place }

// Move reads a place and leaves it uninitialized.
type Move struct{ Place Place }

// ConstOperand is an inline constant.
type ConstOperand struct{ Constant Constant }

func (Copy) isOperand()         {}
func (Move) isOperand()         {}
func (ConstOperand) isOperand() {}

func (o Copy) String() string         { return o.Place.String() }
func (o Move) String() string         { return "move " + o.Place.String() }
func (o ConstOperand) String() string {
	// Function items are zero-sized; print them by name.
	if _, ok := o.Constant.Ty().(FnDefTy); ok {
		return o.Constant.Literal.String()
	}
	return o.Constant.String()
}

// OperandPlace returns the place read by op, if any.
func OperandPlace(op Operand) (Place, bool) {
	switch op := op.(type) {
	case Copy:
		return op.Place, true
	case Move:
		return op.Place, true
	default:
		return Place{}, false
	}
}

// BorrowKind distinguishes the flavours of reference creation.
type BorrowKind uint8

const (
	BorrowShared BorrowKind = iota
	BorrowFake
	BorrowMut
)

// BinOp is a binary operator.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	Eq
	Lt
	Le
	Ne
	Ge
	Gt
)

var binOpNames = [...]string{
	Add: "Add", Sub: "Sub", Mul: "Mul", Div: "Div", Rem: "Rem",
	BitAnd: "BitAnd", BitOr: "BitOr", BitXor: "BitXor", Shl: "Shl", Shr: "Shr",
	Eq: "Eq", Lt: "Lt", Le: "Le", Ne: "Ne", Ge: "Ge", Gt: "Gt",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return fmt.Sprintf("BinOp(%d)", uint8(op))
}

// ParseBinOp looks up an operator by name.
func ParseBinOp(s string) (BinOp, bool) {
	for i, name := range binOpNames {
		if name == s {
			return BinOp(i), true
		}
	}
	return 0, false
}

// IsComparison reports whether op produces a bool.
func (op BinOp) IsComparison() bool { return op >= Eq }

// UnOp is a unary operator.
type UnOp uint8

const (
	Not UnOp = iota
	Neg
)

func (op UnOp) String() string {
	if op == Neg {
		return "Neg"
	}
	return "Not"
}

// Rvalue is the right-hand side of an assignment.
type Rvalue interface{ isRvalue() }

// Use reads an operand.
type Use struct{ Operand Operand }

// Ref borrows a place.
type Ref struct {
	Kind  BorrowKind
	Place Place
}

// BinaryOp applies a binary operator.
type BinaryOp struct {
	Op          BinOp
	Left, Right Operand
	// Checked ops produce a (value, overflowed) pair.
	Checked bool
}

// UnaryOp applies a unary operator.
type UnaryOp struct {
	Op      UnOp
	Operand Operand
}

// AggregateKind says what an Aggregate rvalue builds.
type AggregateKind interface{ isAggregateKind() }

// AggregateTuple builds a tuple.
type AggregateTuple struct{}

// AggregateArray builds an array of Elem.
type AggregateArray struct{ Elem Ty }

// AggregateAdt builds a struct or an enum variant.
type AggregateAdt struct {
	Name    string
	Variant VariantIdx
	// IsEnum is set when Variant selects an enum variant and the
	// discriminant must be written.
	IsEnum bool
}

func (AggregateTuple) isAggregateKind() {}
func (AggregateArray) isAggregateKind() {}
func (AggregateAdt) isAggregateKind()   {}

// Aggregate builds a compound value from its fields.
type Aggregate struct {
	Kind   AggregateKind
	Fields []Operand
}

// Len reads the length of an array or slice.
type Len struct{ Place Place }

// Discriminant reads the discriminant of an enum.
type Discriminant struct{ Place Place }

func (Use) isRvalue()          {}
func (Ref) isRvalue()          {}
func (BinaryOp) isRvalue()     {}
func (UnaryOp) isRvalue()      {}
func (Aggregate) isRvalue()    {}
func (Len) isRvalue()          {}
func (Discriminant) isRvalue() {}

// RvalueString renders rv the way the MIR dump does.
func RvalueString(rv Rvalue) string {
	switch rv := rv.(type) {
	case Use:
		return rv.Operand.String()
	case Ref:
		switch rv.Kind {
		case BorrowMut:
			return "&mut " + rv.Place.String()
		case BorrowFake:
			return "&fake " + rv.Place.String()
		default:
			return "&" + rv.Place.String()
		}
	case BinaryOp:
		name := rv.Op.String()
		if rv.Checked {
			name = "Checked" + name
		}
		return fmt.Sprintf("%s(%s, %s)", name, rv.Left, rv.Right)
	case UnaryOp:
		return fmt.Sprintf("%s(%s)", rv.Op, rv.Operand)
	case Aggregate:
		fields := make([]string, len(rv.Fields))
		for i, f := range rv.Fields {
			fields[i] = f.String()
		}
		joined := strings.Join(fields, ", ")
		switch k := rv.Kind.(type) {
		case AggregateArray:
			return "[" + joined + "]"
		case AggregateAdt:
			if k.IsEnum {
				return fmt.Sprintf("%s::#%d { %s }", k.Name, k.Variant, joined)
			}
			return fmt.Sprintf("%s { %s }", k.Name, joined)
		default:
			return "(" + joined + ")"
		}
	case Len:
		return "Len(" + rv.Place.String() + ")"
	case Discriminant:
		return "discriminant(" + rv.Place.String() + ")"
	default:
		return fmt.Sprintf("%T", rv)
	}
}
