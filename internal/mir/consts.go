package mir

import (
	"fmt"
	"strings"
)

// ConstantKind is the payload of a constant operand.
type ConstantKind interface {
	isConstantKind()
	Ty() Ty
	String() string
}

// ValueConst is a fully evaluated scalar constant.
type ValueConst struct {
	Type Ty
	Bits uint64
}

// UnevaluatedConst refers to a constant item (or a promoted fragment of a
// body) that still has to be evaluated.
type UnevaluatedConst struct {
	Def      DefID
	Name     string
	Args     []Ty
	Promoted *Promoted
	Type     Ty
}

// ParamConst is a const generic parameter.
type ParamConst struct {
	Index uint32
	Name  string
	Type  Ty
}

func (ValueConst) isConstantKind()       {}
func (UnevaluatedConst) isConstantKind() {}
func (ParamConst) isConstantKind()       {}

func (c ValueConst) Ty() Ty       { return c.Type }
func (c UnevaluatedConst) Ty() Ty { return c.Type }
func (c ParamConst) Ty() Ty       { return c.Type }

func (c ValueConst) String() string {
	if p, ok := c.Type.(PrimTy); ok {
		switch {
		case p.Kind == Bool:
			return fmt.Sprintf("%t", c.Bits != 0)
		case p.Kind.IsSigned():
			return fmt.Sprintf("%d_%s", signExtend(c.Bits, p.Kind.BitWidth()), p.Kind)
		case p.Kind.IsInteger():
			return fmt.Sprintf("%d_%s", c.Bits, p.Kind)
		}
	}
	switch t := c.Type.(type) {
	case TupleTy:
		if len(t.Elems) == 0 {
			return "()"
		}
	case FnDefTy:
		return t.Name + argList(t.Args)
	}
	return fmt.Sprintf("const 0x%x: %s", c.Bits, c.Type)
}

func (c UnevaluatedConst) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(argList(c.Args))
	if c.Promoted != nil {
		b.WriteString("::")
		b.WriteString(c.Promoted.String())
	}
	return b.String()
}

func (c ParamConst) String() string { return c.Name }

// Constant is a constant operand together with its origin.
type Constant struct {
	Span    Span
	UserTy  *UserTypeAnnotationIndex
	Literal ConstantKind
}

func (c Constant) String() string { return "const " + c.Literal.String() }

// Ty returns the type of the constant.
func (c Constant) Ty() Ty { return c.Literal.Ty() }

func constHasParam(c ConstantKind) bool {
	switch c := c.(type) {
	case ParamConst:
		return true
	case UnevaluatedConst:
		return anyNonRegionParam(c.Args)
	default:
		return false
	}
}

// signExtend interprets the low width bits of v as a two's complement value.
func signExtend(v uint64, width uint) int64 {
	shift := 64 - width
	return int64(v<<shift) >> shift
}

// Uint builds an unsigned integer constant of kind k.
func Uint(k PrimKind, v uint64) ValueConst {
	return ValueConst{Type: PrimTy{Kind: k}, Bits: truncate(v, k.BitWidth())}
}

// Int builds a signed integer constant of kind k.
func Int(k PrimKind, v int64) ValueConst {
	return ValueConst{Type: PrimTy{Kind: k}, Bits: truncate(uint64(v), k.BitWidth())}
}

// BoolConst builds a boolean constant.
func BoolConst(b bool) ValueConst {
	if b {
		return ValueConst{Type: PrimTy{Kind: Bool}, Bits: 1}
	}
	return ValueConst{Type: PrimTy{Kind: Bool}}
}

// UnitConst is the value of the unit type.
var UnitConst = ValueConst{Type: Unit}

func truncate(v uint64, width uint) uint64 {
	if width >= 64 {
		return v
	}
	return v & (1<<width - 1)
}
