package mir

import (
	"fmt"
	"strings"
)

// Ty is the semantic type of a local, place or constant.
//
// The set of variants is closed; switch on the concrete type.
type Ty interface {
	isTy()
	String() string
}

// PrimKind enumerates the primitive scalar types.
type PrimKind uint8

const (
	Bool PrimKind = iota
	Char
	I8
	I16
	I32
	I64
	Isize
	U8
	U16
	U32
	U64
	Usize
	Str
)

var primNames = [...]string{
	Bool: "bool", Char: "char",
	I8: "i8", I16: "i16", I32: "i32", I64: "i64", Isize: "isize",
	U8: "u8", U16: "u16", U32: "u32", U64: "u64", Usize: "usize",
	Str: "str",
}

func (k PrimKind) String() string {
	if int(k) < len(primNames) {
		return primNames[k]
	}
	return fmt.Sprintf("prim(%d)", uint8(k))
}

// ParsePrimKind looks up a primitive by its source spelling.
func ParsePrimKind(s string) (PrimKind, bool) {
	for i, name := range primNames {
		if name == s {
			return PrimKind(i), true
		}
	}
	return 0, false
}

// IsSigned reports whether k is a signed integer type.
func (k PrimKind) IsSigned() bool { return k >= I8 && k <= Isize }

// IsInteger reports whether k is any integer type.
func (k PrimKind) IsInteger() bool { return k >= I8 && k <= Usize }

// BitWidth returns the size of an integer or bool in bits; pointer-sized
// integers are treated as 64 bits.
func (k PrimKind) BitWidth() uint {
	switch k {
	case Bool, I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32, Char:
		return 32
	default:
		return 64
	}
}

// PrimTy is a primitive scalar type.
type PrimTy struct{ Kind PrimKind }

// ParamTy is a generic type parameter.
type ParamTy struct {
	Index uint32
	Name  string
}

// RegionTy is a lifetime argument. It only appears in generic argument
// lists and does not make a body polymorphic.
type RegionTy struct{ Name string }

// AdtTy is a struct, enum or union applied to generic arguments.
type AdtTy struct {
	Name string
	Args []Ty
}

// RefTy is a shared or mutable reference.
type RefTy struct {
	Mut  Mutability
	Elem Ty
}

// TupleTy is a tuple; the empty tuple is the unit type.
type TupleTy struct{ Elems []Ty }

// ArrayTy is a fixed-size array whose length is a constant.
type ArrayTy struct {
	Elem Ty
	Len  ConstantKind
}

// FnDefTy is the zero-sized type of a function item.
type FnDefTy struct {
	Def  DefID
	Name string
	Args []Ty
}

// NeverTy is the type of diverging expressions.
type NeverTy struct{}

func (PrimTy) isTy()   {}
func (ParamTy) isTy()  {}
func (RegionTy) isTy() {}
func (AdtTy) isTy()    {}
func (RefTy) isTy()    {}
func (TupleTy) isTy()  {}
func (ArrayTy) isTy()  {}
func (FnDefTy) isTy()  {}
func (NeverTy) isTy()  {}

// Unit is the empty tuple type.
var Unit Ty = TupleTy{}

func (t PrimTy) String() string   { return t.Kind.String() }
func (t ParamTy) String() string  { return t.Name }
func (t RegionTy) String() string { return "'" + t.Name }
func (NeverTy) String() string    { return "!" }

func (t AdtTy) String() string { return t.Name + argList(t.Args) }

func (t RefTy) String() string {
	if t.Mut == Mut {
		return "&mut " + t.Elem.String()
	}
	return "&" + t.Elem.String()
}

func (t TupleTy) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t ArrayTy) String() string { return fmt.Sprintf("[%s; %s]", t.Elem, t.Len) }

func (t FnDefTy) String() string { return "fn " + t.Name + argList(t.Args) }

func argList(args []Ty) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// HasNonRegionParam reports whether t mentions a type or const parameter.
// Lifetime parameters are ignored.
func HasNonRegionParam(t Ty) bool {
	switch t := t.(type) {
	case nil:
		return false
	case ParamTy:
		return true
	case AdtTy:
		return anyNonRegionParam(t.Args)
	case RefTy:
		return HasNonRegionParam(t.Elem)
	case TupleTy:
		return anyNonRegionParam(t.Elems)
	case ArrayTy:
		return HasNonRegionParam(t.Elem) || constHasParam(t.Len)
	case FnDefTy:
		return anyNonRegionParam(t.Args)
	default:
		return false
	}
}

func anyNonRegionParam(ts []Ty) bool {
	for _, t := range ts {
		if HasNonRegionParam(t) {
			return true
		}
	}
	return false
}
