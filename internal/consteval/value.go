package consteval

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/roach88/mirkit/internal/mir"
)

var (
	// ErrOverflow is returned when an unchecked operation leaves the range
	// of its type.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrDivisionByZero is returned for x / 0 and x % 0.
	ErrDivisionByZero = errors.New("division by zero")
)

// value is a local's contents during interpretation: either a scalar or
// an aggregate of values.
type value struct {
	scalar mir.ValueConst
	fields []value
	agg    bool
}

func scalar(c mir.ValueConst) value { return value{scalar: c} }

func tuple(fields ...value) value { return value{fields: fields, agg: true} }

// prim returns the primitive kind of a scalar type.
func prim(t mir.Ty) (mir.PrimKind, bool) {
	p, ok := t.(mir.PrimTy)
	if !ok {
		return 0, false
	}
	return p.Kind, true
}

// bigOf widens a scalar to an arbitrary-precision integer, sign-extending
// signed kinds.
func bigOf(c mir.ValueConst, k mir.PrimKind) *big.Int {
	if k.IsSigned() {
		w := k.BitWidth()
		shift := 64 - w
		return big.NewInt(int64(c.Bits<<shift) >> shift)
	}
	return new(big.Int).SetUint64(c.Bits)
}

// bounds returns the inclusive range of integer kind k.
func bounds(k mir.PrimKind) (lo, hi *big.Int) {
	w := k.BitWidth()
	if k.IsSigned() {
		hi = new(big.Int).Lsh(big.NewInt(1), w-1)
		lo = new(big.Int).Neg(hi)
		hi.Sub(hi, big.NewInt(1))
		return lo, hi
	}
	hi = new(big.Int).Lsh(big.NewInt(1), w)
	hi.Sub(hi, big.NewInt(1))
	return big.NewInt(0), hi
}

// fromBig wraps r into kind k and reports whether it was out of range.
func fromBig(r *big.Int, k mir.PrimKind) (mir.ValueConst, bool) {
	lo, hi := bounds(k)
	overflow := r.Cmp(lo) < 0 || r.Cmp(hi) > 0

	mod := new(big.Int).Lsh(big.NewInt(1), k.BitWidth())
	wrapped := new(big.Int).Mod(r, mod)
	return mir.Uint(k, wrapped.Uint64()), overflow
}

// binary applies op to two scalars of the same type. The returned bool
// reports overflow; for comparisons it is always false.
func binary(op mir.BinOp, l, r mir.ValueConst) (mir.ValueConst, bool, error) {
	k, ok := prim(l.Type)
	if !ok {
		return mir.ValueConst{}, false, fmt.Errorf("binary %s on non-scalar type %s", op, l.Type)
	}

	if op.IsComparison() {
		var cmp int
		if k.IsInteger() {
			cmp = bigOf(l, k).Cmp(bigOf(r, k))
		} else {
			cmp = new(big.Int).SetUint64(l.Bits).Cmp(new(big.Int).SetUint64(r.Bits))
		}
		return mir.BoolConst(compare(op, cmp)), false, nil
	}

	if k == mir.Bool {
		switch op {
		case mir.BitAnd:
			return mir.BoolConst(l.Bits&r.Bits != 0), false, nil
		case mir.BitOr:
			return mir.BoolConst(l.Bits|r.Bits != 0), false, nil
		case mir.BitXor:
			return mir.BoolConst(l.Bits^r.Bits != 0), false, nil
		}
		return mir.ValueConst{}, false, fmt.Errorf("binary %s on bool", op)
	}
	if !k.IsInteger() {
		return mir.ValueConst{}, false, fmt.Errorf("binary %s on %s", op, k)
	}

	a, b := bigOf(l, k), bigOf(r, k)
	res := new(big.Int)
	switch op {
	case mir.Add:
		res.Add(a, b)
	case mir.Sub:
		res.Sub(a, b)
	case mir.Mul:
		res.Mul(a, b)
	case mir.Div, mir.Rem:
		if b.Sign() == 0 {
			return mir.ValueConst{}, false, ErrDivisionByZero
		}
		// Quo/Rem truncate toward zero like machine division.
		if op == mir.Div {
			res.Quo(a, b)
		} else {
			res.Rem(a, b)
		}
	case mir.BitAnd:
		return mir.ValueConst{Type: l.Type, Bits: l.Bits & r.Bits}, false, nil
	case mir.BitOr:
		return mir.ValueConst{Type: l.Type, Bits: l.Bits | r.Bits}, false, nil
	case mir.BitXor:
		return mir.ValueConst{Type: l.Type, Bits: l.Bits ^ r.Bits}, false, nil
	case mir.Shl, mir.Shr:
		return shift(op, l, r.Bits, k)
	default:
		return mir.ValueConst{}, false, fmt.Errorf("unsupported operator %s", op)
	}

	v, overflow := fromBig(res, k)
	return v, overflow, nil
}

// shift masks the amount to the type width and reports overflow when the
// unmasked amount did not fit.
func shift(op mir.BinOp, l mir.ValueConst, amount uint64, k mir.PrimKind) (mir.ValueConst, bool, error) {
	w := uint64(k.BitWidth())
	overflow := amount >= w
	amount %= w

	if op == mir.Shl {
		return mir.Uint(k, l.Bits<<amount), overflow, nil
	}
	if k.IsSigned() {
		v := bigOf(l, k).Int64() >> amount
		return mir.Int(k, v), overflow, nil
	}
	return mir.Uint(k, l.Bits>>amount), overflow, nil
}

func compare(op mir.BinOp, cmp int) bool {
	switch op {
	case mir.Eq:
		return cmp == 0
	case mir.Ne:
		return cmp != 0
	case mir.Lt:
		return cmp < 0
	case mir.Le:
		return cmp <= 0
	case mir.Gt:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// unary applies op to a scalar. Negating the minimum of a signed type
// overflows.
func unary(op mir.UnOp, v mir.ValueConst) (mir.ValueConst, bool, error) {
	k, ok := prim(v.Type)
	if !ok {
		return mir.ValueConst{}, false, fmt.Errorf("unary %s on non-scalar type %s", op, v.Type)
	}
	switch {
	case op == mir.Not && k == mir.Bool:
		return mir.BoolConst(v.Bits == 0), false, nil
	case op == mir.Not && k.IsInteger():
		return mir.Uint(k, ^v.Bits), false, nil
	case op == mir.Neg && k.IsSigned():
		r, overflow := fromBig(new(big.Int).Neg(bigOf(v, k)), k)
		return r, overflow, nil
	}
	return mir.ValueConst{}, false, fmt.Errorf("unary %s on %s", op, k)
}
