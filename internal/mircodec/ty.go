package mircodec

import "github.com/roach88/mirkit/internal/mir"

const (
	tyNil byte = iota
	tyPrim
	tyParam
	tyRegion
	tyAdt
	tyRef
	tyTuple
	tyArray
	tyFnDef
	tyNever
)

func (e *Encoder) emitDefID(d mir.DefID) {
	e.EmitUvarint(uint64(d.Crate))
	e.EmitUvarint(uint64(d.Index))
}

func (d *Decoder) readDefID() mir.DefID {
	return mir.DefID{Crate: uint32(d.ReadUvarint()), Index: uint32(d.ReadUvarint())}
}

func (e *Encoder) emitHirID(h mir.HirID) {
	e.emitDefID(h.Owner)
	e.EmitUvarint(uint64(h.LocalID))
}

func (d *Decoder) readHirID() mir.HirID {
	return mir.HirID{Owner: d.readDefID(), LocalID: uint32(d.ReadUvarint())}
}

func (e *Encoder) emitSpan(s mir.Span) {
	e.EmitUvarint(uint64(s.Lo))
	e.EmitUvarint(uint64(s.Hi))
}

func (d *Decoder) readSpan() mir.Span {
	return mir.Span{Lo: uint32(d.ReadUvarint()), Hi: uint32(d.ReadUvarint())}
}

// EmitTy writes a type. A nil type is allowed.
func (e *Encoder) EmitTy(t mir.Ty) {
	switch t := t.(type) {
	case nil:
		e.EmitU8(tyNil)
	case mir.PrimTy:
		e.EmitU8(tyPrim)
		e.EmitU8(byte(t.Kind))
	case mir.ParamTy:
		e.EmitU8(tyParam)
		e.EmitUvarint(uint64(t.Index))
		e.EmitString(t.Name)
	case mir.RegionTy:
		e.EmitU8(tyRegion)
		e.EmitString(t.Name)
	case mir.AdtTy:
		e.EmitU8(tyAdt)
		e.EmitString(t.Name)
		e.emitTys(t.Args)
	case mir.RefTy:
		e.EmitU8(tyRef)
		e.EmitU8(byte(t.Mut))
		e.EmitTy(t.Elem)
	case mir.TupleTy:
		e.EmitU8(tyTuple)
		e.emitTys(t.Elems)
	case mir.ArrayTy:
		e.EmitU8(tyArray)
		e.EmitTy(t.Elem)
		e.EmitConstantKind(t.Len)
	case mir.FnDefTy:
		e.EmitU8(tyFnDef)
		e.emitDefID(t.Def)
		e.EmitString(t.Name)
		e.emitTys(t.Args)
	case mir.NeverTy:
		e.EmitU8(tyNever)
	}
}

func (e *Encoder) emitTys(ts []mir.Ty) {
	e.EmitLen(len(ts))
	for _, t := range ts {
		e.EmitTy(t)
	}
}

// ReadTy reads a type written by EmitTy.
func (d *Decoder) ReadTy() mir.Ty {
	switch tag := d.ReadU8(); tag {
	case tyNil:
		return nil
	case tyPrim:
		return mir.PrimTy{Kind: mir.PrimKind(d.ReadU8())}
	case tyParam:
		idx := uint32(d.ReadUvarint())
		return mir.ParamTy{Index: idx, Name: d.ReadString()}
	case tyRegion:
		return mir.RegionTy{Name: d.ReadString()}
	case tyAdt:
		name := d.ReadString()
		return mir.AdtTy{Name: name, Args: d.readTys()}
	case tyRef:
		m := mir.Mutability(d.ReadU8())
		return mir.RefTy{Mut: m, Elem: d.ReadTy()}
	case tyTuple:
		return mir.TupleTy{Elems: d.readTys()}
	case tyArray:
		elem := d.ReadTy()
		return mir.ArrayTy{Elem: elem, Len: d.ReadConstantKind()}
	case tyFnDef:
		def := d.readDefID()
		name := d.ReadString()
		return mir.FnDefTy{Def: def, Name: name, Args: d.readTys()}
	case tyNever:
		return mir.NeverTy{}
	default:
		d.badTag(tag, "Ty")
		return nil
	}
}

func (d *Decoder) readTys() []mir.Ty {
	n := d.ReadLen()
	if n == 0 {
		return nil
	}
	ts := make([]mir.Ty, n)
	for i := range ts {
		ts[i] = d.ReadTy()
	}
	return ts
}

// badTag panics on an unknown tag unless the input already ran out, in
// which case the truncation error is what gets reported.
func (d *Decoder) badTag(tag byte, what string) {
	if d.err != nil {
		return
	}
	invalidTag(tag, what)
}

const (
	constNil byte = iota
	constValue
	constUnevaluated
	constParam
)

// EmitConstantKind writes a constant payload.
func (e *Encoder) EmitConstantKind(c mir.ConstantKind) {
	switch c := c.(type) {
	case nil:
		e.EmitU8(constNil)
	case mir.ValueConst:
		e.EmitU8(constValue)
		e.EmitTy(c.Type)
		e.EmitUint64(c.Bits)
	case mir.UnevaluatedConst:
		e.EmitU8(constUnevaluated)
		e.emitDefID(c.Def)
		e.EmitString(c.Name)
		e.emitTys(c.Args)
		e.EmitBool(c.Promoted != nil)
		if c.Promoted != nil {
			e.EmitUvarint(uint64(*c.Promoted))
		}
		e.EmitTy(c.Type)
	case mir.ParamConst:
		e.EmitU8(constParam)
		e.EmitUvarint(uint64(c.Index))
		e.EmitString(c.Name)
		e.EmitTy(c.Type)
	}
}

// ReadConstantKind reads a constant payload.
func (d *Decoder) ReadConstantKind() mir.ConstantKind {
	switch tag := d.ReadU8(); tag {
	case constNil:
		return nil
	case constValue:
		ty := d.ReadTy()
		return mir.ValueConst{Type: ty, Bits: d.ReadUint64()}
	case constUnevaluated:
		c := mir.UnevaluatedConst{Def: d.readDefID(), Name: d.ReadString(), Args: d.readTys()}
		if d.ReadBool() {
			p := mir.Promoted(d.ReadUvarint())
			c.Promoted = &p
		}
		c.Type = d.ReadTy()
		return c
	case constParam:
		idx := uint32(d.ReadUvarint())
		name := d.ReadString()
		return mir.ParamConst{Index: idx, Name: name, Type: d.ReadTy()}
	default:
		d.badTag(tag, "ConstantKind")
		return nil
	}
}

func (e *Encoder) emitConstant(c mir.Constant) {
	e.emitSpan(c.Span)
	e.EmitBool(c.UserTy != nil)
	if c.UserTy != nil {
		e.EmitUvarint(uint64(*c.UserTy))
	}
	e.EmitConstantKind(c.Literal)
}

func (d *Decoder) readConstant() mir.Constant {
	c := mir.Constant{Span: d.readSpan()}
	if d.ReadBool() {
		u := mir.UserTypeAnnotationIndex(d.ReadUvarint())
		c.UserTy = &u
	}
	c.Literal = d.ReadConstantKind()
	return c
}
