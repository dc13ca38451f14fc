package mircodec

import "github.com/roach88/mirkit/internal/mir"

const (
	elemDeref byte = iota
	elemField
	elemIndex
	elemConstantIndex
	elemSubslice
	elemDowncast
)

func (e *Encoder) emitPlace(p mir.Place) {
	e.EmitUvarint(uint64(p.Local))
	e.emitProjection(p.Projection)
}

func (d *Decoder) readPlace() mir.Place {
	l := mir.Local(d.ReadUvarint())
	return mir.Place{Local: l, Projection: d.readProjection()}
}

func (e *Encoder) emitProjection(proj []mir.PlaceElem) {
	e.EmitLen(len(proj))
	for _, elem := range proj {
		switch el := elem.(type) {
		case mir.Deref:
			e.EmitU8(elemDeref)
		case mir.Field:
			e.EmitU8(elemField)
			e.EmitUvarint(uint64(el.Index))
			e.EmitTy(el.Ty)
		case mir.Index:
			e.EmitU8(elemIndex)
			e.EmitUvarint(uint64(el.Local))
		case mir.ConstantIndex:
			e.EmitU8(elemConstantIndex)
			e.EmitUvarint(el.Offset)
			e.EmitUvarint(el.MinLength)
			e.EmitBool(el.FromEnd)
		case mir.Subslice:
			e.EmitU8(elemSubslice)
			e.EmitUvarint(el.From)
			e.EmitUvarint(el.To)
			e.EmitBool(el.FromEnd)
		case mir.Downcast:
			e.EmitU8(elemDowncast)
			e.EmitString(el.Name)
			e.EmitUvarint(uint64(el.Variant))
		}
	}
}

func (d *Decoder) readProjection() []mir.PlaceElem {
	n := d.ReadLen()
	if n == 0 {
		return nil
	}
	proj := make([]mir.PlaceElem, 0, n)
	for i := 0; i < n; i++ {
		switch tag := d.ReadU8(); tag {
		case elemDeref:
			proj = append(proj, mir.Deref{})
		case elemField:
			idx := mir.FieldIdx(d.ReadUvarint())
			proj = append(proj, mir.Field{Index: idx, Ty: d.ReadTy()})
		case elemIndex:
			proj = append(proj, mir.Index{Local: mir.Local(d.ReadUvarint())})
		case elemConstantIndex:
			proj = append(proj, mir.ConstantIndex{Offset: d.ReadUvarint(), MinLength: d.ReadUvarint(), FromEnd: d.ReadBool()})
		case elemSubslice:
			proj = append(proj, mir.Subslice{From: d.ReadUvarint(), To: d.ReadUvarint(), FromEnd: d.ReadBool()})
		case elemDowncast:
			name := d.ReadString()
			proj = append(proj, mir.Downcast{Name: name, Variant: mir.VariantIdx(d.ReadUvarint())})
		default:
			d.badTag(tag, "PlaceElem")
			return proj
		}
	}
	return proj
}

const (
	operandNil byte = iota
	operandCopy
	operandMove
	operandConst
)

func (e *Encoder) emitOperand(op mir.Operand) {
	switch op := op.(type) {
	case nil:
		e.EmitU8(operandNil)
	case mir.Copy:
		e.EmitU8(operandCopy)
		e.emitPlace(op.Place)
	case mir.Move:
		e.EmitU8(operandMove)
		e.emitPlace(op.Place)
	case mir.ConstOperand:
		e.EmitU8(operandConst)
		e.emitConstant(op.Constant)
	}
}

func (d *Decoder) readOperand() mir.Operand {
	switch tag := d.ReadU8(); tag {
	case operandNil:
		return nil
	case operandCopy:
		return mir.Copy{Place: d.readPlace()}
	case operandMove:
		return mir.Move{Place: d.readPlace()}
	case operandConst:
		return mir.ConstOperand{Constant: d.readConstant()}
	default:
		d.badTag(tag, "Operand")
		return nil
	}
}

func (e *Encoder) emitOperands(ops []mir.Operand) {
	e.EmitLen(len(ops))
	for _, op := range ops {
		e.emitOperand(op)
	}
}

func (d *Decoder) readOperands() []mir.Operand {
	n := d.ReadLen()
	if n == 0 {
		return nil
	}
	ops := make([]mir.Operand, n)
	for i := range ops {
		ops[i] = d.readOperand()
	}
	return ops
}

const (
	rvUse byte = iota
	rvRef
	rvBinary
	rvUnary
	rvAggregate
	rvLen
	rvDiscriminant
)

const (
	aggTuple byte = iota
	aggArray
	aggAdt
)

func (e *Encoder) emitRvalue(rv mir.Rvalue) {
	switch rv := rv.(type) {
	case mir.Use:
		e.EmitU8(rvUse)
		e.emitOperand(rv.Operand)
	case mir.Ref:
		e.EmitU8(rvRef)
		e.EmitU8(byte(rv.Kind))
		e.emitPlace(rv.Place)
	case mir.BinaryOp:
		e.EmitU8(rvBinary)
		e.EmitU8(byte(rv.Op))
		e.EmitBool(rv.Checked)
		e.emitOperand(rv.Left)
		e.emitOperand(rv.Right)
	case mir.UnaryOp:
		e.EmitU8(rvUnary)
		e.EmitU8(byte(rv.Op))
		e.emitOperand(rv.Operand)
	case mir.Aggregate:
		e.EmitU8(rvAggregate)
		switch k := rv.Kind.(type) {
		case mir.AggregateArray:
			e.EmitU8(aggArray)
			e.EmitTy(k.Elem)
		case mir.AggregateAdt:
			e.EmitU8(aggAdt)
			e.EmitString(k.Name)
			e.EmitUvarint(uint64(k.Variant))
			e.EmitBool(k.IsEnum)
		default:
			e.EmitU8(aggTuple)
		}
		e.emitOperands(rv.Fields)
	case mir.Len:
		e.EmitU8(rvLen)
		e.emitPlace(rv.Place)
	case mir.Discriminant:
		e.EmitU8(rvDiscriminant)
		e.emitPlace(rv.Place)
	}
}

func (d *Decoder) readRvalue() mir.Rvalue {
	switch tag := d.ReadU8(); tag {
	case rvUse:
		return mir.Use{Operand: d.readOperand()}
	case rvRef:
		k := mir.BorrowKind(d.ReadU8())
		return mir.Ref{Kind: k, Place: d.readPlace()}
	case rvBinary:
		op := mir.BinOp(d.ReadU8())
		checked := d.ReadBool()
		left := d.readOperand()
		return mir.BinaryOp{Op: op, Checked: checked, Left: left, Right: d.readOperand()}
	case rvUnary:
		op := mir.UnOp(d.ReadU8())
		return mir.UnaryOp{Op: op, Operand: d.readOperand()}
	case rvAggregate:
		var kind mir.AggregateKind
		switch k := d.ReadU8(); k {
		case aggTuple:
			kind = mir.AggregateTuple{}
		case aggArray:
			kind = mir.AggregateArray{Elem: d.ReadTy()}
		case aggAdt:
			name := d.ReadString()
			variant := mir.VariantIdx(d.ReadUvarint())
			kind = mir.AggregateAdt{Name: name, Variant: variant, IsEnum: d.ReadBool()}
		default:
			d.badTag(k, "AggregateKind")
		}
		return mir.Aggregate{Kind: kind, Fields: d.readOperands()}
	case rvLen:
		return mir.Len{Place: d.readPlace()}
	case rvDiscriminant:
		return mir.Discriminant{Place: d.readPlace()}
	default:
		d.badTag(tag, "Rvalue")
		return nil
	}
}
