package mircodec

import "github.com/roach88/mirkit/internal/mir"

const (
	stmtAssign byte = iota
	stmtFakeRead
	stmtSetDiscriminant
	stmtStorageLive
	stmtStorageDead
	stmtRetag
	stmtNop
)

func (e *Encoder) emitSourceInfo(si mir.SourceInfo) {
	e.emitSpan(si.Span)
	e.EmitUvarint(uint64(si.Scope))
}

func (d *Decoder) readSourceInfo() mir.SourceInfo {
	span := d.readSpan()
	return mir.SourceInfo{Span: span, Scope: mir.SourceScope(d.ReadUvarint())}
}

func (e *Encoder) emitStatement(s *mir.Statement) {
	e.emitSourceInfo(s.SourceInfo)
	switch k := s.Kind.(type) {
	case mir.Assign:
		e.EmitU8(stmtAssign)
		e.emitPlace(k.Place)
		e.emitRvalue(k.Rvalue)
	case mir.FakeRead:
		e.EmitU8(stmtFakeRead)
		e.EmitU8(byte(k.Cause))
		e.emitPlace(k.Place)
	case mir.SetDiscriminant:
		e.EmitU8(stmtSetDiscriminant)
		e.emitPlace(k.Place)
		e.EmitUvarint(uint64(k.Variant))
	case mir.StorageLive:
		e.EmitU8(stmtStorageLive)
		e.EmitUvarint(uint64(k.Local))
	case mir.StorageDead:
		e.EmitU8(stmtStorageDead)
		e.EmitUvarint(uint64(k.Local))
	case mir.Retag:
		e.EmitU8(stmtRetag)
		e.emitPlace(k.Place)
	default:
		e.EmitU8(stmtNop)
	}
}

func (d *Decoder) readStatement() mir.Statement {
	s := mir.Statement{SourceInfo: d.readSourceInfo()}
	switch tag := d.ReadU8(); tag {
	case stmtAssign:
		place := d.readPlace()
		s.Kind = mir.Assign{Place: place, Rvalue: d.readRvalue()}
	case stmtFakeRead:
		cause := mir.FakeReadCause(d.ReadU8())
		s.Kind = mir.FakeRead{Cause: cause, Place: d.readPlace()}
	case stmtSetDiscriminant:
		place := d.readPlace()
		s.Kind = mir.SetDiscriminant{Place: place, Variant: mir.VariantIdx(d.ReadUvarint())}
	case stmtStorageLive:
		s.Kind = mir.StorageLive{Local: mir.Local(d.ReadUvarint())}
	case stmtStorageDead:
		s.Kind = mir.StorageDead{Local: mir.Local(d.ReadUvarint())}
	case stmtRetag:
		s.Kind = mir.Retag{Place: d.readPlace()}
	case stmtNop:
		s.Kind = mir.Nop{}
	default:
		d.badTag(tag, "StatementKind")
		s.Kind = mir.Nop{}
	}
	return s
}

const (
	termGoto byte = iota
	termSwitchInt
	termUnwindResume
	termUnwindTerminate
	termReturn
	termUnreachable
	termDrop
	termCall
	termAssert
	termYield
	termGeneratorDrop
	termFalseEdge
	termFalseUnwind
)

func (e *Encoder) emitUnwind(u mir.UnwindAction) {
	e.EmitU8(byte(u.Kind))
	if bb, ok := u.CleanupBlock(); ok {
		e.EmitUvarint(uint64(bb))
	}
}

func (d *Decoder) readUnwind() mir.UnwindAction {
	kind := mir.UnwindKind(d.ReadU8())
	switch kind {
	case mir.UnwindContinue, mir.UnwindUnreachable, mir.UnwindTerminateAction:
		return mir.UnwindAction{Kind: kind}
	case mir.UnwindCleanup:
		return mir.CleanupTo(mir.BasicBlock(d.ReadUvarint()))
	default:
		d.badTag(byte(kind), "UnwindAction")
		return mir.UnwindAction{}
	}
}

func (e *Encoder) emitOptBlock(bb *mir.BasicBlock) {
	e.EmitBool(bb != nil)
	if bb != nil {
		e.EmitUvarint(uint64(*bb))
	}
}

func (d *Decoder) readOptBlock() *mir.BasicBlock {
	if !d.ReadBool() {
		return nil
	}
	bb := mir.BasicBlock(d.ReadUvarint())
	return &bb
}

func (e *Encoder) emitTerminator(t *mir.Terminator) {
	e.emitSourceInfo(t.SourceInfo)
	switch k := t.Kind.(type) {
	case mir.Goto:
		e.EmitU8(termGoto)
		e.EmitUvarint(uint64(k.Target))
	case mir.SwitchInt:
		e.EmitU8(termSwitchInt)
		e.emitOperand(k.Discr)
		e.EmitLen(len(k.Targets))
		for _, st := range k.Targets {
			e.EmitUvarint(st.Value)
			e.EmitUvarint(uint64(st.Target))
		}
		e.EmitUvarint(uint64(k.Otherwise))
	case mir.UnwindResume:
		e.EmitU8(termUnwindResume)
	case mir.UnwindTerminate:
		e.EmitU8(termUnwindTerminate)
	case mir.Return:
		e.EmitU8(termReturn)
	case mir.Unreachable:
		e.EmitU8(termUnreachable)
	case mir.Drop:
		e.EmitU8(termDrop)
		e.emitPlace(k.Place)
		e.EmitUvarint(uint64(k.Target))
		e.emitUnwind(k.Unwind)
	case mir.Call:
		e.EmitU8(termCall)
		e.emitOperand(k.Func)
		e.emitOperands(k.Args)
		e.emitPlace(k.Destination)
		e.emitOptBlock(k.Target)
		e.emitUnwind(k.Unwind)
		e.emitSpan(k.FnSpan)
	case mir.Assert:
		e.EmitU8(termAssert)
		e.emitOperand(k.Cond)
		e.EmitBool(k.Expected)
		e.EmitU8(byte(k.Msg))
		e.EmitUvarint(uint64(k.Target))
		e.emitUnwind(k.Unwind)
	case mir.Yield:
		e.EmitU8(termYield)
		e.emitOperand(k.Value)
		e.EmitUvarint(uint64(k.Resume))
		e.emitPlace(k.ResumeArg)
		e.emitOptBlock(k.Drop)
	case mir.GeneratorDrop:
		e.EmitU8(termGeneratorDrop)
	case mir.FalseEdge:
		e.EmitU8(termFalseEdge)
		e.EmitUvarint(uint64(k.RealTarget))
		e.EmitUvarint(uint64(k.ImaginaryTarget))
	case mir.FalseUnwind:
		e.EmitU8(termFalseUnwind)
		e.EmitUvarint(uint64(k.RealTarget))
		e.emitUnwind(k.Unwind)
	}
}

func (d *Decoder) readBlockIdx() mir.BasicBlock { return mir.BasicBlock(d.ReadUvarint()) }

func (d *Decoder) readTerminator() *mir.Terminator {
	t := &mir.Terminator{SourceInfo: d.readSourceInfo()}
	switch tag := d.ReadU8(); tag {
	case termGoto:
		t.Kind = mir.Goto{Target: d.readBlockIdx()}
	case termSwitchInt:
		k := mir.SwitchInt{Discr: d.readOperand()}
		n := d.ReadLen()
		for i := 0; i < n; i++ {
			v := d.ReadUvarint()
			k.Targets = append(k.Targets, mir.SwitchTarget{Value: v, Target: d.readBlockIdx()})
		}
		k.Otherwise = d.readBlockIdx()
		t.Kind = k
	case termUnwindResume:
		t.Kind = mir.UnwindResume{}
	case termUnwindTerminate:
		t.Kind = mir.UnwindTerminate{}
	case termReturn:
		t.Kind = mir.Return{}
	case termUnreachable:
		t.Kind = mir.Unreachable{}
	case termDrop:
		place := d.readPlace()
		target := d.readBlockIdx()
		t.Kind = mir.Drop{Place: place, Target: target, Unwind: d.readUnwind()}
	case termCall:
		k := mir.Call{Func: d.readOperand()}
		k.Args = d.readOperands()
		k.Destination = d.readPlace()
		k.Target = d.readOptBlock()
		k.Unwind = d.readUnwind()
		k.FnSpan = d.readSpan()
		t.Kind = k
	case termAssert:
		k := mir.Assert{Cond: d.readOperand()}
		k.Expected = d.ReadBool()
		k.Msg = mir.AssertKind(d.ReadU8())
		k.Target = d.readBlockIdx()
		k.Unwind = d.readUnwind()
		t.Kind = k
	case termYield:
		k := mir.Yield{Value: d.readOperand()}
		k.Resume = d.readBlockIdx()
		k.ResumeArg = d.readPlace()
		k.Drop = d.readOptBlock()
		t.Kind = k
	case termGeneratorDrop:
		t.Kind = mir.GeneratorDrop{}
	case termFalseEdge:
		rt := d.readBlockIdx()
		t.Kind = mir.FalseEdge{RealTarget: rt, ImaginaryTarget: d.readBlockIdx()}
	case termFalseUnwind:
		rt := d.readBlockIdx()
		t.Kind = mir.FalseUnwind{RealTarget: rt, Unwind: d.readUnwind()}
	default:
		d.badTag(tag, "TerminatorKind")
		t.Kind = mir.Unreachable{}
	}
	return t
}

func (e *Encoder) emitBlock(bd *mir.BasicBlockData) {
	e.EmitLen(len(bd.Statements))
	for i := range bd.Statements {
		e.emitStatement(&bd.Statements[i])
	}
	e.EmitBool(bd.Term != nil)
	if bd.Term != nil {
		e.emitTerminator(bd.Term)
	}
	e.EmitBool(bd.IsCleanup)
}

func (d *Decoder) readBlock() mir.BasicBlockData {
	var bd mir.BasicBlockData
	if n := d.ReadLen(); n > 0 {
		bd.Statements = make([]mir.Statement, n)
		for i := range bd.Statements {
			bd.Statements[i] = d.readStatement()
		}
	}
	if d.ReadBool() {
		bd.Term = d.readTerminator()
	}
	bd.IsCleanup = d.ReadBool()
	return bd
}
