package mircodec

import (
	"fmt"

	"github.com/roach88/mirkit/internal/mir"
)

// formatVersion is bumped whenever the layout changes.
const formatVersion = 1

const (
	infoUser byte = iota
	infoStaticRef
	infoConstRef
	infoAggregateTemp
	infoBlockTailTemp
	infoDerefTemp
	infoFakeBorrow
	infoBoring
)

const (
	bindingVar byte = iota
	bindingImplicitSelf
	bindingRefForGuard
)

func emitLocalInfo(e *Encoder, info mir.LocalInfo) {
	switch info := info.(type) {
	case mir.UserLocal:
		e.EmitU8(infoUser)
		switch b := info.Binding.(type) {
		case mir.VarBinding:
			e.EmitU8(bindingVar)
			e.EmitU8(byte(b.Mode))
			e.EmitBool(b.OptTyInfo != nil)
			if b.OptTyInfo != nil {
				e.emitSpan(*b.OptTyInfo)
			}
			e.emitSpan(b.PatSpan)
			e.EmitBool(b.MatchPlace != nil)
			if b.MatchPlace != nil {
				e.emitPlace(*b.MatchPlace)
			}
		case mir.ImplicitSelf:
			e.EmitU8(bindingImplicitSelf)
			e.EmitU8(byte(b.Kind))
		default:
			e.EmitU8(bindingRefForGuard)
		}
	case mir.StaticRef:
		e.EmitU8(infoStaticRef)
		e.emitDefID(info.Def)
		e.EmitBool(info.IsThreadLocal)
	case mir.ConstRef:
		e.EmitU8(infoConstRef)
		e.emitDefID(info.Def)
	case mir.AggregateTemp:
		e.EmitU8(infoAggregateTemp)
	case mir.BlockTailTemp:
		e.EmitU8(infoBlockTailTemp)
		e.EmitBool(info.Info.TailResultIsIgnored)
		e.emitSpan(info.Info.Span)
	case mir.DerefTemp:
		e.EmitU8(infoDerefTemp)
	case mir.FakeBorrow:
		e.EmitU8(infoFakeBorrow)
	default:
		e.EmitU8(infoBoring)
	}
}

func readLocalInfo(d *Decoder) mir.LocalInfo {
	switch tag := d.ReadU8(); tag {
	case infoUser:
		switch bt := d.ReadU8(); bt {
		case bindingVar:
			b := mir.VarBinding{Mode: mir.BindingMode(d.ReadU8())}
			if d.ReadBool() {
				s := d.readSpan()
				b.OptTyInfo = &s
			}
			b.PatSpan = d.readSpan()
			if d.ReadBool() {
				p := d.readPlace()
				b.MatchPlace = &p
			}
			return mir.UserLocal{Binding: b}
		case bindingImplicitSelf:
			return mir.UserLocal{Binding: mir.ImplicitSelf{Kind: mir.ImplicitSelfKind(d.ReadU8())}}
		case bindingRefForGuard:
			return mir.UserLocal{Binding: mir.RefForGuard{}}
		default:
			d.badTag(bt, "BindingForm")
			return mir.Boring{}
		}
	case infoStaticRef:
		def := d.readDefID()
		return mir.StaticRef{Def: def, IsThreadLocal: d.ReadBool()}
	case infoConstRef:
		return mir.ConstRef{Def: d.readDefID()}
	case infoAggregateTemp:
		return mir.AggregateTemp{}
	case infoBlockTailTemp:
		ignored := d.ReadBool()
		return mir.BlockTailTemp{Info: mir.BlockTailInfo{TailResultIsIgnored: ignored, Span: d.readSpan()}}
	case infoDerefTemp:
		return mir.DerefTemp{}
	case infoFakeBorrow:
		return mir.FakeBorrow{}
	case infoBoring:
		return mir.Boring{}
	default:
		d.badTag(tag, "LocalInfo")
		return mir.Boring{}
	}
}

func (e *Encoder) emitUserTypeProjections(u *mir.UserTypeProjections) {
	e.EmitBool(u != nil)
	if u == nil {
		return
	}
	e.EmitLen(len(u.Contents))
	for _, c := range u.Contents {
		e.EmitUvarint(uint64(c.Projection.Base))
		e.emitProjection(c.Projection.Projs)
		e.emitSpan(c.Span)
	}
}

func (d *Decoder) readUserTypeProjections() *mir.UserTypeProjections {
	if !d.ReadBool() {
		return nil
	}
	u := &mir.UserTypeProjections{}
	n := d.ReadLen()
	for i := 0; i < n; i++ {
		base := mir.UserTypeAnnotationIndex(d.ReadUvarint())
		projs := d.readProjection()
		u.Contents = append(u.Contents, mir.ProjectionSpan{
			Projection: mir.UserTypeProjection{Base: base, Projs: projs},
			Span:       d.readSpan(),
		})
	}
	return u
}

func (e *Encoder) emitLocalDecl(l *mir.LocalDecl) {
	e.EmitU8(byte(l.Mutability))
	EncodeClearCrossCrate(e, l.LocalInfo, emitLocalInfo)
	e.EmitBool(l.Internal)
	e.EmitTy(l.Ty)
	e.emitUserTypeProjections(l.UserTy)
	e.emitSourceInfo(l.SourceInfo)
}

func (d *Decoder) readLocalDecl() mir.LocalDecl {
	var l mir.LocalDecl
	l.Mutability = mir.Mutability(d.ReadU8())
	l.LocalInfo = DecodeClearCrossCrate(d, readLocalInfo)
	l.Internal = d.ReadBool()
	l.Ty = d.ReadTy()
	l.UserTy = d.readUserTypeProjections()
	l.SourceInfo = d.readSourceInfo()
	return l
}

func (e *Encoder) emitInstance(i mir.Instance) {
	e.emitDefID(i.Def)
	e.EmitString(i.Name)
	e.emitTys(i.Args)
}

func (d *Decoder) readInstance() mir.Instance {
	def := d.readDefID()
	name := d.ReadString()
	return mir.Instance{Def: def, Name: name, Args: d.readTys()}
}

func (e *Encoder) emitOptScope(s *mir.SourceScope) {
	e.EmitBool(s != nil)
	if s != nil {
		e.EmitUvarint(uint64(*s))
	}
}

func (d *Decoder) readOptScope() *mir.SourceScope {
	if !d.ReadBool() {
		return nil
	}
	s := mir.SourceScope(d.ReadUvarint())
	return &s
}

func emitScopeLocalData(e *Encoder, data mir.SourceScopeLocalData) {
	e.emitHirID(data.LintRoot)
	e.EmitU8(byte(data.Safety.Kind))
	if data.Safety.Kind == mir.ExplicitUnsafe {
		e.emitHirID(data.Safety.Block)
	}
}

func readScopeLocalData(d *Decoder) mir.SourceScopeLocalData {
	data := mir.SourceScopeLocalData{LintRoot: d.readHirID()}
	data.Safety.Kind = mir.SafetyKind(d.ReadU8())
	if data.Safety.Kind == mir.ExplicitUnsafe {
		data.Safety.Block = d.readHirID()
	}
	return data
}

func (e *Encoder) emitScope(s *mir.SourceScopeData) {
	e.emitSpan(s.Span)
	e.emitOptScope(s.ParentScope)
	e.EmitBool(s.Inlined != nil)
	if s.Inlined != nil {
		e.emitInstance(s.Inlined.Instance)
		e.emitSpan(s.Inlined.CallSite)
	}
	e.emitOptScope(s.InlinedParentScope)
	EncodeClearCrossCrate(e, s.LocalData, emitScopeLocalData)
}

func (d *Decoder) readScope() mir.SourceScopeData {
	s := mir.SourceScopeData{Span: d.readSpan(), ParentScope: d.readOptScope()}
	if d.ReadBool() {
		inst := d.readInstance()
		s.Inlined = &mir.InlinedScope{Instance: inst, CallSite: d.readSpan()}
	}
	s.InlinedParentScope = d.readOptScope()
	s.LocalData = DecodeClearCrossCrate(d, readScopeLocalData)
	return s
}

func (e *Encoder) emitVarDebugInfo(v *mir.VarDebugInfo) {
	e.EmitString(v.Name.String())
	e.emitSourceInfo(v.SourceInfo)
	e.EmitBool(v.Composite != nil)
	if v.Composite != nil {
		e.EmitTy(v.Composite.Ty)
		e.emitProjection(v.Composite.Projection)
	}
	switch c := v.Value.(type) {
	case mir.DebugConst:
		e.EmitU8(1)
		e.emitConstant(c.Constant)
	case mir.DebugPlace:
		e.EmitU8(0)
		e.emitPlace(c.Place)
	default:
		e.EmitU8(0)
		e.emitPlace(mir.Place{})
	}
	e.EmitBool(v.ArgumentIndex != nil)
	if v.ArgumentIndex != nil {
		e.EmitUvarint(uint64(*v.ArgumentIndex))
	}
}

func (d *Decoder) readVarDebugInfo() mir.VarDebugInfo {
	v := mir.VarDebugInfo{Name: mir.Intern(d.ReadString()), SourceInfo: d.readSourceInfo()}
	if d.ReadBool() {
		ty := d.ReadTy()
		v.Composite = &mir.VarDebugInfoFragment{Ty: ty, Projection: d.readProjection()}
	}
	switch tag := d.ReadU8(); tag {
	case 0:
		v.Value = mir.DebugPlace{Place: d.readPlace()}
	case 1:
		v.Value = mir.DebugConst{Constant: d.readConstant()}
	default:
		d.badTag(tag, "VarDebugInfoContents")
	}
	if d.ReadBool() {
		idx := uint16(d.ReadUvarint())
		v.ArgumentIndex = &idx
	}
	return v
}

func (e *Encoder) emitOptPhase(p *mir.MirPhase) {
	e.EmitBool(p != nil)
	if p != nil {
		e.EmitU8(byte(p.PhaseIndex()))
	}
}

func (d *Decoder) readPhase() mir.MirPhase {
	idx := int(d.ReadU8())
	for _, p := range mir.AllPhases() {
		if p.PhaseIndex() == idx {
			return p
		}
	}
	d.badTag(byte(idx), "MirPhase")
	return mir.Built()
}

func (d *Decoder) readOptPhase() *mir.MirPhase {
	if !d.ReadBool() {
		return nil
	}
	p := d.readPhase()
	return &p
}

func (e *Encoder) emitGenerator(g *mir.GeneratorInfo) {
	e.EmitBool(g != nil)
	if g == nil {
		return
	}
	e.EmitU8(byte(g.GeneratorKind))
	e.EmitTy(g.YieldTy)
	e.EmitBool(g.GeneratorDrop != nil)
	if g.GeneratorDrop != nil {
		e.EncodeBody(g.GeneratorDrop)
	}
	e.EmitBool(g.GeneratorLayout != nil)
	if l := g.GeneratorLayout; l != nil {
		e.emitTys(l.FieldTys)
		e.EmitLen(len(l.VariantFields))
		for _, fields := range l.VariantFields {
			e.EmitLen(len(fields))
			for _, f := range fields {
				e.EmitUvarint(uint64(f))
			}
		}
	}
}

func (d *Decoder) readGenerator() *mir.GeneratorInfo {
	if !d.ReadBool() {
		return nil
	}
	g := &mir.GeneratorInfo{GeneratorKind: mir.GeneratorKind(d.ReadU8())}
	g.YieldTy = d.ReadTy()
	if d.ReadBool() {
		g.GeneratorDrop = d.decodeBody()
	}
	if d.ReadBool() {
		l := &mir.GeneratorLayout{FieldTys: d.readTys()}
		n := d.ReadLen()
		for i := 0; i < n; i++ {
			m := d.ReadLen()
			fields := make([]int, m)
			for j := range fields {
				fields[j] = int(d.ReadUvarint())
			}
			l.VariantFields = append(l.VariantFields, fields)
		}
		g.GeneratorLayout = l
	}
	return g
}

// EncodeBody appends body to the encoder.
func (e *Encoder) EncodeBody(b *mir.Body) {
	e.EmitUvarint(formatVersion)
	e.emitInstance(b.Source.Instance)
	e.EmitBool(b.Source.Promoted != nil)
	if b.Source.Promoted != nil {
		e.EmitUvarint(uint64(*b.Source.Promoted))
	}
	e.EmitU8(byte(b.Phase.PhaseIndex()))
	e.EmitUvarint(uint64(b.PassCount))

	e.EmitLen(b.BasicBlocks.Len())
	for _, bd := range b.BasicBlocks.All() {
		e.emitBlock(bd)
	}
	e.EmitLen(len(b.SourceScopes))
	for i := range b.SourceScopes {
		e.emitScope(&b.SourceScopes[i])
	}
	e.emitGenerator(b.Generator)
	e.EmitLen(len(b.LocalDecls))
	for i := range b.LocalDecls {
		e.emitLocalDecl(&b.LocalDecls[i])
	}
	e.EmitLen(len(b.UserTypeAnnotations))
	for _, a := range b.UserTypeAnnotations {
		e.EmitTy(a.UserTy)
		e.emitSpan(a.Span)
		e.EmitTy(a.Inferred)
	}
	e.EmitUvarint(uint64(b.ArgCount))
	e.EmitBool(b.SpreadArg != nil)
	if b.SpreadArg != nil {
		e.EmitUvarint(uint64(*b.SpreadArg))
	}
	e.EmitLen(len(b.VarDebugInfo))
	for i := range b.VarDebugInfo {
		e.emitVarDebugInfo(&b.VarDebugInfo[i])
	}
	e.emitSpan(b.Span)
	e.EmitLen(len(b.RequiredConsts))
	for _, c := range b.RequiredConsts {
		e.emitConstant(c)
	}
	e.emitOptPhase(b.InjectionPhase)
	e.EmitBool(b.TaintedByErrors != nil)
	e.EmitBool(b.IsPolymorphic())
}

// DecodeBody reads one body. Truncated or trailing input is an error;
// unknown variant tags panic.
func (d *Decoder) DecodeBody() (*mir.Body, error) {
	b := d.decodeBody()
	if d.err != nil {
		return nil, d.err
	}
	if len(d.src) != 0 {
		return nil, fmt.Errorf("mircodec: %d trailing bytes after body", len(d.src))
	}
	return b, nil
}

func (d *Decoder) decodeBody() *mir.Body {
	if v := d.ReadUvarint(); d.err == nil && v != formatVersion {
		d.fail(fmt.Errorf("mircodec: unsupported format version %d", v))
		return nil
	}
	b := &mir.Body{}
	b.Source.Instance = d.readInstance()
	if d.ReadBool() {
		p := mir.Promoted(d.ReadUvarint())
		b.Source.Promoted = &p
	}
	b.Phase = d.readPhase()
	b.PassCount = int(d.ReadUvarint())

	var blocks []mir.BasicBlockData
	if n := d.ReadLen(); n > 0 {
		blocks = make([]mir.BasicBlockData, n)
		for i := range blocks {
			blocks[i] = d.readBlock()
		}
	}
	b.BasicBlocks = mir.NewBasicBlocks(blocks)

	if n := d.ReadLen(); n > 0 {
		b.SourceScopes = make(mir.SourceScopes, n)
		for i := range b.SourceScopes {
			b.SourceScopes[i] = d.readScope()
		}
	}
	b.Generator = d.readGenerator()
	if n := d.ReadLen(); n > 0 {
		b.LocalDecls = make([]mir.LocalDecl, n)
		for i := range b.LocalDecls {
			b.LocalDecls[i] = d.readLocalDecl()
		}
	}
	if n := d.ReadLen(); n > 0 {
		b.UserTypeAnnotations = make([]mir.CanonicalUserTypeAnnotation, n)
		for i := range b.UserTypeAnnotations {
			userTy := d.ReadTy()
			span := d.readSpan()
			b.UserTypeAnnotations[i] = mir.CanonicalUserTypeAnnotation{UserTy: userTy, Span: span, Inferred: d.ReadTy()}
		}
	}
	b.ArgCount = int(d.ReadUvarint())
	if d.ReadBool() {
		l := mir.Local(d.ReadUvarint())
		b.SpreadArg = &l
	}
	if n := d.ReadLen(); n > 0 {
		b.VarDebugInfo = make([]mir.VarDebugInfo, n)
		for i := range b.VarDebugInfo {
			b.VarDebugInfo[i] = d.readVarDebugInfo()
		}
	}
	b.Span = d.readSpan()
	if n := d.ReadLen(); n > 0 {
		b.RequiredConsts = make([]mir.Constant, n)
		for i := range b.RequiredConsts {
			b.RequiredConsts[i] = d.readConstant()
		}
	}
	b.InjectionPhase = d.readOptPhase()
	if d.ReadBool() {
		b.TaintedByErrors = &mir.ErrorGuaranteed{}
	}
	b.RestorePolymorphic(d.ReadBool())
	return b
}

// Marshal encodes body on a fresh encoder.
func Marshal(body *mir.Body, clearCrossCrate bool) []byte {
	e := NewEncoder(clearCrossCrate)
	e.EncodeBody(body)
	return e.Bytes()
}

// Unmarshal decodes a body written by Marshal with the same channel
// setting.
func Unmarshal(data []byte, clearCrossCrate bool) (*mir.Body, error) {
	return NewDecoder(data, clearCrossCrate).DecodeBody()
}
