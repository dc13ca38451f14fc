package fixture

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mirkit/internal/consteval"
	"github.com/roach88/mirkit/internal/mir"
)

// Kinds of body a fixture can declare.
const (
	KindFn    = "fn"
	KindConst = "const"
)

// File is the YAML layout of a fixture file.
type File struct {
	Bodies []BodySpec `yaml:"bodies"`
}

// BodySpec declares one body.
type BodySpec struct {
	Name string `yaml:"name"`

	// Kind is "fn" (the default) or "const". Const bodies are registered
	// with the evaluator and can be named in operands and RequiredConsts.
	Kind string `yaml:"kind,omitempty"`

	Phase    mir.MirPhase `yaml:"phase,omitempty"`
	Generics []string     `yaml:"generics,omitempty"`
	ArgCount int          `yaml:"arg_count,omitempty"`

	// Locals lists the return place first, then arguments, then the rest.
	Locals []LocalSpec `yaml:"locals"`
	Blocks []BlockSpec `yaml:"blocks"`

	RequiredConsts []string `yaml:"required_consts,omitempty"`
}

// LocalSpec declares a local.
type LocalSpec struct {
	Ty  string `yaml:"ty"`
	Mut *bool  `yaml:"mut,omitempty"`
}

// BlockSpec declares a basic block.
type BlockSpec struct {
	Cleanup    bool            `yaml:"cleanup,omitempty"`
	Statements []StatementSpec `yaml:"statements,omitempty"`
	Terminator TerminatorSpec  `yaml:"terminator"`
}

// StatementSpec sets exactly one field.
type StatementSpec struct {
	Assign          *AssignSpec          `yaml:"assign,omitempty"`
	StorageLive     *uint32              `yaml:"storage_live,omitempty"`
	StorageDead     *uint32              `yaml:"storage_dead,omitempty"`
	FakeRead        string               `yaml:"fake_read,omitempty"`
	SetDiscriminant *SetDiscriminantSpec `yaml:"set_discriminant,omitempty"`
	Nop             bool                 `yaml:"nop,omitempty"`
}

// AssignSpec writes Place. Exactly one rvalue field is set; operator and
// aggregate rvalues take their operands from Args.
type AssignSpec struct {
	Place string `yaml:"place"`

	Use          string  `yaml:"use,omitempty"`
	BinOp        string  `yaml:"binop,omitempty"`
	Checked      bool    `yaml:"checked,omitempty"`
	UnOp         string  `yaml:"unop,omitempty"`
	Tuple        bool    `yaml:"tuple,omitempty"`
	Array        bool    `yaml:"array,omitempty"`
	Adt          string  `yaml:"adt,omitempty"`
	Variant      *uint32 `yaml:"variant,omitempty"`
	Ref          string  `yaml:"ref,omitempty"`
	Len          string  `yaml:"len,omitempty"`
	Discriminant string  `yaml:"discriminant,omitempty"`

	Args []string `yaml:"args,omitempty"`
}

// SetDiscriminantSpec writes an enum discriminant.
type SetDiscriminantSpec struct {
	Place   string `yaml:"place"`
	Variant uint32 `yaml:"variant"`
}

// TerminatorSpec sets exactly one field. Unwind fields name a cleanup
// block; when absent the terminator continues unwinding.
type TerminatorSpec struct {
	Goto        *uint32          `yaml:"goto,omitempty"`
	Return      bool             `yaml:"return,omitempty"`
	Unreachable bool             `yaml:"unreachable,omitempty"`
	Resume      bool             `yaml:"resume,omitempty"`
	Terminate   bool             `yaml:"terminate,omitempty"`
	SwitchInt   *SwitchIntSpec   `yaml:"switch_int,omitempty"`
	Drop        *DropSpec        `yaml:"drop,omitempty"`
	Assert      *AssertSpec      `yaml:"assert,omitempty"`
	Call        *CallSpec        `yaml:"call,omitempty"`
	FalseEdge   *FalseEdgeSpec   `yaml:"false_edge,omitempty"`
	FalseUnwind *FalseUnwindSpec `yaml:"false_unwind,omitempty"`
}

type SwitchIntSpec struct {
	Discr     string            `yaml:"discr"`
	Targets   map[uint64]uint32 `yaml:"targets"`
	Otherwise uint32            `yaml:"otherwise"`
}

type DropSpec struct {
	Place  string  `yaml:"place"`
	Target uint32  `yaml:"target"`
	Unwind *uint32 `yaml:"unwind,omitempty"`
}

type AssertSpec struct {
	Cond     string  `yaml:"cond"`
	Expected bool    `yaml:"expected"`
	Msg      string  `yaml:"msg,omitempty"`
	Target   uint32  `yaml:"target"`
	Unwind   *uint32 `yaml:"unwind,omitempty"`
}

type CallSpec struct {
	Func   string   `yaml:"func"`
	Args   []string `yaml:"args,omitempty"`
	Dest   string   `yaml:"dest"`
	Target *uint32  `yaml:"target,omitempty"`
	Unwind *uint32  `yaml:"unwind,omitempty"`
}

type FalseEdgeSpec struct {
	Real      uint32 `yaml:"real"`
	Imaginary uint32 `yaml:"imaginary"`
}

type FalseUnwindSpec struct {
	Real   uint32  `yaml:"real"`
	Unwind *uint32 `yaml:"unwind,omitempty"`
}

// Fixture is a loaded fixture file.
type Fixture struct {
	// Fns are the fn bodies in file order.
	Fns []*mir.Body
	// Consts are the const bodies in file order.
	Consts []*mir.Body
}

// Body returns the fn or const body with the given name.
func (f *Fixture) Body(name string) (*mir.Body, bool) {
	for _, b := range slices.Concat(f.Fns, f.Consts) {
		if b.Source.Instance.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Evaluator returns an evaluator with every const body registered.
func (f *Fixture) Evaluator(opts ...consteval.Option) *consteval.Evaluator {
	ev := consteval.New(opts...)
	for _, b := range f.Consts {
		ev.Register(b.Source.DefID(), b)
	}
	return ev
}

// Load reads and builds a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse builds a fixture from YAML. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return Build(&file)
}

// Build turns a decoded file into bodies. Bodies get DefIDs in file
// order, starting at 1.
func Build(file *File) (*Fixture, error) {
	if len(file.Bodies) == 0 {
		return nil, fmt.Errorf("bodies list is required and must be non-empty")
	}

	// Const signatures first so any body can refer to any const.
	consts := make(map[string]mir.UnevaluatedConst)
	seen := make(map[string]bool)
	for i, spec := range file.Bodies {
		if spec.Name == "" {
			return nil, fmt.Errorf("bodies[%d]: name is required", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("bodies[%d]: duplicate body %q", i, spec.Name)
		}
		seen[spec.Name] = true

		switch spec.Kind {
		case "", KindFn:
		case KindConst:
			if len(spec.Locals) == 0 {
				return nil, fmt.Errorf("bodies[%d]: locals list is required and must be non-empty", i)
			}
			sc := &scope{generics: spec.Generics}
			ty, err := sc.parseTy(spec.Locals[0].Ty)
			if err != nil {
				return nil, fmt.Errorf("bodies[%d]: %w", i, err)
			}
			consts[spec.Name] = mir.UnevaluatedConst{Def: defID(i), Name: spec.Name, Type: ty}
		default:
			return nil, fmt.Errorf("bodies[%d]: unknown kind %q", i, spec.Kind)
		}
	}

	out := &Fixture{}
	for i := range file.Bodies {
		spec := &file.Bodies[i]
		body, err := buildBody(defID(i), spec, consts)
		if err != nil {
			return nil, fmt.Errorf("body %q: %w", spec.Name, err)
		}
		if spec.Kind == KindConst {
			out.Consts = append(out.Consts, body)
		} else {
			out.Fns = append(out.Fns, body)
		}
	}
	return out, nil
}

func defID(i int) mir.DefID { return mir.DefID{Index: uint32(i + 1)} }

func buildBody(def mir.DefID, spec *BodySpec, consts map[string]mir.UnevaluatedConst) (*mir.Body, error) {
	if len(spec.Locals) <= spec.ArgCount {
		return nil, fmt.Errorf("need at least %d locals for %d arguments, got %d", spec.ArgCount+1, spec.ArgCount, len(spec.Locals))
	}
	if len(spec.Blocks) == 0 {
		return nil, fmt.Errorf("blocks list is required and must be non-empty")
	}

	sc := &scope{generics: spec.Generics, consts: consts, blocks: len(spec.Blocks)}
	for i, l := range spec.Locals {
		ty, err := sc.parseTy(l.Ty)
		if err != nil {
			return nil, fmt.Errorf("locals[%d]: %w", i, err)
		}
		decl := mir.NewLocalDecl(ty, mir.DummySpan)
		if l.Mut != nil && !*l.Mut {
			decl = decl.AsImmutable()
		}
		sc.locals = append(sc.locals, decl)
	}

	blocks := make([]mir.BasicBlockData, len(spec.Blocks))
	for i := range spec.Blocks {
		bd, err := sc.buildBlock(&spec.Blocks[i])
		if err != nil {
			return nil, fmt.Errorf("bb%d: %w", i, err)
		}
		blocks[i] = bd
	}

	body := mir.NewBody(
		mir.MirSourceItem(def, spec.Name),
		blocks,
		mir.SourceScopes{{Span: mir.DummySpan, LocalData: mir.SetCrossCrate(mir.SourceScopeLocalData{})}},
		sc.locals,
		nil,
		spec.ArgCount,
		nil,
		mir.DummySpan,
		nil,
		nil,
	)
	body.Phase = spec.Phase

	for _, name := range spec.RequiredConsts {
		c, ok := consts[name]
		if !ok {
			return nil, fmt.Errorf("required const %q is not declared", name)
		}
		body.RequiredConsts = append(body.RequiredConsts, mir.Constant{Literal: c})
	}
	return body, nil
}

func (sc *scope) buildBlock(spec *BlockSpec) (mir.BasicBlockData, error) {
	bd := mir.BasicBlockData{IsCleanup: spec.Cleanup}
	for i := range spec.Statements {
		kind, err := sc.buildStatement(&spec.Statements[i])
		if err != nil {
			return bd, fmt.Errorf("statements[%d]: %w", i, err)
		}
		bd.Statements = append(bd.Statements, mir.Statement{Kind: kind})
	}
	kind, err := sc.buildTerminator(&spec.Terminator)
	if err != nil {
		return bd, fmt.Errorf("terminator: %w", err)
	}
	for _, succ := range mir.Successors(kind) {
		if int(succ) >= sc.blocks {
			return bd, fmt.Errorf("terminator: target %s out of range", succ)
		}
	}
	bd.Term = &mir.Terminator{Kind: kind}
	return bd, nil
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func (sc *scope) buildStatement(s *StatementSpec) (mir.StatementKind, error) {
	if n := countSet(s.Assign != nil, s.StorageLive != nil, s.StorageDead != nil,
		s.FakeRead != "", s.SetDiscriminant != nil, s.Nop); n != 1 {
		return nil, fmt.Errorf("exactly one statement kind must be set, found %d", n)
	}

	switch {
	case s.Assign != nil:
		place, err := sc.parsePlace(s.Assign.Place)
		if err != nil {
			return nil, err
		}
		rv, err := sc.buildRvalue(s.Assign, place)
		if err != nil {
			return nil, err
		}
		return mir.Assign{Place: place, Rvalue: rv}, nil
	case s.StorageLive != nil:
		return mir.StorageLive{Local: mir.Local(*s.StorageLive)}, nil
	case s.StorageDead != nil:
		return mir.StorageDead{Local: mir.Local(*s.StorageDead)}, nil
	case s.FakeRead != "":
		place, err := sc.parsePlace(s.FakeRead)
		if err != nil {
			return nil, err
		}
		return mir.FakeRead{Cause: mir.ForLet, Place: place}, nil
	case s.SetDiscriminant != nil:
		place, err := sc.parsePlace(s.SetDiscriminant.Place)
		if err != nil {
			return nil, err
		}
		return mir.SetDiscriminant{Place: place, Variant: mir.VariantIdx(s.SetDiscriminant.Variant)}, nil
	default:
		return mir.Nop{}, nil
	}
}

func (sc *scope) operands(ss []string) ([]mir.Operand, error) {
	out := make([]mir.Operand, len(ss))
	for i, s := range ss {
		op, err := sc.parseOperand(s)
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

func (sc *scope) buildRvalue(a *AssignSpec, dst mir.Place) (mir.Rvalue, error) {
	if n := countSet(a.Use != "", a.BinOp != "", a.UnOp != "", a.Tuple, a.Array,
		a.Adt != "", a.Ref != "", a.Len != "", a.Discriminant != ""); n != 1 {
		return nil, fmt.Errorf("exactly one rvalue kind must be set, found %d", n)
	}
	args, err := sc.operands(a.Args)
	if err != nil {
		return nil, err
	}

	switch {
	case a.Use != "":
		op, err := sc.parseOperand(a.Use)
		if err != nil {
			return nil, err
		}
		return mir.Use{Operand: op}, nil
	case a.BinOp != "":
		op, ok := mir.ParseBinOp(a.BinOp)
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", a.BinOp)
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("%s takes 2 operands, got %d", op, len(args))
		}
		return mir.BinaryOp{Op: op, Left: args[0], Right: args[1], Checked: a.Checked}, nil
	case a.UnOp != "":
		var op mir.UnOp
		switch a.UnOp {
		case "Not":
			op = mir.Not
		case "Neg":
			op = mir.Neg
		default:
			return nil, fmt.Errorf("unknown unary operator %q", a.UnOp)
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 operand, got %d", op, len(args))
		}
		return mir.UnaryOp{Op: op, Operand: args[0]}, nil
	case a.Tuple:
		return mir.Aggregate{Kind: mir.AggregateTuple{}, Fields: args}, nil
	case a.Array:
		if len(dst.Projection) > 0 {
			return nil, fmt.Errorf("array aggregates must assign to a local")
		}
		arr, ok := sc.locals[dst.Local].Ty.(mir.ArrayTy)
		if !ok {
			return nil, fmt.Errorf("array aggregate assigned to %s", sc.locals[dst.Local].Ty)
		}
		return mir.Aggregate{Kind: mir.AggregateArray{Elem: arr.Elem}, Fields: args}, nil
	case a.Adt != "":
		kind := mir.AggregateAdt{Name: a.Adt}
		if a.Variant != nil {
			kind.Variant = mir.VariantIdx(*a.Variant)
			kind.IsEnum = true
		}
		return mir.Aggregate{Kind: kind, Fields: args}, nil
	case a.Ref != "":
		p, err := sc.parsePlace(a.Ref)
		if err != nil {
			return nil, err
		}
		return mir.Ref{Kind: mir.BorrowShared, Place: p}, nil
	case a.Len != "":
		p, err := sc.parsePlace(a.Len)
		if err != nil {
			return nil, err
		}
		return mir.Len{Place: p}, nil
	default:
		p, err := sc.parsePlace(a.Discriminant)
		if err != nil {
			return nil, err
		}
		return mir.Discriminant{Place: p}, nil
	}
}

func unwindTo(bb *uint32) mir.UnwindAction {
	if bb == nil {
		return mir.UnwindAction{Kind: mir.UnwindContinue}
	}
	return mir.CleanupTo(mir.BasicBlock(*bb))
}

var assertKinds = map[string]mir.AssertKind{
	"":                  mir.AssertBoundsCheck,
	"bounds":            mir.AssertBoundsCheck,
	"overflow":          mir.AssertOverflow,
	"division_by_zero":  mir.AssertDivisionByZero,
	"remainder_by_zero": mir.AssertRemainderByZero,
}

func (sc *scope) buildTerminator(t *TerminatorSpec) (mir.TerminatorKind, error) {
	if n := countSet(t.Goto != nil, t.Return, t.Unreachable, t.Resume, t.Terminate,
		t.SwitchInt != nil, t.Drop != nil, t.Assert != nil, t.Call != nil,
		t.FalseEdge != nil, t.FalseUnwind != nil); n != 1 {
		return nil, fmt.Errorf("exactly one terminator kind must be set, found %d", n)
	}

	switch {
	case t.Goto != nil:
		return mir.Goto{Target: mir.BasicBlock(*t.Goto)}, nil
	case t.Return:
		return mir.Return{}, nil
	case t.Unreachable:
		return mir.Unreachable{}, nil
	case t.Resume:
		return mir.UnwindResume{}, nil
	case t.Terminate:
		return mir.UnwindTerminate{}, nil
	case t.SwitchInt != nil:
		discr, err := sc.parseOperand(t.SwitchInt.Discr)
		if err != nil {
			return nil, err
		}
		sw := mir.SwitchInt{Discr: discr, Otherwise: mir.BasicBlock(t.SwitchInt.Otherwise)}
		for v, bb := range t.SwitchInt.Targets {
			sw.Targets = append(sw.Targets, mir.SwitchTarget{Value: v, Target: mir.BasicBlock(bb)})
		}
		slices.SortFunc(sw.Targets, func(a, b mir.SwitchTarget) int {
			switch {
			case a.Value < b.Value:
				return -1
			case a.Value > b.Value:
				return 1
			}
			return 0
		})
		return sw, nil
	case t.Drop != nil:
		place, err := sc.parsePlace(t.Drop.Place)
		if err != nil {
			return nil, err
		}
		return mir.Drop{Place: place, Target: mir.BasicBlock(t.Drop.Target), Unwind: unwindTo(t.Drop.Unwind)}, nil
	case t.Assert != nil:
		cond, err := sc.parseOperand(t.Assert.Cond)
		if err != nil {
			return nil, err
		}
		msg, ok := assertKinds[t.Assert.Msg]
		if !ok {
			return nil, fmt.Errorf("unknown assert message %q", t.Assert.Msg)
		}
		return mir.Assert{
			Cond:     cond,
			Expected: t.Assert.Expected,
			Msg:      msg,
			Target:   mir.BasicBlock(t.Assert.Target),
			Unwind:   unwindTo(t.Assert.Unwind),
		}, nil
	case t.Call != nil:
		args, err := sc.operands(t.Call.Args)
		if err != nil {
			return nil, err
		}
		dest, err := sc.parsePlace(t.Call.Dest)
		if err != nil {
			return nil, err
		}
		fn := mir.ConstOperand{Constant: mir.Constant{Literal: mir.ValueConst{Type: mir.FnDefTy{Name: t.Call.Func}}}}
		call := mir.Call{Func: fn, Args: args, Destination: dest, Unwind: unwindTo(t.Call.Unwind)}
		if t.Call.Target != nil {
			target := mir.BasicBlock(*t.Call.Target)
			call.Target = &target
		}
		return call, nil
	case t.FalseEdge != nil:
		return mir.FalseEdge{
			RealTarget:      mir.BasicBlock(t.FalseEdge.Real),
			ImaginaryTarget: mir.BasicBlock(t.FalseEdge.Imaginary),
		}, nil
	default:
		return mir.FalseUnwind{RealTarget: mir.BasicBlock(t.FalseUnwind.Real), Unwind: unwindTo(t.FalseUnwind.Unwind)}, nil
	}
}
