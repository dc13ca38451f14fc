package mir

import (
	"fmt"
	"strings"
)

// Terminator ends a basic block and transfers control.
type Terminator struct {
	SourceInfo SourceInfo
	Kind       TerminatorKind
}

// Successors returns every block control may flow to, unwind edges
// included, in a stable order.
func (t *Terminator) Successors() []BasicBlock {
	return Successors(t.Kind)
}

func (t Terminator) String() string { return TerminatorKindString(t.Kind) }

// UnwindAction says where control goes if the terminator unwinds.
type UnwindAction struct {
	Kind    UnwindKind
	Cleanup BasicBlock
}

// UnwindKind enumerates UnwindAction variants.
type UnwindKind uint8

const (
	UnwindContinue UnwindKind = iota
	UnwindUnreachable
	UnwindTerminateAction
	UnwindCleanup
)

// CleanupTo returns an unwind action that jumps to bb.
func CleanupTo(bb BasicBlock) UnwindAction {
	return UnwindAction{Kind: UnwindCleanup, Cleanup: bb}
}

// CleanupBlock returns the cleanup target, if any.
func (u UnwindAction) CleanupBlock() (BasicBlock, bool) {
	return u.Cleanup, u.Kind == UnwindCleanup
}

func (u UnwindAction) String() string {
	switch u.Kind {
	case UnwindUnreachable:
		return "unwind unreachable"
	case UnwindTerminateAction:
		return "unwind terminate"
	case UnwindCleanup:
		return "unwind: " + u.Cleanup.String()
	default:
		return "unwind continue"
	}
}

// TerminatorKind is the control transfer performed by a terminator.
type TerminatorKind interface{ isTerminatorKind() }

// Goto jumps unconditionally.
type Goto struct{ Target BasicBlock }

// SwitchTarget is one arm of a SwitchInt.
type SwitchTarget struct {
	Value  uint64
	Target BasicBlock
}

// SwitchInt branches on the value of an integer operand.
type SwitchInt struct {
	Discr     Operand
	Targets   []SwitchTarget
	Otherwise BasicBlock
}

// UnwindResume continues unwinding from a cleanup block.
type UnwindResume struct{}

// UnwindTerminate aborts the process during unwinding.
type UnwindTerminate struct{}

// Return returns from the function.
type Return struct{}

// Unreachable marks a point control cannot reach.
type Unreachable struct{}

// Drop runs the destructor of a place.
type Drop struct {
	Place  Place
	Target BasicBlock
	Unwind UnwindAction
}

// Call calls a function.
type Call struct {
	Func        Operand
	Args        []Operand
	Destination Place
	// Target is nil for diverging calls.
	Target *BasicBlock
	Unwind UnwindAction
	FnSpan Span
}

// AssertKind describes the check an Assert performs.
type AssertKind uint8

const (
	AssertBoundsCheck AssertKind = iota
	AssertOverflow
	AssertDivisionByZero
	AssertRemainderByZero
)

func (k AssertKind) String() string {
	switch k {
	case AssertOverflow:
		return "overflow"
	case AssertDivisionByZero:
		return "division by zero"
	case AssertRemainderByZero:
		return "remainder by zero"
	default:
		return "index out of bounds"
	}
}

// Assert panics unless Cond equals Expected.
type Assert struct {
	Cond     Operand
	Expected bool
	Msg      AssertKind
	Target   BasicBlock
	Unwind   UnwindAction
}

// Yield suspends a generator.
type Yield struct {
	Value     Operand
	Resume    BasicBlock
	ResumeArg Place
	Drop      *BasicBlock
}

// GeneratorDrop finishes dropping a suspended generator.
type GeneratorDrop struct{}

// FalseEdge is a jump with an imaginary second target, seen only by the
// borrow checker.
type FalseEdge struct {
	RealTarget      BasicBlock
	ImaginaryTarget BasicBlock
}

// FalseUnwind is a jump with an imaginary unwind edge, seen only by the
// borrow checker.
type FalseUnwind struct {
	RealTarget BasicBlock
	Unwind     UnwindAction
}

func (Goto) isTerminatorKind()            {}
func (SwitchInt) isTerminatorKind()       {}
func (UnwindResume) isTerminatorKind()    {}
func (UnwindTerminate) isTerminatorKind() {}
func (Return) isTerminatorKind()          {}
func (Unreachable) isTerminatorKind()     {}
func (Drop) isTerminatorKind()            {}
func (Call) isTerminatorKind()            {}
func (Assert) isTerminatorKind()          {}
func (Yield) isTerminatorKind()           {}
func (GeneratorDrop) isTerminatorKind()   {}
func (FalseEdge) isTerminatorKind()       {}
func (FalseUnwind) isTerminatorKind()     {}

func withUnwind(bbs []BasicBlock, u UnwindAction) []BasicBlock {
	if bb, ok := u.CleanupBlock(); ok {
		return append(bbs, bb)
	}
	return bbs
}

// Successors lists the targets of k, including unwind edges.
func Successors(k TerminatorKind) []BasicBlock {
	switch k := k.(type) {
	case Goto:
		return []BasicBlock{k.Target}
	case SwitchInt:
		out := make([]BasicBlock, 0, len(k.Targets)+1)
		for _, t := range k.Targets {
			out = append(out, t.Target)
		}
		return append(out, k.Otherwise)
	case Drop:
		return withUnwind([]BasicBlock{k.Target}, k.Unwind)
	case Call:
		var out []BasicBlock
		if k.Target != nil {
			out = append(out, *k.Target)
		}
		return withUnwind(out, k.Unwind)
	case Assert:
		return withUnwind([]BasicBlock{k.Target}, k.Unwind)
	case Yield:
		out := []BasicBlock{k.Resume}
		if k.Drop != nil {
			out = append(out, *k.Drop)
		}
		return out
	case FalseEdge:
		return []BasicBlock{k.RealTarget, k.ImaginaryTarget}
	case FalseUnwind:
		return withUnwind([]BasicBlock{k.RealTarget}, k.Unwind)
	default:
		return nil
	}
}

// MapSuccessors returns a copy of k with every successor, unwind edges
// included, replaced by f(successor).
func MapSuccessors(k TerminatorKind, f func(BasicBlock) BasicBlock) TerminatorKind {
	mapUnwind := func(u UnwindAction) UnwindAction {
		if u.Kind == UnwindCleanup {
			u.Cleanup = f(u.Cleanup)
		}
		return u
	}
	switch k := k.(type) {
	case Goto:
		k.Target = f(k.Target)
		return k
	case SwitchInt:
		targets := make([]SwitchTarget, len(k.Targets))
		for i, t := range k.Targets {
			targets[i] = SwitchTarget{Value: t.Value, Target: f(t.Target)}
		}
		k.Targets = targets
		k.Otherwise = f(k.Otherwise)
		return k
	case Drop:
		k.Target = f(k.Target)
		k.Unwind = mapUnwind(k.Unwind)
		return k
	case Call:
		if k.Target != nil {
			t := f(*k.Target)
			k.Target = &t
		}
		k.Unwind = mapUnwind(k.Unwind)
		return k
	case Assert:
		k.Target = f(k.Target)
		k.Unwind = mapUnwind(k.Unwind)
		return k
	case Yield:
		k.Resume = f(k.Resume)
		if k.Drop != nil {
			d := f(*k.Drop)
			k.Drop = &d
		}
		return k
	case FalseEdge:
		k.RealTarget = f(k.RealTarget)
		k.ImaginaryTarget = f(k.ImaginaryTarget)
		return k
	case FalseUnwind:
		k.RealTarget = f(k.RealTarget)
		k.Unwind = mapUnwind(k.Unwind)
		return k
	default:
		return k
	}
}

// TerminatorKindString renders a terminator the way the MIR dump does.
func TerminatorKindString(k TerminatorKind) string {
	switch k := k.(type) {
	case Goto:
		return "goto -> " + k.Target.String()
	case SwitchInt:
		arms := make([]string, 0, len(k.Targets)+1)
		for _, t := range k.Targets {
			arms = append(arms, fmt.Sprintf("%d: %s", t.Value, t.Target))
		}
		arms = append(arms, "otherwise: "+k.Otherwise.String())
		return fmt.Sprintf("switchInt(%s) -> [%s]", k.Discr, strings.Join(arms, ", "))
	case UnwindResume:
		return "resume"
	case UnwindTerminate:
		return "abort"
	case Return:
		return "return"
	case Unreachable:
		return "unreachable"
	case Drop:
		return fmt.Sprintf("drop(%s) -> [return: %s, %s]", k.Place, k.Target, k.Unwind)
	case Call:
		args := make([]string, len(k.Args))
		for i, a := range k.Args {
			args[i] = a.String()
		}
		s := fmt.Sprintf("%s = %s(%s)", k.Destination, k.Func, strings.Join(args, ", "))
		if k.Target != nil {
			return fmt.Sprintf("%s -> [return: %s, %s]", s, *k.Target, k.Unwind)
		}
		return fmt.Sprintf("%s -> %s", s, k.Unwind)
	case Assert:
		cond := k.Cond.String()
		if !k.Expected {
			cond = "!" + cond
		}
		return fmt.Sprintf("assert(%s, %q) -> [success: %s, %s]", cond, k.Msg.String(), k.Target, k.Unwind)
	case Yield:
		if k.Drop != nil {
			return fmt.Sprintf("%s = yield(%s) -> [resume: %s, drop: %s]", k.ResumeArg, k.Value, k.Resume, *k.Drop)
		}
		return fmt.Sprintf("%s = yield(%s) -> %s", k.ResumeArg, k.Value, k.Resume)
	case GeneratorDrop:
		return "generator_drop"
	case FalseEdge:
		return fmt.Sprintf("falseEdge -> [real: %s, imaginary: %s]", k.RealTarget, k.ImaginaryTarget)
	case FalseUnwind:
		return fmt.Sprintf("falseUnwind -> [real: %s, %s]", k.RealTarget, k.Unwind)
	default:
		return fmt.Sprintf("%T", k)
	}
}
