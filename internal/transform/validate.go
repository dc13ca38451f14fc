package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/mirkit/internal/diag"
	"github.com/roach88/mirkit/internal/mir"
)

// Validation error codes (E120-E139)
const (
	// Structural errors (E120-E124)
	ErrMissingTerminator     = "E120" // block has no terminator
	ErrBadSuccessor          = "E121" // edge to a block that does not exist
	ErrStartBlockPredecessor = "E122" // edge into the start block
	ErrLocalOutOfRange       = "E123" // place names an undeclared local
	ErrScopeOutOfRange       = "E124" // source info names an undeclared scope

	// Cleanup errors (E125-E127)
	ErrCleanupEdge          = "E125" // edge crosses between cleanup and normal code
	ErrUnwindOutsideCleanup = "E126" // resume/terminate outside a cleanup block
	ErrReturnInCleanup      = "E127" // return from a cleanup block

	// Body and phase errors (E128-E131)
	ErrPhaseForbidden       = "E128" // construct not allowed in the body's phase
	ErrSwitchDuplicate      = "E129" // switchInt lists a value twice
	ErrReturnPlaceImmutable = "E130" // return place is not mutable
	ErrArgCount             = "E131" // too few locals for the argument count
)

// ValidationError is one violated body invariant.
type ValidationError struct {
	// Location is nil for body-level errors.
	Location *mir.Location `json:"location,omitempty"`
	Message  string        `json:"message"`
	Code     string        `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Location, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// InvalidMirError is returned by the pass driver when validation fails.
type InvalidMirError struct {
	Body   string
	When   string
	Errors []ValidationError
}

func (e *InvalidMirError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("broken MIR in %s (%s): %s", e.Body, e.When, strings.Join(msgs, "; "))
}

// IsInvalidMir reports whether err came from failed validation.
func IsInvalidMir(err error) bool {
	var e *InvalidMirError
	return errors.As(err, &e)
}

// Validate checks body against the invariants of its phase.
// Returns all errors found (does not fail-fast).
func Validate(body *mir.Body) []ValidationError {
	v := &validator{body: body}
	v.checkBody()
	if !v.checkTerminatorsPresent() {
		return v.errs
	}
	for bb, data := range body.BasicBlocks.All() {
		v.checkBlock(bb, data)
	}
	v.checkStartBlock()
	return v.errs
}

// Validator reports validation errors as diagnostics and leaves the body
// unchanged.
type Validator struct {
	// When describes the point in the pipeline, e.g. "after borrowck".
	When string
}

func (Validator) IsMirDumpEnabled() bool { return false }

func (v Validator) RunPass(tcx *TyCtxt, body *mir.Body) {
	for _, e := range Validate(body) {
		msg := e.Message
		if v.When != "" {
			msg += " (" + v.When + ")"
		}
		tcx.report(diag.Error, "Validator", body, e.Location, e.Code, msg)
	}
}

type validator struct {
	body *mir.Body
	errs []ValidationError
}

func (v *validator) fail(loc *mir.Location, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Location: loc, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) checkBody() {
	b := v.body
	if len(b.LocalDecls) <= b.ArgCount {
		v.fail(nil, ErrArgCount, "%d locals cannot hold the return place and %d arguments", len(b.LocalDecls), b.ArgCount)
		return
	}
	if b.LocalDecls[mir.ReturnPlace].Mutability != mir.Mut {
		v.fail(nil, ErrReturnPlaceImmutable, "return place must be mutable")
	}
}

func (v *validator) checkTerminatorsPresent() bool {
	ok := true
	for bb, data := range v.body.BasicBlocks.All() {
		if data.Term == nil {
			loc := v.body.TerminatorLoc(bb)
			v.fail(&loc, ErrMissingTerminator, "%s has no terminator", bb)
			ok = false
		}
	}
	return ok
}

func (v *validator) checkStartBlock() {
	if v.body.BasicBlocks.Len() == 0 {
		return
	}
	for bb, data := range v.body.BasicBlocks.All() {
		for _, s := range data.Terminator().Successors() {
			if s == mir.StartBlock {
				loc := v.body.TerminatorLoc(bb)
				v.fail(&loc, ErrStartBlockPredecessor, "start block must not have predecessors, found edge from %s", bb)
			}
		}
	}
}

func (v *validator) checkBlock(bb mir.BasicBlock, data *mir.BasicBlockData) {
	for i := range data.Statements {
		loc := mir.Location{Block: bb, StatementIndex: i}
		v.checkStatement(loc, &data.Statements[i])
	}

	loc := v.body.TerminatorLoc(bb)
	term := data.Terminator()
	v.checkScope(loc, term.SourceInfo)
	v.checkTerminator(loc, data, term.Kind)
}

func (v *validator) checkScope(loc mir.Location, si mir.SourceInfo) {
	if int(si.Scope) >= len(v.body.SourceScopes) {
		v.fail(&loc, ErrScopeOutOfRange, "%s is not declared", si.Scope)
	}
}

func (v *validator) checkLocal(loc mir.Location, l mir.Local) {
	if int(l) >= len(v.body.LocalDecls) {
		v.fail(&loc, ErrLocalOutOfRange, "%s is not declared (body has %d locals)", l, len(v.body.LocalDecls))
	}
}

func (v *validator) checkPlace(loc mir.Location, p mir.Place) {
	v.checkLocal(loc, p.Local)
	for _, elem := range p.Projection {
		if idx, ok := elem.(mir.Index); ok {
			v.checkLocal(loc, idx.Local)
		}
	}
}

func (v *validator) checkOperand(loc mir.Location, op mir.Operand) {
	if p, ok := mir.OperandPlace(op); ok {
		v.checkPlace(loc, p)
	}
}

func (v *validator) checkRvalue(loc mir.Location, rv mir.Rvalue) {
	switch rv := rv.(type) {
	case mir.Use:
		v.checkOperand(loc, rv.Operand)
	case mir.Ref:
		v.checkPlace(loc, rv.Place)
	case mir.BinaryOp:
		v.checkOperand(loc, rv.Left)
		v.checkOperand(loc, rv.Right)
	case mir.UnaryOp:
		v.checkOperand(loc, rv.Operand)
	case mir.Aggregate:
		for _, f := range rv.Fields {
			v.checkOperand(loc, f)
		}
	case mir.Len:
		v.checkPlace(loc, rv.Place)
	case mir.Discriminant:
		v.checkPlace(loc, rv.Place)
	}
}

func (v *validator) checkStatement(loc mir.Location, s *mir.Statement) {
	v.checkScope(loc, s.SourceInfo)
	postCleanup := !v.body.Phase.Less(mir.Analysis(mir.AnalysisPostCleanup))

	switch k := s.Kind.(type) {
	case mir.Assign:
		v.checkPlace(loc, k.Place)
		v.checkRvalue(loc, k.Rvalue)
	case mir.FakeRead:
		v.checkPlace(loc, k.Place)
		if postCleanup {
			v.fail(&loc, ErrPhaseForbidden, "FakeRead is not allowed in %s MIR", v.body.Phase)
		}
	case mir.SetDiscriminant:
		v.checkPlace(loc, k.Place)
	case mir.StorageLive:
		v.checkLocal(loc, k.Local)
	case mir.StorageDead:
		v.checkLocal(loc, k.Local)
	case mir.Retag:
		v.checkPlace(loc, k.Place)
	}
}

// unwindOf returns the unwind action of terminators that have one.
func unwindOf(k mir.TerminatorKind) (mir.UnwindAction, bool) {
	switch k := k.(type) {
	case mir.Drop:
		return k.Unwind, true
	case mir.Call:
		return k.Unwind, true
	case mir.Assert:
		return k.Unwind, true
	case mir.FalseUnwind:
		return k.Unwind, true
	default:
		return mir.UnwindAction{}, false
	}
}

func (v *validator) checkTerminator(loc mir.Location, data *mir.BasicBlockData, k mir.TerminatorKind) {
	nblocks := v.body.BasicBlocks.Len()
	phase := v.body.Phase
	postCleanup := !phase.Less(mir.Analysis(mir.AnalysisPostCleanup))

	unwind, hasUnwind := unwindOf(k)
	unwindTarget, isCleanupEdge := unwind.CleanupBlock()

	for _, s := range mir.Successors(k) {
		if int(s) >= nblocks {
			v.fail(&loc, ErrBadSuccessor, "edge to %s, but the body has %d blocks", s, nblocks)
			continue
		}
		target := v.body.Block(s)
		if hasUnwind && isCleanupEdge && s == unwindTarget {
			if data.IsCleanup {
				v.fail(&loc, ErrCleanupEdge, "unwind edge out of cleanup block to %s", s)
			} else if !target.IsCleanup {
				v.fail(&loc, ErrCleanupEdge, "unwind edge to non-cleanup block %s", s)
			}
			continue
		}
		if data.IsCleanup && !target.IsCleanup {
			v.fail(&loc, ErrCleanupEdge, "cleanup block jumps to non-cleanup block %s", s)
		}
	}

	switch k := k.(type) {
	case mir.SwitchInt:
		v.checkOperand(loc, k.Discr)
		seen := make(map[uint64]bool, len(k.Targets))
		for _, t := range k.Targets {
			if seen[t.Value] {
				v.fail(&loc, ErrSwitchDuplicate, "switchInt has duplicate value %d", t.Value)
			}
			seen[t.Value] = true
		}
	case mir.UnwindResume, mir.UnwindTerminate:
		if !data.IsCleanup {
			v.fail(&loc, ErrUnwindOutsideCleanup, "%s outside a cleanup block", mir.TerminatorKindString(k))
		}
	case mir.Return:
		if data.IsCleanup {
			v.fail(&loc, ErrReturnInCleanup, "return from a cleanup block")
		}
	case mir.Drop:
		v.checkPlace(loc, k.Place)
	case mir.Call:
		v.checkOperand(loc, k.Func)
		for _, a := range k.Args {
			v.checkOperand(loc, a)
		}
		v.checkPlace(loc, k.Destination)
	case mir.Assert:
		v.checkOperand(loc, k.Cond)
	case mir.Yield:
		v.checkOperand(loc, k.Value)
		v.checkPlace(loc, k.ResumeArg)
		if phase.Dialect() == mir.DialectRuntime {
			v.fail(&loc, ErrPhaseForbidden, "yield is not allowed in %s MIR", phase)
		}
	case mir.GeneratorDrop:
		if phase.Dialect() == mir.DialectRuntime {
			v.fail(&loc, ErrPhaseForbidden, "generator_drop is not allowed in %s MIR", phase)
		}
	case mir.FalseEdge, mir.FalseUnwind:
		if postCleanup {
			v.fail(&loc, ErrPhaseForbidden, "%s is not allowed in %s MIR", mir.TerminatorKindString(k), phase)
		}
	}
}
