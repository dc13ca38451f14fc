package transform

import (
	"context"
	"log/slog"
	"sort"

	"github.com/roach88/mirkit/internal/diag"
	"github.com/roach88/mirkit/internal/mir"
)

// ErrRequiredConst is reported when a required constant fails to
// evaluate.
const ErrRequiredConst = "E132"

// RemoveStorageMarkers drops StorageLive and StorageDead when optimizing.
type RemoveStorageMarkers struct{}

func (RemoveStorageMarkers) IsEnabled(sess *Session) bool { return sess.OptLevel > 0 }

func (RemoveStorageMarkers) RunPass(_ *TyCtxt, body *mir.Body) {
	blocks := body.BasicBlocksMut()
	for i := range blocks.Len() {
		blocks.Get(mir.BasicBlock(i)).RetainStatements(func(s *mir.Statement) bool {
			switch s.Kind.(type) {
			case mir.StorageLive, mir.StorageDead:
				return false
			}
			return true
		})
	}
}

// CleanupPostBorrowck removes what only the borrow checker needs: fake
// reads, false edges and user type annotations.
type CleanupPostBorrowck struct{}

func (CleanupPostBorrowck) RunPass(_ *TyCtxt, body *mir.Body) {
	blocks := body.BasicBlocksMut()
	for i := range blocks.Len() {
		data := blocks.Get(mir.BasicBlock(i))
		data.RetainStatements(func(s *mir.Statement) bool {
			_, fake := s.Kind.(mir.FakeRead)
			return !fake
		})

		term := data.TerminatorMut()
		switch k := term.Kind.(type) {
		case mir.FalseEdge:
			term.Kind = mir.Goto{Target: k.RealTarget}
		case mir.FalseUnwind:
			term.Kind = mir.Goto{Target: k.RealTarget}
		}
	}

	body.UserTypeAnnotations = nil
	for i := range body.LocalDecls {
		body.LocalDecls[i].UserTy = nil
	}
}

// Deaggregator splits aggregate assignments into one assignment per field,
// followed by SetDiscriminant for enum variants.
type Deaggregator struct{}

func (Deaggregator) RunPass(_ *TyCtxt, body *mir.Body) {
	blocks := body.BasicBlocksMut()
	for i := range blocks.Len() {
		blocks.Get(mir.BasicBlock(i)).ExpandStatements(func(s *mir.Statement) []mir.Statement {
			a, ok := s.Kind.(mir.Assign)
			if !ok {
				return nil
			}
			agg, ok := a.Rvalue.(mir.Aggregate)
			if !ok {
				return nil
			}
			return expandAggregate(body, s.SourceInfo, a.Place, agg)
		})
	}
}

func expandAggregate(body *mir.Body, si mir.SourceInfo, lhs mir.Place, agg mir.Aggregate) []mir.Statement {
	out := make([]mir.Statement, 0, len(agg.Fields)+1)

	base := lhs
	var setDiscr *mir.Statement
	if adt, ok := agg.Kind.(mir.AggregateAdt); ok && adt.IsEnum {
		base = lhs.Project(mir.Downcast{Name: adt.Name, Variant: adt.Variant})
		setDiscr = &mir.Statement{
			SourceInfo: si,
			Kind:       mir.SetDiscriminant{Place: lhs, Variant: adt.Variant},
		}
	}

	n := uint64(len(agg.Fields))
	for i, op := range agg.Fields {
		var dst mir.Place
		if _, ok := agg.Kind.(mir.AggregateArray); ok {
			dst = base.Project(mir.ConstantIndex{Offset: uint64(i), MinLength: n})
		} else {
			dst = base.Project(mir.Field{Index: mir.FieldIdx(i), Ty: operandTy(body, op)})
		}
		out = append(out, mir.Statement{
			SourceInfo: si,
			Kind:       mir.Assign{Place: dst, Rvalue: mir.Use{Operand: op}},
		})
	}
	if setDiscr != nil {
		out = append(out, *setDiscr)
	}
	return out
}

func operandTy(body *mir.Body, op mir.Operand) mir.Ty {
	if c, ok := op.(mir.ConstOperand); ok {
		return c.Constant.Ty()
	}
	p, _ := mir.OperandPlace(op)
	return placeTy(body, p)
}

// placeTy follows projections from the local's declared type. It returns
// nil where the type cannot be derived locally.
func placeTy(body *mir.Body, p mir.Place) mir.Ty {
	if int(p.Local) >= len(body.LocalDecls) {
		return nil
	}
	t := body.LocalDecls[p.Local].Ty
	for _, elem := range p.Projection {
		switch e := elem.(type) {
		case mir.Field:
			t = e.Ty
		case mir.Deref:
			r, ok := t.(mir.RefTy)
			if !ok {
				return nil
			}
			t = r.Elem
		case mir.Index, mir.ConstantIndex:
			a, ok := t.(mir.ArrayTy)
			if !ok {
				return nil
			}
			t = a.Elem
		}
	}
	return t
}

// SimplifyGoto redirects edges that land on empty goto blocks straight to
// the end of the chain. Blocks left without predecessors are not removed.
type SimplifyGoto struct{}

func (SimplifyGoto) RunPass(_ *TyCtxt, body *mir.Body) {
	n := body.BasicBlocks.Len()
	forward := make([]mir.BasicBlock, n)
	for i := range forward {
		forward[i] = mir.BasicBlock(i)
	}
	for bb, data := range body.BasicBlocks.All() {
		if g, ok := data.Terminator().Kind.(mir.Goto); ok && bb != mir.StartBlock && onlyNops(data) {
			if int(g.Target) < n && body.Block(g.Target).IsCleanup == data.IsCleanup {
				forward[bb] = g.Target
			}
		}
	}

	resolve := func(bb mir.BasicBlock) mir.BasicBlock {
		// Cap the walk so goto cycles terminate.
		for steps := 0; int(bb) < n && forward[bb] != bb && steps < n; steps++ {
			bb = forward[bb]
		}
		return bb
	}

	changed := 0
	blocks := body.BasicBlocksMut()
	for i := range n {
		term := blocks.Get(mir.BasicBlock(i)).TerminatorMut()
		term.Kind = mir.MapSuccessors(term.Kind, func(s mir.BasicBlock) mir.BasicBlock {
			t := resolve(s)
			if t != s {
				changed++
			}
			return t
		})
	}
	if changed > 0 {
		slog.Debug("goto chains collapsed", "body", body.Source.String(), "edges", changed)
	}
}

func onlyNops(data *mir.BasicBlockData) bool {
	for i := range data.Statements {
		if !data.Statements[i].IsNop() {
			return false
		}
	}
	return true
}

// RemoveUnreachableBlocks empties every block control cannot reach and
// terminates it with Unreachable. Block indices stay stable.
type RemoveUnreachableBlocks struct{}

func (RemoveUnreachableBlocks) RunPass(_ *TyCtxt, body *mir.Body) {
	reachable := body.BasicBlocks.Reachable()

	var removed []mir.BasicBlock
	for bb, data := range body.BasicBlocks.All() {
		if !reachable[bb] && !data.IsEmptyUnreachable() {
			removed = append(removed, bb)
		}
	}
	if len(removed) == 0 {
		return
	}

	blocks := body.BasicBlocksMut()
	for _, bb := range removed {
		old := blocks.Get(bb)
		blocks.Set(bb, mir.BasicBlockData{
			Term:      &mir.Terminator{SourceInfo: old.Terminator().SourceInfo, Kind: mir.Unreachable{}},
			IsCleanup: old.IsCleanup,
		})
	}
	slog.Debug("unreachable blocks removed", "body", body.Source.String(), "blocks", len(removed))
}

// CheckRequiredConsts evaluates the body's required constants and reports
// the ones that fail. Polymorphic bodies are left for monomorphization.
type CheckRequiredConsts struct{}

func (CheckRequiredConsts) IsMirDumpEnabled() bool { return false }

func (CheckRequiredConsts) RunPass(tcx *TyCtxt, body *mir.Body) {
	if tcx.Eval == nil || body.IsPolymorphic() {
		return
	}
	status, err := body.PostMonoChecks(context.Background(), tcx.ParamEnv, nil, tcx.Eval)
	switch status {
	case mir.MonoCheckFailed:
		tcx.report(diag.Error, "CheckRequiredConsts", body, nil, ErrRequiredConst, err.Error())
	case mir.MonoCheckTooGeneric:
		tcx.report(diag.Warning, "CheckRequiredConsts", body, nil, ErrRequiredConst, err.Error())
	}
}

// builtinPasses maps pass names to constructors.
var builtinPasses = map[string]func() MirPass{
	"RemoveStorageMarkers":    func() MirPass { return RemoveStorageMarkers{} },
	"CleanupPostBorrowck":     func() MirPass { return CleanupPostBorrowck{} },
	"Deaggregator":            func() MirPass { return Deaggregator{} },
	"SimplifyGoto":            func() MirPass { return SimplifyGoto{} },
	"RemoveUnreachableBlocks": func() MirPass { return RemoveUnreachableBlocks{} },
	"CheckRequiredConsts":     func() MirPass { return CheckRequiredConsts{} },
	"Validator":               func() MirPass { return Validator{} },
}

// LookupPass returns a fresh instance of the named built-in pass.
func LookupPass(name string) (MirPass, bool) {
	ctor, ok := builtinPasses[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// PassNames lists the built-in passes in alphabetical order.
func PassNames() []string {
	names := make([]string, 0, len(builtinPasses))
	for name := range builtinPasses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WarnUnknownOverrides reports overrides that name no built-in pass. They
// are ignored by the driver.
func WarnUnknownOverrides(tcx *TyCtxt) {
	for _, o := range tcx.Session.PassOverrides {
		if _, ok := builtinPasses[o.Name]; !ok {
			tcx.Diag.Add(&diag.Diagnostic{
				Severity: diag.Warning,
				Message:  "MIR pass `" + o.Name + "` is unknown and will be ignored",
			})
		}
	}
}
