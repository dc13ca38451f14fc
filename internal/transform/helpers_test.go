package transform

import (
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/mirkit/internal/mir"
)

func term(k mir.TerminatorKind) *mir.Terminator {
	return &mir.Terminator{Kind: k}
}

func block(k mir.TerminatorKind, stmts ...mir.StatementKind) mir.BasicBlockData {
	bd := mir.BasicBlockData{Term: term(k)}
	for _, s := range stmts {
		bd.Statements = append(bd.Statements, mir.Statement{Kind: s})
	}
	return bd
}

func i32() mir.Ty { return mir.PrimTy{Kind: mir.I32} }

func constI32(v int64) mir.Operand {
	return mir.ConstOperand{Constant: mir.Constant{Literal: mir.Int(mir.I32, v)}}
}

// diamondBlocks builds bb0 -> {bb1, bb2} -> bb3.
func diamondBlocks() []mir.BasicBlockData {
	return []mir.BasicBlockData{
		block(mir.SwitchInt{
			Discr:     mir.Copy{Place: mir.PlaceFrom(1)},
			Targets:   []mir.SwitchTarget{{Value: 0, Target: 1}},
			Otherwise: 2,
		}, mir.StorageLive{Local: 2}),
		block(mir.Goto{Target: 3}, mir.Assign{Place: mir.PlaceFrom(2), Rvalue: mir.Use{Operand: constI32(1)}}),
		block(mir.Goto{Target: 3}, mir.Assign{Place: mir.PlaceFrom(2), Rvalue: mir.Use{Operand: constI32(2)}}),
		block(mir.Return{},
			mir.Assign{Place: mir.ReturnPlaceRef(), Rvalue: mir.Use{Operand: mir.Move{Place: mir.PlaceFrom(2)}}},
			mir.StorageDead{Local: 2},
		),
	}
}

// newBody builds a body named name with one i32 argument and extra i32
// temporaries.
func newBody(name string, blocks []mir.BasicBlockData, extra ...mir.Ty) *mir.Body {
	locals := []mir.LocalDecl{
		mir.NewLocalDecl(i32(), mir.DummySpan),
		mir.NewLocalDecl(i32(), mir.DummySpan),
	}
	for _, t := range extra {
		locals = append(locals, mir.NewLocalDecl(t, mir.DummySpan))
	}
	return mir.NewBody(
		mir.MirSourceItem(mir.DefID{Index: 1}, name),
		blocks,
		mir.SourceScopes{{Span: mir.DummySpan, LocalData: mir.SetCrossCrate(mir.SourceScopeLocalData{})}},
		locals,
		nil,
		1,
		nil,
		mir.DummySpan,
		nil,
		nil,
	)
}

func diamondBody() *mir.Body {
	return newBody("diamond", diamondBlocks(), i32())
}

func quietRunner(opts ...RunnerOption) *Runner {
	opts = append([]RunnerOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRunIDGenerator(UUIDv7Generator{}),
	}, opts...)
	return NewRunner(opts...)
}

// recorder collects the names of passes that ran, with the pass count
// each one observed.
type recorder struct {
	mu   sync.Mutex
	runs []string
	seen []int
}

func (r *recorder) record(name string, body *mir.Body) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, name)
	r.seen = append(r.seen, body.PassCount)
}

// recordPass is a named pass that only records that it ran.
type recordPass struct {
	name string
	rec  *recorder
}

func (p recordPass) Name() string { return p.name }

func (p recordPass) RunPass(_ *TyCtxt, body *mir.Body) { p.rec.record(p.name, body) }

// optPass runs only when optimizing.
type optPass struct{ recordPass }

func (optPass) IsEnabled(sess *Session) bool { return sess.OptLevel > 0 }

// quietPass opts out of MIR dumps.
type quietPass struct{ recordPass }

func (quietPass) IsMirDumpEnabled() bool { return false }

// breakPass points bb0 at a block that does not exist.
type breakPass struct{}

func (breakPass) RunPass(_ *TyCtxt, body *mir.Body) {
	body.BasicBlocksMut().Get(0).Term = term(mir.Goto{Target: 99})
}
