package transform

import (
	"github.com/roach88/mirkit/internal/diag"
	"github.com/roach88/mirkit/internal/mir"
)

// TyCtxt is the shared, read-only context handed to every pass.
// Eval and Diag are safe for concurrent use, so one TyCtxt serves all
// bodies of a parallel run.
type TyCtxt struct {
	Session  *Session
	Eval     mir.ConstEvaluator
	Diag     *diag.Bag
	ParamEnv mir.ParamEnv
}

// NewTyCtxt creates a context with an empty diagnostic bag. A nil session
// is replaced by the zero Session.
func NewTyCtxt(sess *Session, eval mir.ConstEvaluator) *TyCtxt {
	if sess == nil {
		sess = &Session{}
	}
	return &TyCtxt{
		Session: sess,
		Eval:    eval,
		Diag:    diag.NewBag(),
	}
}

// report records a diagnostic about body on behalf of pass.
func (tcx *TyCtxt) report(sev diag.Severity, pass string, body *mir.Body, loc *mir.Location, code, msg string) {
	d := &diag.Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Body:     body.Source.String(),
		Pass:     pass,
		Location: loc,
	}
	if loc != nil && int(loc.Block) < body.BasicBlocks.Len() {
		bd := body.Block(loc.Block)
		switch {
		case loc.StatementIndex < len(bd.Statements):
			d.Span = bd.Statements[loc.StatementIndex].SourceInfo.Span
		case loc.StatementIndex == len(bd.Statements) && bd.Term != nil:
			d.Span = bd.Term.SourceInfo.Span
		}
	}
	tcx.Diag.Add(d)
}
