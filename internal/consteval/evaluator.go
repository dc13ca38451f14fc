package consteval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/mirkit/internal/mir"
)

// DefaultStepLimit bounds the number of terminators a single evaluation
// may execute.
const DefaultStepLimit = 1 << 16

var (
	// ErrUnknownConst is returned when no body is registered for a constant.
	ErrUnknownConst = errors.New("no body registered for constant")

	// ErrCycle is returned when a constant's value depends on itself.
	ErrCycle = errors.New("constant depends on itself")

	// ErrStepLimit is returned when evaluation runs longer than the
	// configured limit.
	ErrStepLimit = errors.New("evaluation step limit exceeded")

	// ErrUnsupported is returned for MIR the evaluator cannot interpret.
	ErrUnsupported = errors.New("unsupported in constant evaluation")
)

type itemKey struct {
	def      mir.DefID
	promoted int64
}

func keyOf(def mir.DefID, promoted *mir.Promoted) itemKey {
	k := itemKey{def: def, promoted: -1}
	if promoted != nil {
		k.promoted = int64(*promoted)
	}
	return k
}

// Evaluator interprets the bodies of constant items. It is safe for
// concurrent use; results of non-generic constants are memoized.
type Evaluator struct {
	mu     sync.RWMutex
	bodies map[itemKey]*mir.Body
	cache  map[itemKey]mir.ValueConst

	stepLimit int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithStepLimit sets the maximum number of terminators one evaluation
// may execute.
func WithStepLimit(n int) Option {
	return func(e *Evaluator) {
		e.stepLimit = n
	}
}

// New creates an Evaluator with no registered constants.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		bodies:    make(map[itemKey]*mir.Body),
		cache:     make(map[itemKey]mir.ValueConst),
		stepLimit: DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register makes body the definition of the constant item def.
func (e *Evaluator) Register(def mir.DefID, body *mir.Body) {
	e.register(keyOf(def, nil), body)
}

// RegisterPromoted makes body the definition of promoted fragment p of def.
func (e *Evaluator) RegisterPromoted(def mir.DefID, p mir.Promoted, body *mir.Body) {
	e.register(keyOf(def, &p), body)
}

func (e *Evaluator) register(k itemKey, body *mir.Body) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bodies[k] = body
	delete(e.cache, k)
}

// EvalConst evaluates c to a scalar value.
//
// Constants that mention generic parameters fail with an EvalError of
// kind EvalTooGeneric. Everything else that fails (overflow, division by
// zero, failed assertions, unknown items) is EvalReported.
func (e *Evaluator) EvalConst(ctx context.Context, env mir.ParamEnv, c mir.ConstantKind, span mir.Span) (mir.ValueConst, error) {
	return e.eval(ctx, env, c, span, map[itemKey]bool{})
}

func (e *Evaluator) eval(ctx context.Context, env mir.ParamEnv, c mir.ConstantKind, span mir.Span, active map[itemKey]bool) (mir.ValueConst, error) {
	switch c := c.(type) {
	case mir.ValueConst:
		return c, nil
	case mir.ParamConst:
		return mir.ValueConst{}, &mir.EvalError{Kind: mir.EvalTooGeneric, Const: c.String(), Span: span}
	case mir.UnevaluatedConst:
		return e.evalItem(ctx, env, c, span, active)
	default:
		return mir.ValueConst{}, reported(c, span, fmt.Errorf("%w: constant %T", ErrUnsupported, c))
	}
}

func (e *Evaluator) evalItem(ctx context.Context, env mir.ParamEnv, c mir.UnevaluatedConst, span mir.Span, active map[itemKey]bool) (mir.ValueConst, error) {
	for _, a := range c.Args {
		if mir.HasNonRegionParam(a) {
			return mir.ValueConst{}, &mir.EvalError{Kind: mir.EvalTooGeneric, Const: c.String(), Span: span}
		}
	}

	k := keyOf(c.Def, c.Promoted)
	if active[k] {
		return mir.ValueConst{}, reported(c, span, ErrCycle)
	}

	e.mu.RLock()
	body, ok := e.bodies[k]
	cached, hit := e.cache[k]
	e.mu.RUnlock()
	if !ok {
		return mir.ValueConst{}, reported(c, span, ErrUnknownConst)
	}
	if hit && len(c.Args) == 0 {
		return cached, nil
	}

	slog.Debug("evaluating constant", "const", c.String(), "body", body.Source.String())

	active[k] = true
	defer delete(active, k)

	m := &machine{ctx: ctx, ev: e, env: env, body: body, active: active}
	v, err := m.run()
	if err != nil {
		var ee *mir.EvalError
		if errors.As(err, &ee) {
			return mir.ValueConst{}, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return mir.ValueConst{}, err
		}
		return mir.ValueConst{}, reported(c, span, err)
	}

	if len(c.Args) == 0 {
		e.mu.Lock()
		e.cache[k] = v
		e.mu.Unlock()
	}
	return v, nil
}

func reported(c mir.ConstantKind, span mir.Span, err error) *mir.EvalError {
	return &mir.EvalError{Kind: mir.EvalReported, Const: c.String(), Span: span, Err: err}
}

// machine interprets one constant body.
type machine struct {
	ctx    context.Context
	ev     *Evaluator
	env    mir.ParamEnv
	body   *mir.Body
	active map[itemKey]bool
	locals []value
	init   []bool
}

func (m *machine) run() (mir.ValueConst, error) {
	m.locals = make([]value, len(m.body.LocalDecls))
	m.init = make([]bool, len(m.body.LocalDecls))
	if m.body.ArgCount != 0 {
		return mir.ValueConst{}, fmt.Errorf("%w: constant body takes %d arguments", ErrUnsupported, m.body.ArgCount)
	}

	bb := mir.StartBlock
	for steps := 0; ; steps++ {
		if steps >= m.ev.stepLimit {
			return mir.ValueConst{}, ErrStepLimit
		}
		if err := m.ctx.Err(); err != nil {
			return mir.ValueConst{}, err
		}

		data := m.body.Block(bb)
		for i := range data.Statements {
			loc := mir.Location{Block: bb, StatementIndex: i}
			if err := m.step(&data.Statements[i]); err != nil {
				return mir.ValueConst{}, fmt.Errorf("%s: %w", loc, err)
			}
		}

		next, done, err := m.terminate(data.Terminator())
		if err != nil {
			return mir.ValueConst{}, fmt.Errorf("%s: %w", m.body.TerminatorLoc(bb), err)
		}
		if done {
			return m.result()
		}
		bb = next
	}
}

func (m *machine) result() (mir.ValueConst, error) {
	if !m.init[mir.ReturnPlace] {
		if t, ok := m.body.ReturnTy().(mir.TupleTy); ok && len(t.Elems) == 0 {
			return mir.UnitConst, nil
		}
		return mir.ValueConst{}, errors.New("return place is uninitialized")
	}
	v := m.locals[mir.ReturnPlace]
	if v.agg {
		if len(v.fields) == 0 {
			return mir.UnitConst, nil
		}
		return mir.ValueConst{}, fmt.Errorf("%w: aggregate result of type %s", ErrUnsupported, m.body.ReturnTy())
	}
	return v.scalar, nil
}

func (m *machine) step(s *mir.Statement) error {
	switch k := s.Kind.(type) {
	case mir.Assign:
		v, err := m.rvalue(k.Rvalue)
		if err != nil {
			return err
		}
		return m.write(k.Place, v)
	case mir.StorageDead:
		m.init[k.Local] = false
		m.locals[k.Local] = value{}
		return nil
	case mir.StorageLive, mir.Nop, mir.FakeRead, mir.Retag:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, mir.StatementKindString(k))
	}
}

// terminate executes a terminator and returns the next block, or done
// when the body returned.
func (m *machine) terminate(t *mir.Terminator) (next mir.BasicBlock, done bool, err error) {
	switch k := t.Kind.(type) {
	case mir.Goto:
		return k.Target, false, nil
	case mir.SwitchInt:
		v, err := m.operand(k.Discr)
		if err != nil {
			return 0, false, err
		}
		if v.agg {
			return 0, false, fmt.Errorf("%w: switch on aggregate", ErrUnsupported)
		}
		for _, tgt := range k.Targets {
			if tgt.Value == v.scalar.Bits {
				return tgt.Target, false, nil
			}
		}
		return k.Otherwise, false, nil
	case mir.Assert:
		v, err := m.operand(k.Cond)
		if err != nil {
			return 0, false, err
		}
		if (v.scalar.Bits != 0) != k.Expected {
			return 0, false, assertError(k.Msg)
		}
		return k.Target, false, nil
	case mir.Drop:
		return k.Target, false, nil
	case mir.FalseEdge:
		return k.RealTarget, false, nil
	case mir.FalseUnwind:
		return k.RealTarget, false, nil
	case mir.Return:
		return 0, true, nil
	case mir.Unreachable:
		return 0, false, errors.New("entered unreachable code")
	default:
		return 0, false, fmt.Errorf("%w: %s", ErrUnsupported, mir.TerminatorKindString(k))
	}
}

func assertError(msg mir.AssertKind) error {
	switch msg {
	case mir.AssertOverflow:
		return ErrOverflow
	case mir.AssertDivisionByZero, mir.AssertRemainderByZero:
		return ErrDivisionByZero
	default:
		return fmt.Errorf("assertion failed: %s", msg)
	}
}

func (m *machine) rvalue(rv mir.Rvalue) (value, error) {
	switch rv := rv.(type) {
	case mir.Use:
		return m.operand(rv.Operand)
	case mir.BinaryOp:
		l, err := m.scalarOperand(rv.Left)
		if err != nil {
			return value{}, err
		}
		r, err := m.scalarOperand(rv.Right)
		if err != nil {
			return value{}, err
		}
		res, overflow, err := binary(rv.Op, l, r)
		if err != nil {
			return value{}, err
		}
		if rv.Checked {
			return tuple(scalar(res), scalar(mir.BoolConst(overflow))), nil
		}
		if overflow {
			return value{}, ErrOverflow
		}
		return scalar(res), nil
	case mir.UnaryOp:
		v, err := m.scalarOperand(rv.Operand)
		if err != nil {
			return value{}, err
		}
		res, overflow, err := unary(rv.Op, v)
		if err != nil {
			return value{}, err
		}
		if overflow {
			return value{}, ErrOverflow
		}
		return scalar(res), nil
	case mir.Aggregate:
		if _, ok := rv.Kind.(mir.AggregateTuple); !ok {
			return value{}, fmt.Errorf("%w: %s", ErrUnsupported, mir.RvalueString(rv))
		}
		fields := make([]value, len(rv.Fields))
		for i, op := range rv.Fields {
			v, err := m.operand(op)
			if err != nil {
				return value{}, err
			}
			fields[i] = v
		}
		return tuple(fields...), nil
	default:
		return value{}, fmt.Errorf("%w: %s", ErrUnsupported, mir.RvalueString(rv))
	}
}

func (m *machine) scalarOperand(op mir.Operand) (mir.ValueConst, error) {
	v, err := m.operand(op)
	if err != nil {
		return mir.ValueConst{}, err
	}
	if v.agg {
		return mir.ValueConst{}, fmt.Errorf("%w: aggregate operand %s", ErrUnsupported, op)
	}
	return v.scalar, nil
}

func (m *machine) operand(op mir.Operand) (value, error) {
	switch op := op.(type) {
	case mir.Copy:
		return m.read(op.Place)
	case mir.Move:
		return m.read(op.Place)
	case mir.ConstOperand:
		c, err := m.ev.eval(m.ctx, m.env, op.Constant.Literal, op.Constant.Span, m.active)
		if err != nil {
			return value{}, err
		}
		return scalar(c), nil
	default:
		return value{}, fmt.Errorf("%w: operand %T", ErrUnsupported, op)
	}
}

func (m *machine) read(p mir.Place) (value, error) {
	if int(p.Local) >= len(m.locals) {
		return value{}, fmt.Errorf("local %s out of range", p.Local)
	}
	if !m.init[p.Local] {
		return value{}, fmt.Errorf("read of uninitialized %s", p.Local)
	}
	v := m.locals[p.Local]
	for _, elem := range p.Projection {
		f, ok := elem.(mir.Field)
		if !ok || !v.agg || int(f.Index) >= len(v.fields) {
			return value{}, fmt.Errorf("%w: place %s", ErrUnsupported, p)
		}
		v = v.fields[f.Index]
	}
	return v, nil
}

func (m *machine) write(p mir.Place, v value) error {
	if int(p.Local) >= len(m.locals) {
		return fmt.Errorf("local %s out of range", p.Local)
	}
	if len(p.Projection) == 0 {
		m.locals[p.Local] = v
		m.init[p.Local] = true
		return nil
	}
	if !m.init[p.Local] {
		return fmt.Errorf("partial write to uninitialized %s", p.Local)
	}
	dst := &m.locals[p.Local]
	for _, elem := range p.Projection {
		f, ok := elem.(mir.Field)
		if !ok || !dst.agg || int(f.Index) >= len(dst.fields) {
			return fmt.Errorf("%w: place %s", ErrUnsupported, p)
		}
		dst = &dst.fields[f.Index]
	}
	*dst = v
	return nil
}
