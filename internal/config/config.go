package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mirkit/internal/mir"
	"github.com/roach88/mirkit/internal/transform"
)

// Config error codes (E140-E149)
const (
	ErrCodeRead         = "E140" // file could not be read
	ErrCodeSyntax       = "E141" // CUE does not compile
	ErrCodeSchema       = "E142" // value does not match #Pipeline
	ErrCodeUnknownPass  = "E143" // phase names a pass that does not exist
	ErrCodeBadPhase     = "E144" // target is not a phase name
	ErrCodeBadOverride  = "E145" // override is not +Pass or -Pass
	ErrCodePhaseOrder   = "E146" // targets do not move forward
	ErrCodeEmptyProgram = "E147" // no phases
)

//go:embed schema.cue
var schemaSrc string

//go:embed default.cue
var defaultSrc string

// Error is a configuration problem, with the CUE position when known.
type Error struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// Phase is one step of a pipeline: passes by name, then an optional phase
// change.
type Phase struct {
	Passes []string
	Target *mir.MirPhase
}

// Pipeline is a parsed pipeline configuration.
type Pipeline struct {
	Session transform.Session
	Phases  []Phase
}

// Steps resolves pass names into the driver's phase steps.
func (p *Pipeline) Steps() []transform.PhaseStep {
	steps := make([]transform.PhaseStep, len(p.Phases))
	for i, ph := range p.Phases {
		passes := make([]transform.MirPass, 0, len(ph.Passes))
		for _, name := range ph.Passes {
			// Names were checked when the pipeline was parsed.
			pass, _ := transform.LookupPass(name)
			passes = append(passes, pass)
		}
		steps[i] = transform.PhaseStep{Passes: passes, Target: ph.Target}
	}
	return steps
}

// Final returns the phase the pipeline ends in, given the phase bodies
// start in.
func (p *Pipeline) Final(start mir.MirPhase) mir.MirPhase {
	for _, ph := range p.Phases {
		if ph.Target != nil {
			start = *ph.Target
		}
	}
	return start
}

// LoadPipeline reads a pipeline from a CUE file.
func LoadPipeline(path string) (*Pipeline, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, Field: "file", Message: err.Error()}
	}
	return parse(path, src)
}

// ParsePipeline parses a pipeline from CUE source.
func ParsePipeline(src []byte) (*Pipeline, error) {
	return parse("pipeline.cue", src)
}

// Default returns the built-in pipeline: borrowck cleanup, lowering to
// runtime MIR, then light optimization.
func Default() *Pipeline {
	p, err := parse("default.cue", []byte(defaultSrc))
	if err != nil {
		panic(fmt.Sprintf("config: default pipeline: %v", err))
	}
	return p
}

func parse(filename string, src []byte) (*Pipeline, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Pipeline"))
	if err := schema.Err(); err != nil {
		panic(fmt.Sprintf("config: schema: %v", err))
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeSyntax, err)
	}
	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	p := &Pipeline{}
	if err := parseSession(v.LookupPath(cue.ParsePath("session")), &p.Session); err != nil {
		return nil, err
	}

	iter, err := v.LookupPath(cue.ParsePath("phases")).List()
	if err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}
	current := mir.Built()
	for i := 0; iter.Next(); i++ {
		ph, err := parsePhase(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		if ph.Target != nil {
			if !current.Less(*ph.Target) {
				return nil, &Error{
					Code:    ErrCodePhaseOrder,
					Field:   fmt.Sprintf("phases[%d].target", i),
					Message: fmt.Sprintf("%s does not come after %s", ph.Target, current),
					Pos:     iter.Value().LookupPath(cue.ParsePath("target")).Pos(),
				}
			}
			current = *ph.Target
		}
		p.Phases = append(p.Phases, ph)
	}
	if len(p.Phases) == 0 {
		return nil, &Error{Code: ErrCodeEmptyProgram, Field: "phases", Message: "at least one phase is required", Pos: v.Pos()}
	}
	return p, nil
}

func parseSession(v cue.Value, sess *transform.Session) error {
	if !v.Exists() {
		return nil
	}
	if f := v.LookupPath(cue.ParsePath("opt_level")); f.Exists() {
		n, err := f.Int64()
		if err != nil {
			return cueError(ErrCodeSchema, err)
		}
		sess.OptLevel = int(n)
	}
	if f := v.LookupPath(cue.ParsePath("validate")); f.Exists() {
		b, err := f.Bool()
		if err != nil {
			return cueError(ErrCodeSchema, err)
		}
		sess.ValidateMir = b
	}
	if f := v.LookupPath(cue.ParsePath("dump")); f.Exists() {
		s, err := f.String()
		if err != nil {
			return cueError(ErrCodeSchema, err)
		}
		sess.DumpMir = s
	}
	if f := v.LookupPath(cue.ParsePath("overrides")); f.Exists() {
		var raw []string
		if err := f.Decode(&raw); err != nil {
			return cueError(ErrCodeSchema, err)
		}
		overrides, err := transform.ParsePassOverrides(strings.Join(raw, ","))
		if err != nil {
			return &Error{Code: ErrCodeBadOverride, Field: "session.overrides", Message: err.Error(), Pos: f.Pos()}
		}
		sess.PassOverrides = overrides
	}
	return nil
}

func parsePhase(v cue.Value, i int) (Phase, error) {
	var ph Phase

	iter, err := v.LookupPath(cue.ParsePath("passes")).List()
	if err != nil {
		return ph, cueError(ErrCodeSchema, err)
	}
	for j := 0; iter.Next(); j++ {
		name, err := iter.Value().String()
		if err != nil {
			return ph, cueError(ErrCodeSchema, err)
		}
		if _, ok := transform.LookupPass(name); !ok {
			return ph, &Error{
				Code:    ErrCodeUnknownPass,
				Field:   fmt.Sprintf("phases[%d].passes[%d]", i, j),
				Message: fmt.Sprintf("unknown pass %q (known: %s)", name, strings.Join(transform.PassNames(), ", ")),
				Pos:     iter.Value().Pos(),
			}
		}
		ph.Passes = append(ph.Passes, name)
	}

	if f := v.LookupPath(cue.ParsePath("target")); f.Exists() {
		s, err := f.String()
		if err != nil {
			return ph, cueError(ErrCodeSchema, err)
		}
		target, err := mir.ParsePhaseName(s)
		if err != nil {
			return ph, &Error{Code: ErrCodeBadPhase, Field: fmt.Sprintf("phases[%d].target", i), Message: err.Error(), Pos: f.Pos()}
		}
		ph.Target = &target
	}
	return ph, nil
}

// cueError keeps the first CUE error and its position.
func cueError(code string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Field: "cue", Message: err.Error()}
	}
	first := errs[0]
	e := &Error{Code: code, Field: "cue", Message: first.Error()}
	if pos := errors.Positions(first); len(pos) > 0 {
		e.Pos = pos[0]
	}
	return e
}
