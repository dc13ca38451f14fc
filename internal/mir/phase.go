package mir

import (
	"fmt"
	"strings"
)

// Dialect is the coarse stage of a MirPhase.
type Dialect uint8

const (
	DialectBuilt Dialect = iota
	DialectAnalysis
	DialectRuntime
)

func (d Dialect) String() string {
	switch d {
	case DialectAnalysis:
		return "analysis"
	case DialectRuntime:
		return "runtime"
	default:
		return "built"
	}
}

// AnalysisPhase is a sub-phase of the analysis dialect.
type AnalysisPhase uint8

const (
	AnalysisInitial AnalysisPhase = iota
	AnalysisPostCleanup
)

// RuntimePhase is a sub-phase of the runtime dialect.
type RuntimePhase uint8

const (
	RuntimeInitial RuntimePhase = iota
	RuntimePostCleanup
	RuntimeOptimized
)

const (
	builtPhaseCount    = 1
	analysisPhaseCount = 2
)

// MirPhase records how far a body has progressed through lowering. Phases
// are totally ordered:
//
//	built < analysis-initial < analysis-post-cleanup
//	      < runtime-initial < runtime-post-cleanup < runtime-optimized
//
// The zero value is Built.
type MirPhase struct {
	dialect Dialect
	sub     uint8
}

// Built is the phase of a freshly constructed body.
func Built() MirPhase { return MirPhase{dialect: DialectBuilt} }

// Analysis returns the analysis phase p.
func Analysis(p AnalysisPhase) MirPhase {
	return MirPhase{dialect: DialectAnalysis, sub: uint8(p)}
}

// Runtime returns the runtime phase p.
func Runtime(p RuntimePhase) MirPhase {
	return MirPhase{dialect: DialectRuntime, sub: uint8(p)}
}

// AllPhases lists every phase in order.
func AllPhases() []MirPhase {
	return []MirPhase{
		Built(),
		Analysis(AnalysisInitial),
		Analysis(AnalysisPostCleanup),
		Runtime(RuntimeInitial),
		Runtime(RuntimePostCleanup),
		Runtime(RuntimeOptimized),
	}
}

// Dialect returns the coarse stage of p.
func (p MirPhase) Dialect() Dialect { return p.dialect }

// PhaseIndex maps p to a dense integer that increases along the phase
// order.
func (p MirPhase) PhaseIndex() int {
	switch p.dialect {
	case DialectAnalysis:
		return 1 + builtPhaseCount + int(p.sub)
	case DialectRuntime:
		return 1 + builtPhaseCount + analysisPhaseCount + int(p.sub)
	default:
		return 1
	}
}

// Less reports whether p comes strictly before o.
func (p MirPhase) Less(o MirPhase) bool { return p.PhaseIndex() < o.PhaseIndex() }

// Compare returns -1, 0 or +1 as p is before, equal to or after o.
func (p MirPhase) Compare(o MirPhase) int {
	a, b := p.PhaseIndex(), o.PhaseIndex()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (p MirPhase) subName() string {
	switch {
	case p.dialect == DialectBuilt:
		return ""
	case p.sub == 0:
		return "initial"
	case p.sub == 1:
		return "post-cleanup"
	default:
		return "optimized"
	}
}

// String renders p as "<dialect>-<phase>", or just "built".
func (p MirPhase) String() string {
	if p.dialect == DialectBuilt {
		return "built"
	}
	return p.dialect.String() + "-" + p.subName()
}

// MarshalText implements encoding.TextMarshaler.
func (p MirPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *MirPhase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhaseName(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MustParsePhase parses a dialect and optional phase name. Both are
// case-insensitive. An empty phase selects the initial phase of the
// dialect. It panics on unknown names or on a phase given for "built".
func MustParsePhase(dialect, phase string) MirPhase {
	p, err := parsePhase(dialect, phase)
	if err != nil {
		bug("%v", err)
	}
	return p
}

// ParsePhaseName parses the textual form "<dialect>[-<phase>]" and
// reports unknown names as errors. A trailing "-" with no phase is an
// error, not the initial phase.
func ParsePhaseName(s string) (MirPhase, error) {
	dialect, phase, found := strings.Cut(s, "-")
	if found && phase == "" {
		return MirPhase{}, fmt.Errorf("empty phase name in %q", s)
	}
	return parsePhase(dialect, phase)
}

func parsePhase(dialect, phase string) (MirPhase, error) {
	switch strings.ToLower(dialect) {
	case "built":
		if phase != "" {
			return MirPhase{}, fmt.Errorf("cannot specify a phase for built MIR: %q", phase)
		}
		return Built(), nil
	case "analysis":
		switch normalizePhase(phase) {
		case "", "initial":
			return Analysis(AnalysisInitial), nil
		case "postcleanup":
			return Analysis(AnalysisPostCleanup), nil
		}
		return MirPhase{}, fmt.Errorf("unknown analysis phase: %q", phase)
	case "runtime":
		switch normalizePhase(phase) {
		case "", "initial":
			return Runtime(RuntimeInitial), nil
		case "postcleanup":
			return Runtime(RuntimePostCleanup), nil
		case "optimized":
			return Runtime(RuntimeOptimized), nil
		}
		return MirPhase{}, fmt.Errorf("unknown runtime phase: %q", phase)
	default:
		return MirPhase{}, fmt.Errorf("unknown MIR dialect: %q", dialect)
	}
}

// normalizePhase lowercases s and folds the accepted spellings of
// post-cleanup to one. Other separators are left alone so that names
// like "init-ial" stay unknown.
func normalizePhase(s string) string {
	s = strings.ToLower(s)
	switch s {
	case "post_cleanup", "post-cleanup", "postcleanup":
		return "postcleanup"
	}
	return s
}
