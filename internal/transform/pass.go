package transform

import (
	"reflect"
	"strings"
	"sync"

	"github.com/roach88/mirkit/internal/mir"
)

// MirPass transforms a body in place.
//
// A pass must leave the body satisfying every invariant of the phase it
// runs in. Passes that need to say more about themselves implement Named,
// Gated or DumpGated.
type MirPass interface {
	RunPass(tcx *TyCtxt, body *mir.Body)
}

// Named overrides the name derived from the pass's Go type.
type Named interface {
	Name() string
}

// Gated passes run only when the session enables them.
type Gated interface {
	IsEnabled(sess *Session) bool
}

// DumpGated passes can opt out of MIR dumps.
type DumpGated interface {
	IsMirDumpEnabled() bool
}

// PassName returns the pass's name: its Named override, or the Go type
// name without package path or type arguments.
func PassName(p MirPass) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexAny(name, ".:"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ProfilerName returns the snake_case name used for metrics, prefixed
// with "mir_pass".
func ProfilerName(p MirPass) string {
	return profilerName(PassName(p))
}

// passEnabled applies Gated; ungated passes are always enabled.
func passEnabled(p MirPass, sess *Session) bool {
	if g, ok := p.(Gated); ok {
		return g.IsEnabled(sess)
	}
	return true
}

func dumpEnabled(p MirPass) bool {
	if d, ok := p.(DumpGated); ok {
		return d.IsMirDumpEnabled()
	}
	return true
}

// profilerNames caches converted names for the life of the process.
var profilerNames sync.Map // string -> string

func profilerName(name string) string {
	if v, ok := profilerNames.Load(name); ok {
		return v.(string)
	}
	v, _ := profilerNames.LoadOrStore(name, toProfilerName(name))
	return v.(string)
}

// toProfilerName turns "SimplifyCfg-initial" into
// "mir_pass_simplify_cfg_initial".
func toProfilerName(name string) string {
	var b strings.Builder
	b.Grow(len("mir_pass") + 2*len(name))
	b.WriteString("mir_pass")
	for _, c := range name {
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte('_')
			b.WriteRune(c + ('a' - 'A'))
		case c == '-':
			b.WriteByte('_')
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
