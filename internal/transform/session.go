package transform

import (
	"fmt"
	"strings"
)

// PassOverride forces a pass on or off regardless of its own gating.
type PassOverride struct {
	Name    string
	Enabled bool
}

func (o PassOverride) String() string {
	if o.Enabled {
		return "+" + o.Name
	}
	return "-" + o.Name
}

// Session holds the compiler options passes consult. It is read-only once
// the pipeline starts.
type Session struct {
	// OptLevel is 0 for debug builds and up to 3 for release builds.
	OptLevel int

	// PassOverrides are applied in order; a later entry for the same pass
	// wins.
	PassOverrides []PassOverride

	// ValidateMir runs the validator after every pass and phase change.
	ValidateMir bool

	// DumpMir selects passes whose before/after MIR is dumped: "all", or
	// a comma-separated list of pass names. Empty disables dumping.
	DumpMir string
}

// ParsePassOverrides parses "+PassA,-PassB" lists.
func ParsePassOverrides(s string) ([]PassOverride, error) {
	var out []PassOverride
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		switch item[0] {
		case '+':
			out = append(out, PassOverride{Name: item[1:], Enabled: true})
		case '-':
			out = append(out, PassOverride{Name: item[1:], Enabled: false})
		default:
			return nil, fmt.Errorf("pass override %q must start with '+' or '-'", item)
		}
		if out[len(out)-1].Name == "" {
			return nil, fmt.Errorf("pass override %q has no pass name", item)
		}
	}
	return out, nil
}

// Override returns the last override for name, if any.
func (s *Session) Override(name string) (enabled, ok bool) {
	if s == nil {
		return false, false
	}
	for i := len(s.PassOverrides) - 1; i >= 0; i-- {
		if s.PassOverrides[i].Name == name {
			return s.PassOverrides[i].Enabled, true
		}
	}
	return false, false
}

// ShouldDump reports whether MIR should be dumped around the named pass.
func (s *Session) ShouldDump(name string) bool {
	if s == nil || s.DumpMir == "" {
		return false
	}
	for _, f := range strings.Split(s.DumpMir, ",") {
		f = strings.TrimSpace(f)
		if f == "all" || f == name {
			return true
		}
	}
	return false
}
