package mir

// SourceScopeData is one node of the lexical scope tree.
type SourceScopeData struct {
	Span        Span
	ParentScope *SourceScope

	// Inlined is set on the root scope of an inlined callee.
	Inlined *InlinedScope
	// InlinedParentScope is the nearest ancestor that is itself an inlined
	// root, if any. Computed once when the scope is pushed.
	InlinedParentScope *SourceScope

	LocalData ClearCrossCrate[SourceScopeLocalData]
}

// InlinedScope records which callee was inlined and from where.
type InlinedScope struct {
	Instance Instance
	CallSite Span
}

// SourceScopeLocalData is crate-local lint information for a scope.
type SourceScopeLocalData struct {
	LintRoot HirID
	Safety   Safety
}

// SafetyKind enumerates Safety variants.
type SafetyKind uint8

const (
	Safe SafetyKind = iota
	BuiltinUnsafe
	FnUnsafe
	ExplicitUnsafe
)

// Safety is the unsafety context of a scope.
type Safety struct {
	Kind SafetyKind
	// Block is the unsafe block for ExplicitUnsafe.
	Block HirID
}

func (s Safety) String() string {
	switch s.Kind {
	case BuiltinUnsafe:
		return "BuiltinUnsafe"
	case FnUnsafe:
		return "FnUnsafe"
	case ExplicitUnsafe:
		return "ExplicitUnsafe(" + s.Block.String() + ")"
	default:
		return "Safe"
	}
}

// SourceScopes is the arena of scopes for one body. Index 0 is the
// outermost scope.
type SourceScopes []SourceScopeData

// Push appends a scope and fills in its InlinedParentScope.
func (ss *SourceScopes) Push(data SourceScopeData) SourceScope {
	data.InlinedParentScope = nil
	if p := data.ParentScope; p != nil {
		parent := &(*ss)[*p]
		if parent.Inlined != nil {
			ip := *p
			data.InlinedParentScope = &ip
		} else if parent.InlinedParentScope != nil {
			ip := *parent.InlinedParentScope
			data.InlinedParentScope = &ip
		}
	}
	*ss = append(*ss, data)
	return SourceScope(len(*ss) - 1)
}

// LintRoot returns the lint root of scope s, or false when the scope data
// came from another crate.
func (ss SourceScopes) LintRoot(s SourceScope) (HirID, bool) {
	data, ok := ss[s].LocalData.Get()
	return data.LintRoot, ok
}

// InlinedInstance returns the callee instance s was inlined from, walking
// to the nearest inlined root.
func (ss SourceScopes) InlinedInstance(s SourceScope) (Instance, bool) {
	data := &ss[s]
	if data.Inlined != nil {
		return data.Inlined.Instance, true
	}
	if data.InlinedParentScope != nil {
		return ss[*data.InlinedParentScope].Inlined.Instance, true
	}
	return Instance{}, false
}

// Ancestors returns s followed by each of its parents up to the root.
func (ss SourceScopes) Ancestors(s SourceScope) []SourceScope {
	out := []SourceScope{s}
	for p := ss[s].ParentScope; p != nil; p = ss[*p].ParentScope {
		out = append(out, *p)
	}
	return out
}

// Instance is a function together with the generic arguments it was
// instantiated with.
type Instance struct {
	Def  DefID
	Name string
	Args []Ty
}

func (i Instance) String() string { return i.Name + argList(i.Args) }
