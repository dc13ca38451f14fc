package mir

// VarDebugInfo maps a user-visible variable name to where its value lives.
type VarDebugInfo struct {
	Name       Symbol
	SourceInfo SourceInfo
	// Composite is set when this entry describes one field of a larger
	// user variable that was split into separate locals.
	Composite *VarDebugInfoFragment
	Value     VarDebugInfoContents
	// ArgumentIndex is the 1-based parameter position for arguments.
	ArgumentIndex *uint16
}

// VarDebugInfoFragment locates a field within the variable's type.
type VarDebugInfoFragment struct {
	Ty         Ty
	Projection []PlaceElem
}

// VarDebugInfoContents is either a place or a constant.
type VarDebugInfoContents interface{ isDebugContents() }

// DebugPlace is a variable stored in a place.
type DebugPlace struct{ Place Place }

// DebugConst is a variable whose value is a constant.
type DebugConst struct{ Constant Constant }

func (DebugPlace) isDebugContents() {}
func (DebugConst) isDebugContents() {}
