package testutil

// ConstantRunIDs returns the same run ID every time.
//
// transform.FixedGenerator hands out its IDs once each; ConstantRunIDs
// suits commands that may start any number of runs.
//
// Thread-safety: ConstantRunIDs is stateless and safe for concurrent use.
type ConstantRunIDs struct {
	id string
}

// NewConstantRunIDs creates a generator for id.
// If id is empty, Generate() returns "test-run-default".
func NewConstantRunIDs(id string) *ConstantRunIDs {
	if id == "" {
		id = "test-run-default"
	}
	return &ConstantRunIDs{id: id}
}

// Generate returns the fixed run ID.
//
// Implements transform.RunIDGenerator.
func (g *ConstantRunIDs) Generate() string {
	return g.id
}
