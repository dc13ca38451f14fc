package mir

// BasicBlockData is a straight-line run of statements ending in a
// terminator.
type BasicBlockData struct {
	Statements []Statement
	// Term is nil only while the block is under construction.
	Term      *Terminator
	IsCleanup bool
}

// NewBasicBlockData returns a block with the given terminator and no
// statements.
func NewBasicBlockData(term *Terminator) BasicBlockData {
	return BasicBlockData{Term: term}
}

// Terminator returns the block's terminator. It panics if the block is
// still under construction.
func (b *BasicBlockData) Terminator() *Terminator {
	if b.Term == nil {
		bug("invalid terminator state")
	}
	return b.Term
}

// TerminatorMut is Terminator for callers that intend to rewrite the
// terminator in place.
func (b *BasicBlockData) TerminatorMut() *Terminator {
	return b.Terminator()
}

// RetainStatements turns every statement for which keep returns false into
// a Nop. Statement indices are preserved.
func (b *BasicBlockData) RetainStatements(keep func(*Statement) bool) {
	for i := range b.Statements {
		if !keep(&b.Statements[i]) {
			b.Statements[i].MakeNop()
		}
	}
}

// ExpandStatements replaces each statement with the statements returned by
// f. When f returns nil the statement is left untouched. An empty non-nil
// result turns the statement into a Nop; a single statement replaces it in
// place; longer results are spliced in, preserving the original order.
//
// After expansion the block holds the original count plus the sum of
// len(result)-1 over every result longer than one. Locations derived from
// the old layout must be recomputed.
func (b *BasicBlockData) ExpandStatements(f func(*Statement) []Statement) {
	type splice struct {
		at    int
		extra []Statement
	}
	var splices []splice
	extraStmts := 0

	for i := range b.Statements {
		repl := f(&b.Statements[i])
		if repl == nil {
			continue
		}
		if len(repl) == 0 {
			b.Statements[i].MakeNop()
			continue
		}
		b.Statements[i] = repl[0]
		if len(repl) > 1 {
			splices = append(splices, splice{at: i, extra: repl[1:]})
			extraStmts += len(repl) - 1
		}
	}
	if extraStmts == 0 {
		return
	}

	// Walk the splices from the back, moving each tail segment into its
	// final slot before copying the inserted statements in after their
	// originating statement.
	orig := len(b.Statements)
	b.Statements = append(b.Statements, make([]Statement, extraStmts)...)
	gap := extraStmts
	end := orig
	for s := len(splices) - 1; s >= 0; s-- {
		sp := splices[s]
		tail := sp.at + 1
		copy(b.Statements[tail+gap:end+gap], b.Statements[tail:end])
		gap -= len(sp.extra)
		copy(b.Statements[tail+gap:], sp.extra)
		end = tail
	}
}

// IsEmptyUnreachable reports whether the block holds only no-ops and ends
// in Unreachable.
func (b *BasicBlockData) IsEmptyUnreachable() bool {
	if _, ok := b.Terminator().Kind.(Unreachable); !ok {
		return false
	}
	for i := range b.Statements {
		if !b.Statements[i].IsNop() {
			return false
		}
	}
	return true
}

// VisitableSuccessors lists the blocks reachable from this block's
// terminator.
func (b *BasicBlockData) VisitableSuccessors() []BasicBlock {
	return b.Terminator().Successors()
}
