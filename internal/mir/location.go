package mir

import "fmt"

// Location addresses a statement, or the terminator when StatementIndex
// equals the number of statements in the block.
type Location struct {
	Block          BasicBlock
	StatementIndex int
}

// LocationStart is the first statement of the entry block.
var LocationStart = Location{Block: StartBlock, StatementIndex: 0}

func (l Location) String() string {
	return fmt.Sprintf("%s[%d]", l.Block, l.StatementIndex)
}

// SuccessorWithinBlock returns the next location in the same block. The
// caller must not call it on a terminator location.
func (l Location) SuccessorWithinBlock() Location {
	return Location{Block: l.Block, StatementIndex: l.StatementIndex + 1}
}

// IsPredecessorOf reports whether l can execute before other. Within one
// block this is index order; across blocks it walks the predecessor graph
// backwards from other's block looking for l's block.
func (l Location) IsPredecessorOf(other Location, body *Body) bool {
	if l.Block == other.Block && l.StatementIndex < other.StatementIndex {
		return true
	}

	preds := body.BasicBlocks.Predecessors()

	queue := append([]BasicBlock(nil), preds[other.Block]...)
	visited := make(map[BasicBlock]struct{}, len(queue))

	for len(queue) > 0 {
		block := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if _, seen := visited[block]; seen {
			continue
		}
		visited[block] = struct{}{}

		if block == l.Block {
			return true
		}
		queue = append(queue, preds[block]...)
	}
	return false
}

// Dominates reports whether l dominates other: within one block this is
// index order, across blocks it asks the dominator tree.
func (l Location) Dominates(other Location, doms *Dominators) bool {
	if l.Block == other.Block {
		return l.StatementIndex <= other.StatementIndex
	}
	return doms.Dominates(l.Block, other.Block)
}
