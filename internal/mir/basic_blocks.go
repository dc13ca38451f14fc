package mir

import (
	"iter"
	"sync"

	"github.com/roach88/mirkit/internal/graph"
)

// BasicBlocks owns the blocks of a body and memoizes graph facts derived
// from them.
//
// Read accessors return views that must not be modified. All mutation goes
// through AsMut, whose every method drops the caches before returning.
type BasicBlocks struct {
	blocks []BasicBlockData

	mu    sync.Mutex
	cache graphCache
}

type graphCache struct {
	predecessors [][]BasicBlock
	dominators   *graph.Dominators
	rpo          []BasicBlock
	isCyclic     *bool
}

// NewBasicBlocks takes ownership of blocks.
func NewBasicBlocks(blocks []BasicBlockData) *BasicBlocks {
	return &BasicBlocks{blocks: blocks}
}

// Len returns the number of blocks.
func (b *BasicBlocks) Len() int { return len(b.blocks) }

// Get returns the data of bb for reading. The pointer aliases the stored
// block; writing through it leaves stale predecessor, dominator and
// ordering caches behind. Use AsMut().Get to modify a block.
func (b *BasicBlocks) Get(bb BasicBlock) *BasicBlockData {
	return &b.blocks[bb]
}

// All iterates over the blocks in index order. The yielded data must not
// be modified; see Get.
func (b *BasicBlocks) All() iter.Seq2[BasicBlock, *BasicBlockData] {
	return func(yield func(BasicBlock, *BasicBlockData) bool) {
		for i := range b.blocks {
			if !yield(BasicBlock(i), &b.blocks[i]) {
				return
			}
		}
	}
}

// Indices iterates over every block index.
func (b *BasicBlocks) Indices() iter.Seq[BasicBlock] {
	return func(yield func(BasicBlock) bool) {
		for i := range b.blocks {
			if !yield(BasicBlock(i)) {
				return
			}
		}
	}
}

// Successors returns the successors of bb.
func (b *BasicBlocks) Successors(bb BasicBlock) []BasicBlock {
	return b.blocks[bb].Terminator().Successors()
}

// Predecessors returns, for each block, the blocks with an edge into it.
// Each list is ascending and free of duplicates.
func (b *BasicBlocks) Predecessors() [][]BasicBlock {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache.predecessors == nil {
		raw := graph.Predecessors(cfg{b})
		preds := make([][]BasicBlock, len(raw))
		for i, ps := range raw {
			preds[i] = toBlocks(ps)
		}
		b.cache.predecessors = preds
	}
	return b.cache.predecessors
}

// Dominators returns the dominator tree rooted at the start block.
func (b *BasicBlocks) Dominators() *Dominators {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache.dominators == nil {
		b.cache.dominators = graph.ComputeDominators(cfg{b})
	}
	return &Dominators{inner: b.cache.dominators}
}

// ReversePostorder returns the blocks reachable from the start block in
// reverse postorder.
func (b *BasicBlocks) ReversePostorder() []BasicBlock {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache.rpo == nil {
		b.cache.rpo = toBlocks(graph.ReversePostorder(cfg{b}))
	}
	return b.cache.rpo
}

// IsCyclic reports whether a cycle is reachable from the start block.
func (b *BasicBlocks) IsCyclic() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache.isCyclic == nil {
		c := graph.IsCyclic(cfg{b})
		b.cache.isCyclic = &c
	}
	return *b.cache.isCyclic
}

// Reachable reports, per block, whether it can be reached from the start
// block.
func (b *BasicBlocks) Reachable() []bool {
	return graph.Reachable(cfg{b})
}

// AsMut returns a write guard over the blocks. The caches are dropped
// immediately and again on every guard method call.
func (b *BasicBlocks) AsMut() BlocksMut {
	b.invalidate()
	return BlocksMut{b: b}
}

func (b *BasicBlocks) invalidate() {
	b.mu.Lock()
	b.cache = graphCache{}
	b.mu.Unlock()
}

// BlocksMut is the mutable view of a BasicBlocks.
type BlocksMut struct {
	b *BasicBlocks
}

// Get returns bb for modification.
func (m BlocksMut) Get(bb BasicBlock) *BasicBlockData {
	m.b.invalidate()
	return &m.b.blocks[bb]
}

// Push appends a block and returns its index.
func (m BlocksMut) Push(data BasicBlockData) BasicBlock {
	m.b.invalidate()
	m.b.blocks = append(m.b.blocks, data)
	return BasicBlock(len(m.b.blocks) - 1)
}

// Set replaces bb.
func (m BlocksMut) Set(bb BasicBlock, data BasicBlockData) {
	m.b.invalidate()
	m.b.blocks[bb] = data
}

// Truncate drops every block from n on.
func (m BlocksMut) Truncate(n int) {
	m.b.invalidate()
	m.b.blocks = m.b.blocks[:n]
}

// Swap exchanges two blocks. Edges are not rewritten.
func (m BlocksMut) Swap(a, bb BasicBlock) {
	m.b.invalidate()
	m.b.blocks[a], m.b.blocks[bb] = m.b.blocks[bb], m.b.blocks[a]
}

// Slice exposes the underlying blocks for bulk rewriting.
func (m BlocksMut) Slice() []BasicBlockData {
	m.b.invalidate()
	return m.b.blocks
}

// Len returns the number of blocks.
func (m BlocksMut) Len() int { return len(m.b.blocks) }

// cfg adapts BasicBlocks to graph.Graph.
type cfg struct{ b *BasicBlocks }

func (g cfg) NumNodes() int  { return len(g.b.blocks) }
func (g cfg) StartNode() int { return int(StartBlock) }

func (g cfg) Successors(n int) []int {
	succ := g.b.blocks[n].Terminator().Successors()
	out := make([]int, len(succ))
	for i, s := range succ {
		out[i] = int(s)
	}
	return out
}

func toBlocks(ns []int) []BasicBlock {
	if ns == nil {
		return nil
	}
	out := make([]BasicBlock, len(ns))
	for i, n := range ns {
		out[i] = BasicBlock(n)
	}
	return out
}

// Dominators is the dominator tree of a body's control-flow graph.
type Dominators struct {
	inner *graph.Dominators
}

// IsReachable reports whether bb is reachable from the start block.
func (d *Dominators) IsReachable(bb BasicBlock) bool {
	return d.inner.IsReachable(int(bb))
}

// ImmediateDominator returns the immediate dominator of bb. It reports
// false for the start block and for unreachable blocks.
func (d *Dominators) ImmediateDominator(bb BasicBlock) (BasicBlock, bool) {
	n, ok := d.inner.ImmediateDominator(int(bb))
	return BasicBlock(n), ok
}

// Dominates reports whether every path from the start block to b passes
// through a. Every reachable block dominates itself.
func (d *Dominators) Dominates(a, b BasicBlock) bool {
	return d.inner.Dominates(int(a), int(b))
}

// DominatorsOf lists the dominators of bb from bb up to the start block.
func (d *Dominators) DominatorsOf(bb BasicBlock) []BasicBlock {
	return toBlocks(d.inner.DominatorsOf(int(bb)))
}
