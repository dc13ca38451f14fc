package graph

// Dominators is the dominator tree of a graph rooted at its start node.
//
// Unreachable nodes are part of the result: they have no immediate
// dominator, are dominated only by themselves and dominate nothing else.
type Dominators struct {
	start int
	idom  []int // -1 for unreachable nodes, start for the start node
	pre   []int // dominator-tree DFS entry time, 0 for unreachable nodes
	post  []int // dominator-tree DFS exit time, 0 for unreachable nodes
}

// ComputeDominators builds the dominator tree of g using the iterative
// algorithm of Cooper, Harvey and Kennedy over reverse postorder.
func ComputeDominators(g Graph) *Dominators {
	n := g.NumNodes()
	d := &Dominators{
		start: g.StartNode(),
		idom:  make([]int, n),
		pre:   make([]int, n),
		post:  make([]int, n),
	}
	for i := range d.idom {
		d.idom[i] = -1
	}
	if n == 0 {
		return d
	}

	rpo := ReversePostorder(g)
	order := make([]int, n)
	for i := range order {
		order[i] = -1
	}
	for i, v := range rpo {
		order[v] = i
	}

	preds := make([][]int, n)
	for _, src := range rpo {
		for _, dst := range g.Successors(src) {
			preds[dst] = append(preds[dst], src)
		}
	}

	intersect := func(a, b int) int {
		for a != b {
			for order[a] > order[b] {
				a = d.idom[a]
			}
			for order[b] > order[a] {
				b = d.idom[b]
			}
		}
		return a
	}

	d.idom[d.start] = d.start
	for changed := true; changed; {
		changed = false
		for _, v := range rpo[1:] {
			newIdom := -1
			for _, p := range preds[v] {
				if d.idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom != d.idom[v] {
				d.idom[v] = newIdom
				changed = true
			}
		}
	}

	d.number(rpo)
	return d
}

// number assigns entry/exit times on the dominator tree so that dominance
// queries are answered in constant time.
func (d *Dominators) number(rpo []int) {
	children := make([][]int, len(d.idom))
	for _, v := range rpo {
		if v == d.start {
			continue
		}
		p := d.idom[v]
		children[p] = append(children[p], v)
	}

	clock := 0
	type frame struct {
		node int
		next int
	}
	clock++
	d.pre[d.start] = clock
	stack := []frame{{node: d.start}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(children[top.node]) {
			c := children[top.node][top.next]
			top.next++
			clock++
			d.pre[c] = clock
			stack = append(stack, frame{node: c})
			continue
		}
		clock++
		d.post[top.node] = clock
		stack = stack[:len(stack)-1]
	}
}

// NumNodes returns the number of nodes the tree was computed for.
func (d *Dominators) NumNodes() int {
	return len(d.idom)
}

// IsReachable reports whether n is reachable from the start node.
func (d *Dominators) IsReachable(n int) bool {
	return d.idom[n] != -1
}

// ImmediateDominator returns the immediate dominator of n. The second
// result is false for the start node and for unreachable nodes.
func (d *Dominators) ImmediateDominator(n int) (int, bool) {
	if n == d.start || d.idom[n] == -1 {
		return 0, false
	}
	return d.idom[n], true
}

// Dominates reports whether every path from the start node to b passes
// through a. Every node dominates itself.
func (d *Dominators) Dominates(a, b int) bool {
	if a == b {
		return true
	}
	if !d.IsReachable(a) || !d.IsReachable(b) {
		return false
	}
	return d.pre[a] <= d.pre[b] && d.post[b] <= d.post[a]
}

// DominatorsOf returns the dominators of n, starting with n itself and
// walking up to the start node. Unreachable nodes return only themselves.
func (d *Dominators) DominatorsOf(n int) []int {
	chain := []int{n}
	for {
		p, ok := d.ImmediateDominator(n)
		if !ok {
			return chain
		}
		chain = append(chain, p)
		n = p
	}
}
