package graph

// StronglyConnectedComponents finds the strongly connected components of g
// using Tarjan's algorithm. Every node appears in exactly one component.
// Components are returned in reverse topological order.
func StronglyConnectedComponents(g Graph) [][]int {
	t := newTarjan(g)
	for n := 0; n < g.NumNodes(); n++ {
		if t.indices[n] == -1 {
			t.strongConnect(n)
		}
	}
	return t.sccs
}

// IsCyclic reports whether a cycle is reachable from the start node.
// Self-loops count as cycles.
func IsCyclic(g Graph) bool {
	if g.NumNodes() == 0 {
		return false
	}
	t := newTarjan(g)
	t.strongConnect(g.StartNode())
	for _, scc := range t.sccs {
		if len(scc) > 1 || hasSelfLoop(g, scc[0]) {
			return true
		}
	}
	return false
}

func hasSelfLoop(g Graph, n int) bool {
	for _, s := range g.Successors(n) {
		if s == n {
			return true
		}
	}
	return false
}

type tarjan struct {
	g       Graph
	index   int
	stack   []int
	indices []int
	lowlink []int
	onStack []bool
	sccs    [][]int
}

func newTarjan(g Graph) *tarjan {
	n := g.NumNodes()
	t := &tarjan{
		g:       g,
		indices: make([]int, n),
		lowlink: make([]int, n),
		onStack: make([]bool, n),
	}
	for i := range t.indices {
		t.indices[i] = -1
	}
	return t
}

func (t *tarjan) strongConnect(v int) {
	t.indices[v] = t.index
	t.lowlink[v] = t.index
	t.index++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.Successors(v) {
		if t.indices[w] == -1 {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.indices[w])
		}
	}

	// v is the root of a component: pop it off the stack.
	if t.lowlink[v] == t.indices[v] {
		var scc []int
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}
