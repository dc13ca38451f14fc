package graph

// Graph is a directed graph with a distinguished start node.
type Graph interface {
	NumNodes() int
	StartNode() int
	Successors(n int) []int
}

// Predecessors returns, for every node, the nodes with an edge into it.
//
// Each list is in ascending source order and a source appears at most once
// per target, even when it has several parallel edges to it.
func Predecessors(g Graph) [][]int {
	n := g.NumNodes()
	preds := make([][]int, n)
	for src := 0; src < n; src++ {
		for _, dst := range g.Successors(src) {
			p := preds[dst]
			if len(p) > 0 && p[len(p)-1] == src {
				continue
			}
			preds[dst] = append(p, src)
		}
	}
	return preds
}

// ReversePostorder returns the nodes reachable from the start node in
// reverse postorder. Unreachable nodes are not included.
func ReversePostorder(g Graph) []int {
	n := g.NumNodes()
	if n == 0 {
		return nil
	}

	type frame struct {
		node int
		next int
	}

	visited := make([]bool, n)
	post := make([]int, 0, n)
	start := g.StartNode()
	stack := []frame{{node: start}}
	visited[start] = true

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := g.Successors(top.node)
		if top.next < len(succs) {
			s := succs[top.next]
			top.next++
			if !visited[s] {
				visited[s] = true
				stack = append(stack, frame{node: s})
			}
			continue
		}
		post = append(post, top.node)
		stack = stack[:len(stack)-1]
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Reachable reports which nodes can be reached from the start node.
func Reachable(g Graph) []bool {
	reach := make([]bool, g.NumNodes())
	for _, n := range ReversePostorder(g) {
		reach[n] = true
	}
	return reach
}
