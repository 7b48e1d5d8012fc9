package callgraph

// CallGraph owns the sentinel root of a call graph built for one repository
// and one CI dialect.
type CallGraph struct {
	Root     *Node
	RepoPath string
}

// New creates a CallGraph around root. A nil root is replaced by NewRoot().
func New(root *Node, repoPath string) *CallGraph {
	if root == nil {
		root = NewRoot()
	}
	return &CallGraph{Root: root, RepoPath: repoPath}
}

// BFS returns every node reachable from the root, excluding the root itself,
// in level order. Siblings keep insertion order, so identical input always
// yields an identical sequence.
func (g *CallGraph) BFS() []*Node {
	var out []*Node
	g.Walk(func(n *Node, _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Walk visits nodes in the same order as BFS, passing each node's depth
// (1 for the root's callees). Returning false stops the walk.
func (g *CallGraph) Walk(fn func(n *Node, depth int) bool) {
	if g == nil || g.Root == nil {
		return
	}

	type item struct {
		node  *Node
		depth int
	}
	queue := make([]item, 0, len(g.Root.Callees))
	for _, c := range g.Root.Callees {
		queue = append(queue, item{c, 1})
	}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if !fn(it.node, it.depth) {
			return
		}
		for _, c := range it.node.Callees {
			queue = append(queue, item{c, it.depth + 1})
		}
	}
}

// Stats summarises a graph by node type and resolution outcome.
type Stats struct {
	Total      int              `json:"total"`
	ByType     map[NodeType]int `json:"by_type"`
	Unresolved int              `json:"unresolved"`
	MaxDepth   int              `json:"max_depth"`
}

// Stats counts the nodes returned by BFS.
func (g *CallGraph) Stats() Stats {
	s := Stats{ByType: make(map[NodeType]int)}
	g.Walk(func(n *Node, depth int) bool {
		s.Total++
		s.ByType[n.Type]++
		if !n.Resolved() {
			s.Unresolved++
		}
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		return true
	})
	return s
}
