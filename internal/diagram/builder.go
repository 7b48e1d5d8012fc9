// Package diagram renders call graphs for debugging: Mermaid flowcharts, an
// indented tree, and PNG images through graphviz.
package diagram

import (
	"fmt"

	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

// Build converts cg into a DiagramModel. IDs are n0, n1, ... in BFS order, so
// the same graph always yields the same model.
func Build(cg *callgraph.CallGraph, title string) *DiagramModel {
	model := &DiagramModel{Title: title}
	if cg == nil || cg.Root == nil {
		return model
	}

	index := make(map[*callgraph.Node]*Node)
	cg.Walk(func(n *callgraph.Node, depth int) bool {
		node := &Node{
			ID:    fmt.Sprintf("n%d", len(model.Nodes)),
			Label: n.Name,
			Kind:  kindOf(n.Type),
			Depth: depth,
		}
		if n.Err != nil {
			node.Status = &StatusOverlay{Code: schema.CodeOf(n.Err), Error: n.Err.Error()}
		}
		index[n] = node
		model.Nodes = append(model.Nodes, node)

		for len(model.Levels) < depth {
			model.Levels = append(model.Levels, nil)
		}
		model.Levels[depth-1] = append(model.Levels[depth-1], node.ID)
		return true
	})

	// Edges follow BFS order of the caller, then callee order.
	cg.Walk(func(n *callgraph.Node, _ int) bool {
		from := index[n]
		for _, c := range n.Callees {
			to := index[c]
			model.Edges = append(model.Edges, Edge{From: from.ID, To: to.ID, Label: c.Context})
			from.Children = append(from.Children, to.ID)
		}
		return true
	})
	return model
}

// Roots returns the depth-1 nodes.
func (m *DiagramModel) Roots() []*Node {
	if len(m.Levels) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(m.Levels[0]))
	for _, id := range m.Levels[0] {
		out = append(out, findNode(m.Nodes, id))
	}
	return out
}

// findNode looks up a node by ID in the model's node list.
func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
