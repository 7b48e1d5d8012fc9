package diagram

import "github.com/rendis/cigraph/pkg/callgraph"

// NodeKind selects a node's shape. It mirrors callgraph.NodeType.
type NodeKind string

const (
	NodeKindInternal NodeKind = "internal"
	NodeKindReusable NodeKind = "reusable"
	NodeKindExternal NodeKind = "external"
	NodeKindUnknown  NodeKind = "unknown"
)

func kindOf(t callgraph.NodeType) NodeKind {
	switch t {
	case callgraph.NodeTypeInternal:
		return NodeKindInternal
	case callgraph.NodeTypeReusable:
		return NodeKindReusable
	case callgraph.NodeTypeExternal:
		return NodeKindExternal
	default:
		return NodeKindUnknown
	}
}

// DiagramModel is the intermediate representation used by all renderers.
// Nodes are in BFS order; Levels groups node IDs by depth.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node is one call-graph node.
type Node struct {
	ID    string
	Label string
	Kind  NodeKind
	Depth int
	// Status is set for unresolved nodes.
	Status *StatusOverlay
	// Children are the IDs of the node's callees, in order.
	Children []string
}

// StatusOverlay explains why a node is unresolved.
type StatusOverlay struct {
	Code  string
	Error string
}

// Edge is a caller to callee link, labelled with the calling context.
type Edge struct {
	From  string
	To    string
	Label string
}
