package diagram

import (
	"fmt"
	"strings"
)

// kindTag is the short type marker printed after each label.
func kindTag(k NodeKind) string {
	switch k {
	case NodeKindInternal:
		return "INTERNAL"
	case NodeKindReusable:
		return "REUSABLE"
	case NodeKindExternal:
		return "EXTERNAL"
	default:
		return "UNKNOWN"
	}
}

// RenderTree renders a DiagramModel as an indented tree:
//
//	ci.yml [INTERNAL]
//	├── actions/checkout@v4 [EXTERNAL]
//	└── org/repo/.github/workflows/build.yml@v2 [REUSABLE] !FETCH_FAILED
func RenderTree(model *DiagramModel) string {
	var b strings.Builder
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n", model.Title))
	}
	for _, root := range model.Roots() {
		b.WriteString(treeLine(root))
		b.WriteByte('\n')
		renderChildren(&b, model, root, "")
	}
	return b.String()
}

func renderChildren(b *strings.Builder, model *DiagramModel, node *Node, prefix string) {
	for i, id := range node.Children {
		child := findNode(model.Nodes, id)
		if child == nil {
			continue
		}
		branch, next := "├── ", "│   "
		if i == len(node.Children)-1 {
			branch, next = "└── ", "    "
		}
		b.WriteString(prefix + branch + treeLine(child))
		b.WriteByte('\n')
		renderChildren(b, model, child, prefix+next)
	}
}

func treeLine(n *Node) string {
	line := fmt.Sprintf("%s [%s]", firstLine(n.Label), kindTag(n.Kind))
	if n.Status != nil {
		line += " !" + n.Status.Code
	}
	return line
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
