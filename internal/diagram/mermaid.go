package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", mermaidEscapeLabel(edge.Label))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n", edge.From, label, edge.To))
	}

	b.WriteString("\n")
	b.WriteString("    classDef unresolved fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef leaf fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")

	for _, node := range model.Nodes {
		switch {
		case node.Status != nil:
			b.WriteString(fmt.Sprintf("    class %s unresolved\n", node.ID))
		case node.Kind == NodeKindExternal:
			b.WriteString(fmt.Sprintf("    class %s leaf\n", node.ID))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a node definition whose shape encodes the kind:
// box for internal, subroutine for reusable, stadium for external and
// hexagon for unknown.
func mermaidNodeDef(node *Node) string {
	label := `"` + mermaidEscapeLabel(node.Label) + `"`
	switch node.Kind {
	case NodeKindReusable:
		return fmt.Sprintf("%s[[%s]]", node.ID, label)
	case NodeKindExternal:
		return fmt.Sprintf("%s([%s])", node.ID, label)
	case NodeKindUnknown:
		return fmt.Sprintf("%s{{%s}}", node.ID, label)
	default:
		return fmt.Sprintf("%s[%s]", node.ID, label)
	}
}

// mermaidEscapeLabel replaces characters that end a quoted label or an edge
// label.
func mermaidEscapeLabel(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "|", "#124;", "\n", " ")
	return r.Replace(s)
}
