package callgraph

import (
	"encoding/json"

	"github.com/rendis/cigraph/pkg/schema"
)

// nodeJSON is the wire form of a Node. Documents are omitted; they can be
// reloaded from SourcePath.
type nodeJSON struct {
	Name       string                   `json:"name"`
	Type       NodeType                 `json:"type"`
	SourcePath string                   `json:"source_path,omitempty"`
	CallerPath string                   `json:"caller_path,omitempty"`
	Context    string                   `json:"context,omitempty"`
	Error      *errorJSON               `json:"error,omitempty"`
	Issues     []schema.ValidationIssue `json:"issues,omitempty"`
	Callees    []*Node                  `json:"callees,omitempty"`
}

type errorJSON struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// MarshalJSON encodes the node and, recursively, its callees.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		Name:       n.Name,
		Type:       n.Type,
		SourcePath: n.SourcePath,
		CallerPath: n.CallerPath,
		Context:    n.Context,
		Issues:     n.Issues,
		Callees:    n.Callees,
	}
	if n.Err != nil {
		out.Error = &errorJSON{Code: schema.CodeOf(n.Err), Message: n.Err.Error()}
	}
	return json.Marshal(out)
}

// MarshalJSON encodes the graph as its repository path, the root's callees
// and summary statistics.
func (g *CallGraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RepoPath string  `json:"repo_path"`
		Stats    Stats   `json:"stats"`
		Nodes    []*Node `json:"nodes"`
	}{
		RepoPath: g.RepoPath,
		Stats:    g.Stats(),
		Nodes:    g.Root.Callees,
	})
}
