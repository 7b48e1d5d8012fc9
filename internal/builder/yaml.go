package builder

import (
	"github.com/rendis/cigraph/internal/validation"
	"github.com/rendis/cigraph/internal/yamldoc"
	"github.com/rendis/cigraph/pkg/callgraph"
)

// LoadYAML parses node.SourcePath, attaches the document to node and records
// validator findings, with their source lines, as node issues. v may be nil.
func LoadYAML(node *callgraph.Node, kind validation.Kind, v validation.DocumentValidator) (*yamldoc.Document, error) {
	doc, err := yamldoc.ParseFile(node.SourcePath)
	if err != nil {
		return nil, err
	}
	node.Document = doc
	if v != nil {
		result := v.Validate(kind, doc.Value())
		root := doc.Root()
		result.Locate(func(p string) int { return root.Nearest(p).Line() })
		node.Issues = append(node.Issues, result.All()...)
	}
	return doc, nil
}
