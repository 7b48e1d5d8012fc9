package query

import (
	"context"

	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

// NodeData is the map a node is exposed as under the "node" key.
func NodeData(n *callgraph.Node, depth int) map[string]any {
	var doc any
	if n.Document != nil {
		doc = n.Document.Value()
	}
	return map[string]any{
		"name":        n.Name,
		"type":        string(n.Type),
		"source_path": n.SourcePath,
		"caller_path": n.CallerPath,
		"context":     n.Context,
		"resolved":    n.Resolved(),
		"error_code":  schema.CodeOf(n.Err),
		"depth":       depth,
		"callees":     len(n.Callees),
		"document":    doc,
	}
}

// Select returns, in BFS order, the nodes of cg for which expression
// evaluates to true. Non-boolean results are a VALIDATION_ERROR.
func Select(ctx context.Context, eng Engine, cg *callgraph.CallGraph, expression string) ([]*callgraph.Node, error) {
	var (
		out  []*callgraph.Node
		werr error
	)
	cg.Walk(func(n *callgraph.Node, depth int) bool {
		ok, err := match(ctx, eng, expression, n, depth)
		if err != nil {
			werr = err
			return false
		}
		if ok {
			out = append(out, n)
		}
		return true
	})
	if werr != nil {
		return nil, werr
	}
	return out, nil
}

// Any reports whether some node satisfies expression, stopping at the first.
func Any(ctx context.Context, eng Engine, cg *callgraph.CallGraph, expression string) (bool, error) {
	var (
		found bool
		werr  error
	)
	cg.Walk(func(n *callgraph.Node, depth int) bool {
		found, werr = match(ctx, eng, expression, n, depth)
		return werr == nil && !found
	})
	return found, werr
}

func match(ctx context.Context, eng Engine, expression string, n *callgraph.Node, depth int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	out, err := eng.Evaluate(ctx, expression, map[string]any{"node": NodeData(n, depth)})
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeValidation, "%s expression %q returned %T, want bool", eng.Name(), expression, out).
			WithDetails(map[string]any{"expression": expression})
	}
	return b, nil
}
