// Package ci is the dialect-independent face of the call-graph builder. The
// analysis layer talks to dialects only through Service; adapters live in
// the subpackages and are wired together by DefaultRegistry.
package ci

import (
	"context"
	"path/filepath"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/pkg/callgraph"
)

// Service is one CI dialect: discovery plus graph construction.
type Service interface {
	// Name is the stable dialect identifier, e.g. "github-actions".
	Name() string
	// IsDetected reports whether GetWorkflows would return at least one file.
	IsDetected(repoPath string) bool
	// GetWorkflows returns the dialect's configuration files, sorted. Absent
	// conventions yield an empty slice; only I/O faults are errors.
	GetWorkflows(repoPath string) ([]string, error)
	// BuildCallGraphFromNode expands node in place. Resolution failures are
	// recorded on nodes; the only error is the context's.
	BuildCallGraphFromNode(ctx context.Context, node *callgraph.Node) error
}

// BuildCallGraph discovers the dialect's files under repoPath, seeds one
// INTERNAL node per file under a NONE root and expands each in discovery
// order. A cancelled build returns the partial graph along with ctx.Err();
// files it never reached are marked CANCELLED.
func BuildCallGraph(ctx context.Context, svc Service, repoPath string) (*callgraph.CallGraph, error) {
	files, err := svc.GetWorkflows(repoPath)
	if err != nil {
		return nil, err
	}
	return buildFiles(ctx, svc, repoPath, files)
}

func buildFiles(ctx context.Context, svc Service, repoPath string, files []string) (*callgraph.CallGraph, error) {
	root := callgraph.NewRoot()
	cg := callgraph.New(root, repoPath)
	for _, f := range files {
		root.AddCallee(&callgraph.Node{
			Name:       filepath.Base(f),
			Type:       callgraph.NodeTypeInternal,
			SourcePath: f,
		})
	}
	for i, n := range root.Callees {
		if err := svc.BuildCallGraphFromNode(ctx, n); err != nil {
			for _, rest := range root.Callees[i+1:] {
				rest.MarkUnresolved(builder.Cancelled(err))
			}
			return cg, err
		}
	}
	return cg, nil
}
