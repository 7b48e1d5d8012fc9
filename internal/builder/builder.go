// Package builder grows a call graph from one expandable node. It owns the
// dialect-independent part of construction (recursion order, the active-path
// cycle guard, failure recording, cancellation) and delegates parsing and
// reference classification to an Expander.
package builder

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"slices"

	"github.com/rendis/cigraph/internal/logging"
	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/reusable"
	"github.com/rendis/cigraph/internal/validation"
	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

// Expander is the dialect-specific half of construction.
type Expander interface {
	// Load parses node.SourcePath, stores the result in node.Document (and any
	// findings in node.Issues) and returns the references it makes in source
	// order.
	Load(ctx context.Context, node *callgraph.Node) ([]reference.Descriptor, error)
	// Locate maps an INTERNAL or REUSABLE descriptor found in caller to a
	// local file.
	Locate(ctx context.Context, caller *callgraph.Node, d reference.Descriptor) (string, error)
}

// Options configure a dialect adapter. The zero value is usable: logs are
// discarded, REUSABLE references fail with FETCH_FAILED and documents are
// not validated.
type Options struct {
	Logger    *slog.Logger
	Fetcher   reusable.Fetcher
	Validator validation.DocumentValidator
}

// Builder expands nodes with an Expander. It holds no per-build state and is
// safe for concurrent use on distinct graphs.
type Builder struct {
	exp    Expander
	logger *slog.Logger
}

// New creates a Builder.
func New(exp Expander, logger *slog.Logger) *Builder {
	return &Builder{exp: exp, logger: logging.OrDiscard(logger)}
}

// Build expands node depth-first, attaching callees in source order. Failures
// are recorded on the failing node and never returned; the only error is the
// context's, after marking the node whose expansion was interrupted.
func (b *Builder) Build(ctx context.Context, node *callgraph.Node) error {
	if node == nil {
		return nil
	}
	if node.SourcePath != "" {
		ctx = logging.WithWorkflow(ctx, node.SourcePath)
	}
	return b.expand(ctx, node, nil)
}

// expand processes one node. active is the stack of source paths currently
// being expanded above node; it is never shared between sibling branches.
func (b *Builder) expand(ctx context.Context, node *callgraph.Node, active []string) error {
	if err := ctx.Err(); err != nil {
		node.MarkUnresolved(Cancelled(err))
		return err
	}
	if !node.Type.Expandable() || node.Err != nil {
		return nil
	}
	if node.SourcePath == "" {
		b.unresolved(ctx, node, schema.NewError(schema.ErrCodeNotFound, "node has no local source"))
		return nil
	}

	key := filepath.Clean(node.SourcePath)
	if slices.Contains(active, key) {
		b.unresolved(ctx, node, schema.NewError(schema.ErrCodeCycleDetected, "workflow is already being expanded on this path").
			WithPath(node.SourcePath).
			WithDetails(map[string]any{"path": slices.Clone(active)}))
		return nil
	}

	refs, err := b.exp.Load(ctx, node)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			node.MarkUnresolved(Cancelled(ctxErr))
			return ctxErr
		}
		b.unresolved(ctx, node, err)
		return nil
	}

	active = append(active, key)
	for i, d := range refs {
		child := attach(node, d)
		if !d.Type.Expandable() {
			continue
		}

		src, err := b.exp.Locate(ctx, node, d)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				child.MarkUnresolved(Cancelled(ctxErr))
				abandon(node, refs[i+1:], ctxErr)
				return ctxErr
			}
			b.unresolved(ctx, child, err)
			continue
		}
		child.SourcePath = src
		if d.Type == callgraph.NodeTypeInternal {
			child.Name = filepath.Base(src)
		}

		if err := b.expand(ctx, child, active); err != nil {
			abandon(node, refs[i+1:], err)
			return err
		}
	}
	return nil
}

// attach adds the leaf for d under node. INTERNAL leaves are named after
// their reference path until a file is located.
func attach(node *callgraph.Node, d reference.Descriptor) *callgraph.Node {
	child := d.Leaf(node.SourcePath)
	if d.Type == callgraph.NodeTypeInternal && d.Ref.Path != "" {
		child.Name = path.Base(d.Ref.Path)
	}
	node.AddCallee(child)
	return child
}

// abandon attaches the references an interrupted expansion never reached.
// Expandable ones are marked cancelled so they do not read as resolved.
func abandon(node *callgraph.Node, rest []reference.Descriptor, err error) {
	for _, d := range rest {
		child := attach(node, d)
		if d.Type.Expandable() {
			child.MarkUnresolved(Cancelled(err))
		}
	}
}

func (b *Builder) unresolved(ctx context.Context, node *callgraph.Node, err error) {
	node.MarkUnresolved(err)
	b.logger.DebugContext(ctx, "node unresolved",
		slog.String("node", node.String()),
		slog.String("caller", node.CallerPath),
		slog.String("code", schema.CodeOf(err)),
		slog.String("error", err.Error()))
}

// Cancelled wraps a context error as CANCELLED. errors.Is still matches the
// context error.
func Cancelled(err error) error {
	return schema.NewError(schema.ErrCodeCancelled, "construction cancelled").WithCause(err)
}

// FetchReusable resolves a REUSABLE descriptor through f. A nil fetcher and
// any non-context failure become FETCH_FAILED.
func FetchReusable(ctx context.Context, f reusable.Fetcher, d reference.Descriptor) (string, error) {
	if f == nil {
		return "", schema.NewError(schema.ErrCodeFetchFailed, "no fetcher configured for reusable workflows").
			WithDetails(map[string]any{"reference": d.DisplayName()})
	}
	p, err := f.Fetch(ctx, d.Ref)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	if schema.CodeOf(err) == schema.ErrCodeFetchFailed {
		return "", err
	}
	return "", schema.NewError(schema.ErrCodeFetchFailed, "fetching reusable workflow failed").
		WithDetails(map[string]any{"reference": d.DisplayName()}).
		WithCause(err)
}
