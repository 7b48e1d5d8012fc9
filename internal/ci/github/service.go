// Package github adapts GitHub Actions workflows to the call-graph builder.
package github

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/internal/discovery"
	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/validation"
	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

// Name identifies the dialect.
const Name = "github-actions"

// WorkflowDir is where GitHub looks for workflow files.
const WorkflowDir = ".github/workflows"

var actionFiles = []string{"action.yml", "action.yaml"}

// Service implements the GitHub Actions dialect.
type Service struct {
	opts    builder.Options
	builder *builder.Builder
}

// New creates a Service.
func New(opts builder.Options) *Service {
	s := &Service{opts: opts}
	s.builder = builder.New(s, opts.Logger)
	return s
}

func (s *Service) Name() string { return Name }

// IsDetected reports whether repoPath has at least one workflow file.
func (s *Service) IsDetected(repoPath string) bool {
	return discovery.Detected(s.GetWorkflows(repoPath))
}

// GetWorkflows returns .github/workflows/*.yml and *.yaml, sorted.
func (s *Service) GetWorkflows(repoPath string) ([]string, error) {
	return discovery.Dir(repoPath, WorkflowDir, ".yml", ".yaml")
}

// BuildCallGraphFromNode expands node and everything it references.
func (s *Service) BuildCallGraphFromNode(ctx context.Context, node *callgraph.Node) error {
	return s.builder.Build(ctx, node)
}

// Load parses a workflow or composite action file and returns its references.
func (s *Service) Load(_ context.Context, node *callgraph.Node) ([]reference.Descriptor, error) {
	if isActionFile(node.SourcePath) {
		doc, err := builder.LoadYAML(node, validation.KindGitHubAction, s.opts.Validator)
		if err != nil {
			return nil, err
		}
		return ActionReferences(doc.Root()), nil
	}

	doc, err := builder.LoadYAML(node, validation.KindGitHubWorkflow, s.opts.Validator)
	if err != nil {
		return nil, err
	}
	if len(Triggers(doc.Root())) == 0 {
		node.Issues = append(node.Issues, schema.ValidationIssue{
			Path:     "/on",
			Code:     schema.ErrCodeValidation,
			Message:  "workflow declares no triggers and never runs",
			Severity: schema.SeverityWarning,
		})
	}
	return WorkflowReferences(doc.Root()), nil
}

// Locate resolves `./path` against the caller's repository root and hands
// remote workflows to the configured fetcher. A local directory resolves to
// the composite action inside it.
func (s *Service) Locate(ctx context.Context, caller *callgraph.Node, d reference.Descriptor) (string, error) {
	if d.Type == callgraph.NodeTypeReusable {
		return builder.FetchReusable(ctx, s.opts.Fetcher, d)
	}

	p := filepath.Join(RepoRoot(caller.SourcePath), filepath.FromSlash(d.Ref.Path))
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", schema.NewError(schema.ErrCodeNotFound, "referenced file does not exist").WithPath(p).WithCause(err)
		}
		return "", schema.NewError(schema.ErrCodeIO, "cannot stat referenced file").WithPath(p).WithCause(err)
	}
	if !info.IsDir() {
		return p, nil
	}
	for _, name := range actionFiles {
		candidate := filepath.Join(p, name)
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", schema.NewError(schema.ErrCodeNotFound, "directory has no action.yml").WithPath(p)
}

// RepoRoot returns the repository root for a workflow or action file: the
// parent of the enclosing .github directory, else the nearest ancestor that
// has one, else the file's own directory.
func RepoRoot(sourcePath string) string {
	for dir := filepath.Dir(sourcePath); ; {
		if filepath.Base(dir) == ".github" {
			return filepath.Dir(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return discovery.FindRoot(sourcePath, ".github")
}

func isActionFile(p string) bool {
	return slices.Contains(actionFiles, filepath.Base(p))
}
