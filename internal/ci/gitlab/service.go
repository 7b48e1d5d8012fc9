// Package gitlab adapts GitLab CI pipelines to the call-graph builder.
package gitlab

import (
	"context"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/internal/discovery"
	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/validation"
	"github.com/rendis/cigraph/pkg/callgraph"
)

// Name identifies the dialect.
const Name = "gitlab-ci"

// ConfigFile is the pipeline entry point at the repository root.
const ConfigFile = ".gitlab-ci.yml"

// Service implements the GitLab CI dialect.
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

func (s *Service) IsDetected(repoPath string) bool {
	return discovery.Detected(s.GetWorkflows(repoPath))
}

// GetWorkflows returns the root pipeline file, if present.
func (s *Service) GetWorkflows(repoPath string) ([]string, error) {
	return discovery.File(repoPath, ConfigFile)
}

func (s *Service) BuildCallGraphFromNode(ctx context.Context, node *callgraph.Node) error {
	return s.builder.Build(ctx, node)
}

// Load parses a pipeline or included file.
func (s *Service) Load(_ context.Context, node *callgraph.Node) ([]reference.Descriptor, error) {
	doc, err := builder.LoadYAML(node, validation.KindGitLab, s.opts.Validator)
	if err != nil {
		return nil, err
	}
	return References(doc.Root()), nil
}

// Locate resolves local includes against the directory holding
// .gitlab-ci.yml above the caller and project includes through the fetcher.
func (s *Service) Locate(ctx context.Context, caller *callgraph.Node, d reference.Descriptor) (string, error) {
	if d.Type == callgraph.NodeTypeReusable {
		return builder.FetchReusable(ctx, s.opts.Fetcher, d)
	}
	return builder.LocalFile(discovery.FindRoot(caller.SourcePath, ConfigFile), d.Ref.Path)
}
