// Package travis adapts Travis CI build configs to the call-graph builder.
package travis

import (
	"context"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/internal/discovery"
	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/validation"
	"github.com/rendis/cigraph/pkg/callgraph"
)

// Name identifies the dialect.
const Name = "travis-ci"

// ConfigFile is the build config at the repository root.
const ConfigFile = ".travis.yml"

// Service implements the Travis CI dialect.
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

func (s *Service) GetWorkflows(repoPath string) ([]string, error) {
	return discovery.File(repoPath, ConfigFile)
}

func (s *Service) BuildCallGraphFromNode(ctx context.Context, node *callgraph.Node) error {
	return s.builder.Build(ctx, node)
}

func (s *Service) Load(_ context.Context, node *callgraph.Node) ([]reference.Descriptor, error) {
	doc, err := builder.LoadYAML(node, validation.KindTravis, s.opts.Validator)
	if err != nil {
		return nil, err
	}
	return References(doc.Root()), nil
}

// Locate resolves local imports against the directory holding .travis.yml
// above the caller. Imports inside a fetched config fall back to that
// config's own directory.
func (s *Service) Locate(ctx context.Context, caller *callgraph.Node, d reference.Descriptor) (string, error) {
	if d.Type == callgraph.NodeTypeReusable {
		return builder.FetchReusable(ctx, s.opts.Fetcher, d)
	}
	return builder.LocalFile(discovery.FindRoot(caller.SourcePath, ConfigFile), d.Ref.Path)
}
