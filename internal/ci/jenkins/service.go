// Package jenkins adapts scripted and declarative Jenkins pipelines to the
// call-graph builder. Pipelines are Groovy programs, so references are found
// lexically: only literal arguments of the library, load and build steps are
// resolvable.
package jenkins

import (
	"context"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/internal/discovery"
	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/pkg/callgraph"
)

// Name identifies the dialect.
const Name = "jenkins"

// ConfigFile is the pipeline script at the repository root.
const ConfigFile = "Jenkinsfile"

// Service implements the Jenkins dialect.
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
	script, err := ParseFile(node.SourcePath)
	if err != nil {
		return nil, err
	}
	node.Document = script
	return References(script), nil
}

// Locate resolves load paths against the workspace root, the directory
// holding the Jenkinsfile above the caller.
func (s *Service) Locate(_ context.Context, caller *callgraph.Node, d reference.Descriptor) (string, error) {
	return builder.LocalFile(discovery.FindRoot(caller.SourcePath, ConfigFile), d.Ref.Path)
}
