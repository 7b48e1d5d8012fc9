// Package circleci adapts CircleCI configs to the call-graph builder. Orbs are
// the only cross-file references and are never expanded, so graphs are one
// level deep.
package circleci

import (
	"context"
	"strings"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/internal/discovery"
	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/validation"
	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

// Name identifies the dialect.
const Name = "circleci"

// ConfigFile is the pipeline config relative to the repository root.
const ConfigFile = ".circleci/config.yml"

// Service implements the CircleCI dialect.
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
	doc, err := builder.LoadYAML(node, validation.KindCircleCI, s.opts.Validator)
	if err != nil {
		return nil, err
	}
	return References(doc.Root()), nil
}

// Locate is never reached: orbs classify as EXTERNAL or UNKNOWN.
func (s *Service) Locate(_ context.Context, _ *callgraph.Node, d reference.Descriptor) (string, error) {
	return "", schema.NewErrorf(schema.ErrCodeNotFound, "circleci reference %q has no local source", d.DisplayName())
}

// ClassifyOrb maps an orb declaration value onto the shared taxonomy.
// namespace/orb@version is EXTERNAL; volatile, dev: and missing versions
// float and are UNKNOWN.
func ClassifyOrb(raw, ctx string) reference.Descriptor {
	raw = strings.TrimSpace(raw)
	if reference.HasVariable(raw) || strings.Contains(raw, "<<") {
		return reference.Unknown(raw, ctx, "orb reference uses parameters")
	}
	target, version, ok := reference.SplitVersion(raw)
	if !ok || version == "" {
		return reference.Unknown(raw, ctx, "orb is not version-pinned")
	}
	if version == "volatile" || strings.HasPrefix(version, "dev:") {
		return reference.Unknown(raw, ctx, "orb version floats")
	}
	r, ok := reference.ParseRemote(target)
	if !ok || r.Path != "" {
		return reference.Unknown(raw, ctx, "orb is not namespace/name")
	}
	r.Version = version
	return reference.Descriptor{Raw: raw, Context: ctx, Type: callgraph.NodeTypeExternal, Ref: r}
}
