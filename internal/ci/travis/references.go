package travis

import (
	"fmt"
	"strings"

	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/yamldoc"
	"github.com/rendis/cigraph/pkg/callgraph"
)

// DefaultRef is used for remote imports that do not pin a ref.
const DefaultRef = "HEAD"

// References returns the build config imports of a Travis CI file in
// document order. import may be a single entry or a list; each entry is
// either a source string or a mapping with a source key.
func References(root yamldoc.Value) []reference.Descriptor {
	imp := root.Get("import")
	switch imp.Kind() {
	case yamldoc.KindNull:
		return nil
	case yamldoc.KindSequence:
		items := imp.Items()
		out := make([]reference.Descriptor, 0, len(items))
		for i, item := range items {
			out = append(out, entry(item, fmt.Sprintf("import[%d]", i)))
		}
		return out
	default:
		return []reference.Descriptor{entry(imp, "import")}
	}
}

func entry(v yamldoc.Value, ctx string) reference.Descriptor {
	src, ok := v.Str()
	if !ok {
		src, ok = v.Get("source").Str()
	}
	if !ok || strings.TrimSpace(src) == "" {
		return reference.Unknown("", ctx, "import has no source")
	}
	return Classify(strings.TrimSpace(src), ctx)
}

// Classify maps an import source onto the shared taxonomy:
//
//	owner/repo:path[@ref]  REUSABLE (ref defaults to HEAD)
//	path                   INTERNAL, relative to the repository root
func Classify(src, ctx string) reference.Descriptor {
	if reference.HasVariable(src) {
		return reference.Unknown(src, ctx, "import source uses variables")
	}

	repo, file, remote := strings.Cut(src, ":")
	if !remote {
		if strings.Contains(src, "@") {
			return reference.Unknown(src, ctx, "local imports cannot pin a ref")
		}
		p, ok := reference.LocalPath(src)
		if !ok {
			return reference.Unknown(src, ctx, "local import escapes the repository")
		}
		return reference.Descriptor{Raw: src, Context: ctx, Type: callgraph.NodeTypeInternal, Ref: reference.Ref{Path: p}}
	}

	ver := DefaultRef
	if target, v, ok := reference.SplitVersion(file); ok {
		if v == "" {
			return reference.Unknown(src, ctx, "empty ref")
		}
		file, ver = target, v
	}
	r, ok := reference.ParseRemote(repo)
	if !ok || r.Path != "" {
		return reference.Unknown(src, ctx, "import repository is not owner/repo")
	}
	p, ok := reference.LocalPath(file)
	if !ok {
		return reference.Unknown(src, ctx, "import path is empty or escapes the repository")
	}
	r.Path, r.Version = p, ver
	return reference.Descriptor{
		Raw:     src,
		Name:    r.String(),
		Context: ctx,
		Type:    callgraph.NodeTypeReusable,
		Ref:     r,
	}
}
