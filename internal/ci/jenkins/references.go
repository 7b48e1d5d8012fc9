package jenkins

import (
	"fmt"
	"strings"

	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/pkg/callgraph"
)

// References classifies the calls of a script in source order:
//
//	@Library('lib@ref'), library 'lib@ref'   EXTERNAL (UNKNOWN if unpinned)
//	load 'path'                              INTERNAL
//	build job: 'name'                        UNKNOWN (resolved by the controller)
//
// Interpolated or computed arguments are UNKNOWN.
func References(s *Script) []reference.Descriptor {
	var out []reference.Descriptor
	for _, c := range s.Calls {
		ctx := fmt.Sprintf("line %d", c.Line)
		switch c.Name {
		case "Library":
			if len(c.Args) == 0 {
				out = append(out, reference.Unknown("@Library", ctx, "annotation names no library"))
			}
			for _, a := range c.Args {
				out = append(out, libraries(a, ctx)...)
			}
		case "library":
			a, ok := c.Arg("identifier")
			if !ok {
				out = append(out, reference.Unknown("library", ctx, "library step names no library"))
				continue
			}
			out = append(out, libraries(a, ctx)...)
		case "load":
			a, ok := c.Arg("path")
			if !ok {
				out = append(out, reference.Unknown("load", ctx, "load step has no path"))
				continue
			}
			out = append(out, load(a, ctx))
		case "build":
			a, ok := c.Arg("job")
			if !ok {
				out = append(out, reference.Unknown("build", ctx, "build step has no job"))
				continue
			}
			out = append(out, reference.Unknown(argText(a), ctx, "downstream jobs are resolved by the Jenkins controller"))
		}
	}
	return out
}

func libraries(a Arg, ctx string) []reference.Descriptor {
	if !a.Literal() {
		return []reference.Descriptor{reference.Unknown(a.Expr, ctx, "library is computed at runtime")}
	}
	out := make([]reference.Descriptor, 0, len(a.Strings))
	for _, s := range a.Strings {
		out = append(out, ClassifyLibrary(s, ctx))
	}
	return out
}

// ClassifyLibrary maps a shared library identifier "name@ref" onto the taxonomy.
// Without a ref the controller's default version is used, which is not
// knowable from the repository.
func ClassifyLibrary(s Str, ctx string) reference.Descriptor {
	raw := strings.TrimSpace(s.Text)
	if s.Interpolated || reference.HasVariable(raw) {
		return reference.Unknown(raw, ctx, "library identifier is interpolated")
	}
	name, version, ok := reference.SplitVersion(raw)
	if !ok || version == "" {
		return reference.Unknown(raw, ctx, "library is not version-pinned")
	}
	if !reference.ValidSegment(name) {
		return reference.Unknown(raw, ctx, "invalid library name")
	}
	return reference.Descriptor{
		Raw:     raw,
		Context: ctx,
		Type:    callgraph.NodeTypeExternal,
		Ref:     reference.Ref{Path: name, Version: version},
	}
}

func load(a Arg, ctx string) reference.Descriptor {
	if !a.Literal() || len(a.Strings) != 1 {
		return reference.Unknown(argText(a), ctx, "load path is computed at runtime")
	}
	s := a.Strings[0]
	if s.Interpolated || reference.HasVariable(s.Text) {
		return reference.Unknown(s.Text, ctx, "load path is interpolated")
	}
	p, ok := reference.LocalPath(s.Text)
	if !ok {
		return reference.Unknown(s.Text, ctx, "load path escapes the workspace")
	}
	return reference.Descriptor{Raw: s.Text, Context: ctx, Type: callgraph.NodeTypeInternal, Ref: reference.Ref{Path: p}}
}

func argText(a Arg) string {
	if a.Literal() {
		texts := make([]string, 0, len(a.Strings))
		for _, s := range a.Strings {
			texts = append(texts, s.Text)
		}
		return strings.Join(texts, ",")
	}
	return a.Expr
}
