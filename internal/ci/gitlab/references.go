package gitlab

import (
	"fmt"
	"strings"

	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/yamldoc"
	"github.com/rendis/cigraph/pkg/callgraph"
)

// DefaultRef is used for project includes that do not pin a ref.
const DefaultRef = "HEAD"

// Top-level keys that are global settings rather than jobs.
var reserved = map[string]bool{
	"default":       true,
	"stages":        true,
	"variables":     true,
	"workflow":      true,
	"image":         true,
	"services":      true,
	"cache":         true,
	"before_script": true,
	"after_script":  true,
	"types":         true,
}

// References extracts, in document order, the includes of a GitLab CI
// configuration and the child or downstream pipelines its jobs trigger.
// Hidden jobs (".name") are templates and are skipped.
func References(root yamldoc.Value) []reference.Descriptor {
	var out []reference.Descriptor
	for _, p := range root.Pairs() {
		switch {
		case p.Key == "include":
			out = append(out, includes(p.Value, "include")...)
		case reserved[p.Key] || strings.HasPrefix(p.Key, "."):
		default:
			if trigger := p.Value.Get("trigger"); !trigger.IsNull() {
				out = append(out, triggers(trigger, p.Key+".trigger")...)
			}
		}
	}
	return out
}

func includes(v yamldoc.Value, ctx string) []reference.Descriptor {
	if v.CustomTag() {
		return []reference.Descriptor{reference.Unknown(v.Tag(), ctx, "tagged include is not resolved")}
	}
	if v.Kind() != yamldoc.KindSequence {
		return includeEntry(v, ctx)
	}
	var out []reference.Descriptor
	for i, item := range v.Items() {
		out = append(out, includeEntry(item, fmt.Sprintf("%s[%d]", ctx, i))...)
	}
	return out
}

func includeEntry(v yamldoc.Value, ctx string) []reference.Descriptor {
	if v.CustomTag() {
		return []reference.Descriptor{reference.Unknown(v.Tag(), ctx, "tagged include is not resolved")}
	}
	switch v.Kind() {
	case yamldoc.KindScalar:
		s, _ := v.Str()
		if isURL(s) {
			return []reference.Descriptor{remote(s, ctx)}
		}
		return []reference.Descriptor{local(s, ctx)}
	case yamldoc.KindMapping:
		return includeMap(v, ctx)
	default:
		return []reference.Descriptor{reference.Unknown("", ctx, "include entry is empty")}
	}
}

func includeMap(v yamldoc.Value, ctx string) []reference.Descriptor {
	one := func(d reference.Descriptor) []reference.Descriptor { return []reference.Descriptor{d} }

	if s, ok := v.Get("local").Str(); ok {
		if isURL(s) {
			return one(reference.Unknown(s, ctx, "local include is a URL"))
		}
		return one(local(s, ctx))
	}
	if project, ok := v.Get("project").Str(); ok {
		return projectIncludes(project, v, ctx)
	}
	if s, ok := v.Get("remote").Str(); ok {
		return one(remote(s, ctx))
	}
	if s, ok := v.Get("template").Str(); ok {
		return one(external(s, ctx, reference.Ref{Path: s}))
	}
	if s, ok := v.Get("component").Str(); ok {
		return one(component(s, ctx))
	}
	if s, ok := v.Get("artifact").Str(); ok {
		return one(reference.Unknown(s, ctx, "artifact include is generated at runtime"))
	}
	return one(reference.Unknown("", ctx, "unrecognised include form"))
}

// projectIncludes yields one REUSABLE descriptor per file, named
// project/file@ref.
func projectIncludes(project string, v yamldoc.Value, ctx string) []reference.Descriptor {
	ref := DefaultRef
	if r, ok := v.Get("ref").Str(); ok && r != "" {
		ref = r
	}

	type fileAt struct{ path, ctx string }
	var files []fileAt
	fv := v.Get("file")
	switch fv.Kind() {
	case yamldoc.KindScalar:
		s, _ := fv.Str()
		files = append(files, fileAt{s, ctx})
	case yamldoc.KindSequence:
		for i, item := range fv.Items() {
			s, _ := item.Str()
			files = append(files, fileAt{s, fmt.Sprintf("%s.file[%d]", ctx, i)})
		}
	default:
		return []reference.Descriptor{reference.Unknown(project, ctx, "project include has no file")}
	}

	out := make([]reference.Descriptor, 0, len(files))
	for _, f := range files {
		name := project + "/" + strings.TrimPrefix(f.path, "/") + "@" + ref
		if reference.HasVariable(project) || reference.HasVariable(f.path) || reference.HasVariable(ref) {
			out = append(out, reference.Unknown(name, f.ctx, "project include uses variables"))
			continue
		}
		r, ok := ParseProject(project)
		if !ok {
			out = append(out, reference.Unknown(name, f.ctx, "invalid project path"))
			continue
		}
		p, ok := reference.LocalPath(f.path)
		if !ok {
			out = append(out, reference.Unknown(name, f.ctx, "invalid include file"))
			continue
		}
		r.Path, r.Version = p, ref
		out = append(out, reference.Descriptor{
			Raw:     name,
			Context: f.ctx,
			Type:    callgraph.NodeTypeReusable,
			Ref:     r,
		})
	}
	return out
}

func triggers(v yamldoc.Value, ctx string) []reference.Descriptor {
	if s, ok := v.Str(); ok {
		return []reference.Descriptor{downstream(s, "", ctx)}
	}
	if v.Kind() != yamldoc.KindMapping {
		return []reference.Descriptor{reference.Unknown("", ctx, "unrecognised trigger")}
	}

	var out []reference.Descriptor
	if inc := v.Get("include"); !inc.IsNull() {
		out = append(out, includes(inc, ctx+".include")...)
	}
	if project, ok := v.Get("project").Str(); ok {
		branch, _ := v.Get("branch").Str()
		out = append(out, downstream(project, branch, ctx+".project"))
	}
	if len(out) == 0 {
		out = append(out, reference.Unknown("", ctx, "trigger has neither include nor project"))
	}
	return out
}

// downstream describes a multi-project pipeline trigger. The downstream
// project runs its own configuration and is never expanded.
func downstream(project, branch, ctx string) reference.Descriptor {
	raw := project
	if branch != "" {
		raw += "@" + branch
	}
	if reference.HasVariable(raw) {
		return reference.Unknown(raw, ctx, "downstream project uses variables")
	}
	r, ok := ParseProject(project)
	if !ok {
		return reference.Unknown(raw, ctx, "invalid project path")
	}
	r.Version = branch
	return external(raw, ctx, r)
}

func local(s, ctx string) reference.Descriptor {
	switch {
	case reference.HasVariable(s):
		return reference.Unknown(s, ctx, "local include uses variables")
	case strings.ContainsAny(s, "*?["):
		return reference.Unknown(s, ctx, "wildcard includes are not expanded")
	}
	p, ok := reference.LocalPath(s)
	if !ok {
		return reference.Unknown(s, ctx, "local include escapes the repository")
	}
	return reference.Descriptor{Raw: s, Context: ctx, Type: callgraph.NodeTypeInternal, Ref: reference.Ref{Path: p}}
}

func remote(s, ctx string) reference.Descriptor {
	if reference.HasVariable(s) {
		return reference.Unknown(s, ctx, "remote include uses variables")
	}
	return external(s, ctx, reference.Ref{Path: s})
}

// component accepts any version-pinned component address; the host part is
// commonly $CI_SERVER_FQDN, which does not affect pinning.
func component(s, ctx string) reference.Descriptor {
	target, version, ok := reference.SplitVersion(s)
	if !ok || version == "" || reference.HasVariable(version) {
		return reference.Unknown(s, ctx, "component is not version-pinned")
	}
	return external(s, ctx, reference.Ref{Path: target, Version: version})
}

func external(raw, ctx string, r reference.Ref) reference.Descriptor {
	return reference.Descriptor{Raw: raw, Context: ctx, Type: callgraph.NodeTypeExternal, Ref: r}
}

// ParseProject splits "group[/subgroup...]/project" into Owner and Repo.
func ParseProject(project string) (reference.Ref, bool) {
	project = strings.Trim(project, "/")
	i := strings.LastIndex(project, "/")
	if i <= 0 {
		return reference.Ref{}, false
	}
	owner, repo := project[:i], project[i+1:]
	for _, seg := range strings.Split(owner, "/") {
		if !reference.ValidSegment(seg) {
			return reference.Ref{}, false
		}
	}
	if !reference.ValidSegment(repo) {
		return reference.Ref{}, false
	}
	return reference.Ref{Owner: owner, Repo: repo}, true
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
