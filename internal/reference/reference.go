// Package reference holds the reference taxonomy shared by all CI dialects.
// Each dialect extracts raw references from its own syntax and maps them onto
// the same four outcomes: INTERNAL, REUSABLE, EXTERNAL or UNKNOWN.
package reference

import (
	"path"
	"regexp"
	"strings"

	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

// Ref is a parsed owner/repo/path@version reference. Fields are empty when
// they do not apply (Owner and Repo for local paths, Version for INTERNAL).
type Ref struct {
	Owner   string `json:"owner,omitempty"`
	Repo    string `json:"repo,omitempty"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// String renders the canonical owner/repo[/path]@version form. Local refs
// render as their path.
func (r Ref) String() string {
	if r.Owner == "" && r.Repo == "" {
		return r.Path
	}
	s := r.Owner + "/" + r.Repo
	if r.Path != "" {
		s += "/" + r.Path
	}
	if r.Version != "" {
		s += "@" + r.Version
	}
	return s
}

// Descriptor is one reference found in a parsed document.
type Descriptor struct {
	// Raw is the reference exactly as written, trimmed.
	Raw string
	// Name is the display name for the resulting node. Classifiers set it
	// when it differs from Raw (e.g. GitLab project includes).
	Name string
	// Context locates the reference in its document, e.g. "jobs.build.steps[0]".
	Context string
	Type    callgraph.NodeType
	Ref     Ref
	// Err is set for UNKNOWN descriptors and explains why.
	Err error
}

// DisplayName returns Name, falling back to Raw.
func (d Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Raw
}

// Leaf builds the node for a descriptor that is never expanded.
func (d Descriptor) Leaf(callerPath string) *callgraph.Node {
	return &callgraph.Node{
		Name:       d.DisplayName(),
		Type:       d.Type,
		CallerPath: callerPath,
		Context:    d.Context,
		Err:        d.Err,
	}
}

// Unknown builds an UNKNOWN descriptor with an UNRESOLVED_REFERENCE cause.
func Unknown(raw, context, reason string) Descriptor {
	return Descriptor{
		Raw:     raw,
		Context: context,
		Type:    callgraph.NodeTypeUnknown,
		Err: schema.NewError(schema.ErrCodeUnresolved, reason).
			WithDetails(map[string]any{"reference": raw, "context": context}),
	}
}

var (
	segmentRe  = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	variableRe = regexp.MustCompile(`\$\{\{|\$\{|\$[A-Za-z_]`)
)

// ValidSegment reports whether s is usable as an owner, repository or path
// segment.
func ValidSegment(s string) bool {
	return s != "." && s != ".." && segmentRe.MatchString(s)
}

// HasVariable reports whether s contains a templated expression in any of
// the common forms: ${{ ... }}, ${...} or $NAME.
func HasVariable(s string) bool {
	return variableRe.MatchString(s)
}

// IsGitHubWorkflowPath reports whether p names a file directly under
// .github/workflows with a YAML extension.
func IsGitHubWorkflowPath(p string) bool {
	dir, file := path.Split(p)
	if dir != ".github/workflows/" || file == "" {
		return false
	}
	return strings.HasSuffix(file, ".yml") || strings.HasSuffix(file, ".yaml")
}

// LocalPath cleans a repository-relative path. ok is false when the path
// escapes the repository or is empty.
func LocalPath(p string) (string, bool) {
	p = strings.TrimPrefix(p, "/")
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

// SplitVersion splits "target@version" at the last '@'.
func SplitVersion(s string) (target, version string, ok bool) {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// ParseRemote parses "owner/repo[/path...]" into a Ref without version.
func ParseRemote(s string) (Ref, bool) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return Ref{}, false
	}
	for _, p := range parts {
		if !ValidSegment(p) {
			return Ref{}, false
		}
	}
	return Ref{Owner: parts[0], Repo: parts[1], Path: strings.Join(parts[2:], "/")}, true
}
