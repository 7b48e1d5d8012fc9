package reference

import (
	"strings"

	"github.com/rendis/cigraph/pkg/callgraph"
)

// DockerPrefix marks a container image step.
const DockerPrefix = "docker://"

// ClassifyGitHub classifies a GitHub Actions `uses:` value. The workflow-file
// suffix is checked before the generic owner/repo@ref form, so a string that
// fits both becomes REUSABLE.
func ClassifyGitHub(raw, context string) Descriptor {
	raw = strings.TrimSpace(raw)
	d := Descriptor{Raw: raw, Context: context}

	switch {
	case raw == "":
		return Unknown(raw, context, "empty reference")
	case strings.Contains(raw, "${{"):
		return Unknown(raw, context, "reference contains an expression")
	case strings.HasPrefix(raw, DockerPrefix):
		if len(raw) == len(DockerPrefix) {
			return Unknown(raw, context, "docker reference without image")
		}
		d.Type = callgraph.NodeTypeExternal
		d.Ref = Ref{Path: raw}
		return d
	case strings.HasPrefix(raw, "./"):
		if strings.Contains(raw, "@") {
			return Unknown(raw, context, "local reference cannot be version-pinned")
		}
		p, ok := LocalPath(raw)
		if !ok {
			return Unknown(raw, context, "local reference escapes the repository")
		}
		d.Type = callgraph.NodeTypeInternal
		d.Ref = Ref{Path: p}
		return d
	}

	target, version, ok := SplitVersion(raw)
	if !ok || version == "" {
		return Unknown(raw, context, "reference has no version")
	}
	if strings.Contains(target, "@") {
		return Unknown(raw, context, "reference has more than one version separator")
	}
	ref, ok := ParseRemote(target)
	if !ok {
		return Unknown(raw, context, "reference is not of the form owner/repo[/path]@ref")
	}
	ref.Version = version
	d.Ref = ref

	if IsGitHubWorkflowPath(ref.Path) {
		d.Type = callgraph.NodeTypeReusable
	} else {
		d.Type = callgraph.NodeTypeExternal
	}
	return d
}
