package circleci

import (
	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/internal/yamldoc"
)

// References returns one descriptor per entry of the top-level orbs map, in
// declaration order. Inline orb definitions are bodies rather than
// references and classify as UNKNOWN.
func References(root yamldoc.Value) []reference.Descriptor {
	var out []reference.Descriptor
	for _, p := range root.Get("orbs").Pairs() {
		ctx := "orbs." + p.Key
		s, ok := p.Value.Str()
		if !ok {
			out = append(out, reference.Unknown(p.Key, ctx, "inline orb definition"))
			continue
		}
		out = append(out, ClassifyOrb(s, ctx))
	}
	return out
}
