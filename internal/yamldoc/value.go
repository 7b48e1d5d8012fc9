package yamldoc

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "null"
	}
}

// maxInterfaceNodes bounds the number of nodes Interface materialises, so
// alias fan-out cannot blow up memory.
const maxInterfaceNodes = 1 << 20

// Value is a read-only view of a YAML node with aliases resolved. The zero
// Value is null.
type Value struct {
	node *yaml.Node
}

// Pair is one key/value entry of a mapping.
type Pair struct {
	Key   string
	Value Value
}

func resolve(n *yaml.Node) *yaml.Node {
	for i := 0; n != nil && n.Kind == yaml.AliasNode && i < 64; i++ {
		n = n.Alias
	}
	if n != nil && n.Kind == yaml.AliasNode {
		return nil
	}
	return n
}

// Kind reports the shape of the value.
func (v Value) Kind() Kind {
	n := resolve(v.node)
	if n == nil {
		return KindNull
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return KindNull
		}
		return KindScalar
	case yaml.SequenceNode:
		return KindSequence
	case yaml.MappingNode:
		return KindMapping
	default:
		return KindNull
	}
}

// IsNull reports whether the value is absent or an explicit null.
func (v Value) IsNull() bool {
	return v.Kind() == KindNull
}

// Tag returns the short tag ("!!str", "!reference", ...), "" for null.
func (v Value) Tag() string {
	n := resolve(v.node)
	if n == nil {
		return ""
	}
	return n.ShortTag()
}

// CustomTag reports whether the value carries a non-standard tag such as
// GitLab's !reference.
func (v Value) CustomTag() bool {
	tag := v.Tag()
	return tag != "" && !strings.HasPrefix(tag, "!!")
}

// Line returns the 1-based source line, 0 if unknown.
func (v Value) Line() int {
	if v.node == nil {
		return 0
	}
	return v.node.Line
}

// Str returns the scalar text. ok is false for non-scalars.
func (v Value) Str() (string, bool) {
	n := resolve(v.node)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return "", false
	}
	return n.Value, true
}

// Get returns the value stored under key in a mapping, honouring merge keys.
// It returns null when v is not a mapping or the key is absent.
func (v Value) Get(key string) Value {
	for _, p := range v.Pairs() {
		if p.Key == key {
			return p.Value
		}
	}
	return Value{}
}

// Path follows a chain of mapping keys.
func (v Value) Path(keys ...string) Value {
	cur := v
	for _, k := range keys {
		cur = cur.Get(k)
	}
	return cur
}

// Nearest follows a JSON pointer ("/jobs/build/steps/0") and returns the
// deepest value that exists along it. Sequence segments are decimal
// indices; "~1" and "~0" are unescaped. "" and "/" address v itself.
func (v Value) Nearest(pointer string) Value {
	cur := v
	if pointer == "" || pointer == "/" {
		return cur
	}
	for _, seg := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		var next Value
		switch cur.Kind() {
		case KindMapping:
			next = cur.Get(seg)
		case KindSequence:
			if i, err := strconv.Atoi(seg); err == nil {
				if items := cur.Items(); i >= 0 && i < len(items) {
					next = items[i]
				}
			}
		}
		if next.node == nil {
			return cur
		}
		cur = next
	}
	return cur
}

// Pairs returns mapping entries in source order. Entries pulled in through
// "<<" merge keys appear where the merge key sits, unless the mapping sets
// the same key explicitly.
func (v Value) Pairs() []Pair {
	n := resolve(v.node)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}

	explicit := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; k.Value != "<<" || k.ShortTag() != "!!merge" {
			explicit[k.Value] = true
		}
	}

	emitted := make(map[string]bool, len(explicit))
	var out []Pair
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, val := n.Content[i], n.Content[i+1]
		if k.Value == "<<" && k.ShortTag() == "!!merge" {
			for _, src := range mergeSources(val) {
				for _, p := range (Value{node: src}).Pairs() {
					if explicit[p.Key] || emitted[p.Key] {
						continue
					}
					emitted[p.Key] = true
					out = append(out, p)
				}
			}
			continue
		}
		if emitted[k.Value] {
			continue
		}
		emitted[k.Value] = true
		out = append(out, Pair{Key: k.Value, Value: Value{node: val}})
	}
	return out
}

func mergeSources(n *yaml.Node) []*yaml.Node {
	n = resolve(n)
	if n == nil {
		return nil
	}
	if n.Kind == yaml.SequenceNode {
		out := make([]*yaml.Node, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, resolve(c))
		}
		return out
	}
	return []*yaml.Node{n}
}

// Items returns sequence elements in order; nil for non-sequences.
func (v Value) Items() []Value {
	n := resolve(v.node)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]Value, 0, len(n.Content))
	for _, c := range n.Content {
		out = append(out, Value{node: c})
	}
	return out
}

// Interface converts the value to plain Go values: map[string]any, []any,
// string, bool, int, float64 or nil. Scalars with custom tags stay strings.
func (v Value) Interface() any {
	budget := maxInterfaceNodes
	return toInterface(v, &budget)
}

func toInterface(v Value, budget *int) any {
	if *budget <= 0 {
		return nil
	}
	*budget--

	switch v.Kind() {
	case KindMapping:
		pairs := v.Pairs()
		m := make(map[string]any, len(pairs))
		for _, p := range pairs {
			m[p.Key] = toInterface(p.Value, budget)
		}
		return m
	case KindSequence:
		items := v.Items()
		s := make([]any, 0, len(items))
		for _, it := range items {
			s = append(s, toInterface(it, budget))
		}
		return s
	case KindScalar:
		return scalarValue(resolve(v.node))
	default:
		return nil
	}
}

func scalarValue(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		var i int
		if err := n.Decode(&i); err == nil {
			return i
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	}
	return n.Value
}
