package callgraph

import (
	"errors"
	"testing"

	"github.com/rendis/cigraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.String())
	}
	return out
}

// --- Node ---

func TestNode_String(t *testing.T) {
	n := &Node{Name: "valid1.yaml", Type: NodeTypeInternal}
	assert.Equal(t, "Node(valid1.yaml,INTERNAL)", n.String())

	n = &Node{Name: "actions/checkout@v3", Type: NodeTypeExternal}
	assert.Equal(t, "Node(actions/checkout@v3,EXTERNAL)", n.String())
}

func TestNode_NewRoot(t *testing.T) {
	root := NewRoot()
	assert.Equal(t, NodeTypeNone, root.Type)
	assert.Empty(t, root.Callees)
	assert.True(t, root.Resolved())
}

func TestNode_AddCallee_KeepsDuplicatesAndOrder(t *testing.T) {
	parent := &Node{Name: "ci.yml", Type: NodeTypeInternal}
	a := &Node{Name: "actions/checkout@v4", Type: NodeTypeExternal}
	b := &Node{Name: "actions/setup-go@v5", Type: NodeTypeExternal}
	parent.AddCallee(a)
	parent.AddCallee(b)
	parent.AddCallee(a)

	require.Len(t, parent.Callees, 3)
	assert.Same(t, a, parent.Callees[0])
	assert.Same(t, b, parent.Callees[1])
	assert.Same(t, a, parent.Callees[2])
}

func TestNode_MarkUnresolved(t *testing.T) {
	n := &Node{Name: "missing.yml", Type: NodeTypeInternal}
	assert.True(t, n.Resolved())

	n.MarkUnresolved(schema.NewError(schema.ErrCodeNotFound, "no such file"))
	assert.False(t, n.Resolved())

	var sErr *schema.Error
	require.True(t, errors.As(n.Err, &sErr))
	assert.Equal(t, schema.ErrCodeNotFound, sErr.Code)
}

func TestNode_Key(t *testing.T) {
	a := &Node{Name: "build.yml", Type: NodeTypeInternal, SourcePath: "/r/.github/workflows/build.yml"}
	b := &Node{Name: "build.yml", Type: NodeTypeInternal, SourcePath: "/other/.github/workflows/build.yml"}
	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestNodeType_Expandable(t *testing.T) {
	assert.True(t, NodeTypeInternal.Expandable())
	assert.True(t, NodeTypeReusable.Expandable())
	assert.False(t, NodeTypeExternal.Expandable())
	assert.False(t, NodeTypeUnknown.Expandable())
	assert.False(t, NodeTypeNone.Expandable())
}

// --- BFS ---

func TestBFS_Empty(t *testing.T) {
	g := New(nil, "/repo")
	assert.Empty(t, g.BFS())
	assert.Equal(t, "/repo", g.RepoPath)
}

func TestBFS_LevelOrder(t *testing.T) {
	root := NewRoot()
	ci := &Node{Name: "ci.yml", Type: NodeTypeInternal}
	release := &Node{Name: "release.yml", Type: NodeTypeInternal}
	root.AddCallee(ci)
	root.AddCallee(release)

	reusable := &Node{Name: "org/repo/.github/workflows/build.yml@v2", Type: NodeTypeReusable}
	ci.AddCallee(reusable)
	ci.AddCallee(&Node{Name: "actions/checkout@v3", Type: NodeTypeExternal})
	release.AddCallee(&Node{Name: "actions/cache@v3", Type: NodeTypeExternal})
	reusable.AddCallee(&Node{Name: "actions/setup-java@v3", Type: NodeTypeExternal})

	g := New(root, "")
	assert.Equal(t, []string{
		"Node(ci.yml,INTERNAL)",
		"Node(release.yml,INTERNAL)",
		"Node(org/repo/.github/workflows/build.yml@v2,REUSABLE)",
		"Node(actions/checkout@v3,EXTERNAL)",
		"Node(actions/cache@v3,EXTERNAL)",
		"Node(actions/setup-java@v3,EXTERNAL)",
	}, names(g.BFS()))
}

func TestBFS_Deterministic(t *testing.T) {
	root := NewRoot()
	for i := 0; i < 5; i++ {
		wf := &Node{Name: string(rune('a'+i)) + ".yml", Type: NodeTypeInternal}
		for j := 0; j < 4; j++ {
			wf.AddCallee(&Node{Name: string(rune('a'+j)) + "/x@v1", Type: NodeTypeExternal})
		}
		root.AddCallee(wf)
	}
	g := New(root, "")

	first := names(g.BFS())
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, names(g.BFS()))
	}
}

func TestWalk_StopsEarly(t *testing.T) {
	root := NewRoot()
	for _, n := range []string{"a.yml", "b.yml", "c.yml"} {
		root.AddCallee(&Node{Name: n, Type: NodeTypeInternal})
	}
	g := New(root, "")

	var seen []string
	g.Walk(func(n *Node, depth int) bool {
		seen = append(seen, n.Name)
		assert.Equal(t, 1, depth)
		return n.Name != "b.yml"
	})
	assert.Equal(t, []string{"a.yml", "b.yml"}, seen)
}

func TestWalk_NilGraph(t *testing.T) {
	var g *CallGraph
	called := false
	g.Walk(func(*Node, int) bool {
		called = true
		return true
	})
	assert.False(t, called)
}

// --- Stats ---

func TestStats(t *testing.T) {
	root := NewRoot()
	ci := &Node{Name: "ci.yml", Type: NodeTypeInternal}
	root.AddCallee(ci)
	ci.AddCallee(&Node{Name: "actions/checkout@v4", Type: NodeTypeExternal})
	ci.AddCallee(&Node{
		Name: "${{ matrix.action }}",
		Type: NodeTypeUnknown,
		Err:  schema.NewError(schema.ErrCodeUnresolved, "expression"),
	})

	s := New(root, "").Stats()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.ByType[NodeTypeInternal])
	assert.Equal(t, 1, s.ByType[NodeTypeExternal])
	assert.Equal(t, 1, s.ByType[NodeTypeUnknown])
	assert.Equal(t, 1, s.Unresolved)
	assert.Equal(t, 2, s.MaxDepth)
}
