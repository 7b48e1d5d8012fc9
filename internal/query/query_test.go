package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rendis/cigraph/internal/yamldoc"
	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleGraph:
//
//	ci.yml (INTERNAL, document)
//	  actions/checkout@v4 (EXTERNAL)
//	  org/r/.github/workflows/x.yml@v1 (REUSABLE, FETCH_FAILED)
//	  ${{ matrix.a }} (UNKNOWN)
//	release.yml (INTERNAL)
func sampleGraph(t *testing.T) *callgraph.CallGraph {
	t.Helper()
	doc, err := yamldoc.Parse([]byte("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n"), "ci.yml")
	require.NoError(t, err)

	root := callgraph.NewRoot()
	ci := &callgraph.Node{Name: "ci.yml", Type: callgraph.NodeTypeInternal, SourcePath: "/r/ci.yml", Document: doc}
	ci.AddCallee(&callgraph.Node{Name: "actions/checkout@v4", Type: callgraph.NodeTypeExternal, CallerPath: "/r/ci.yml"})
	ci.AddCallee(&callgraph.Node{
		Name:       "org/r/.github/workflows/x.yml@v1",
		Type:       callgraph.NodeTypeReusable,
		CallerPath: "/r/ci.yml",
		Err:        schema.NewError(schema.ErrCodeFetchFailed, "no fetcher"),
	})
	ci.AddCallee(&callgraph.Node{
		Name:       "${{ matrix.a }}",
		Type:       callgraph.NodeTypeUnknown,
		CallerPath: "/r/ci.yml",
		Err:        schema.NewError(schema.ErrCodeUnresolved, "expression"),
	})
	root.AddCallee(ci)
	root.AddCallee(&callgraph.Node{Name: "release.yml", Type: callgraph.NodeTypeInternal, SourcePath: "/r/release.yml"})
	return callgraph.New(root, "/r")
}

func names(nodes []*callgraph.Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func engines(t *testing.T) map[string]Engine {
	t.Helper()
	out := make(map[string]Engine)
	for _, name := range []string{EngineCEL, EngineExpr, EngineJQ} {
		eng, err := NewEngine(name)
		require.NoError(t, err)
		out[name] = eng
	}
	return out
}

// --- Select ---

func TestSelect_AllEngines(t *testing.T) {
	tests := []struct {
		name  string
		exprs map[string]string
		want  []string
	}{
		{
			name: "unresolved",
			exprs: map[string]string{
				EngineCEL:  `!node.resolved`,
				EngineExpr: `not node.resolved`,
				EngineJQ:   `.node.resolved | not`,
			},
			want: []string{"org/r/.github/workflows/x.yml@v1", "${{ matrix.a }}"},
		},
		{
			name: "depth and type",
			exprs: map[string]string{
				EngineCEL:  `node.depth == 1 && node.type == "INTERNAL"`,
				EngineExpr: `node.depth == 1 and node.type == "INTERNAL"`,
				EngineJQ:   `.node.depth == 1 and .node.type == "INTERNAL"`,
			},
			want: []string{"ci.yml", "release.yml"},
		},
		{
			name: "error code",
			exprs: map[string]string{
				EngineCEL:  `node.error_code == "FETCH_FAILED"`,
				EngineExpr: `node.error_code == "FETCH_FAILED"`,
				EngineJQ:   `.node.error_code == "FETCH_FAILED"`,
			},
			want: []string{"org/r/.github/workflows/x.yml@v1"},
		},
		{
			name: "fan out",
			exprs: map[string]string{
				EngineCEL:  `node.callees > 2`,
				EngineExpr: `node.callees > 2`,
				EngineJQ:   `.node.callees > 2`,
			},
			want: []string{"ci.yml"},
		},
		{
			name: "document content",
			exprs: map[string]string{
				EngineCEL:  `node.document != null && node.document.on == "push"`,
				EngineExpr: `node.document?.on == "push"`,
				EngineJQ:   `.node.document.on == "push"`,
			},
			want: []string{"ci.yml"},
		},
	}

	for engName, eng := range engines(t) {
		for _, tt := range tests {
			t.Run(engName+"/"+tt.name, func(t *testing.T) {
				got, err := Select(context.Background(), eng, sampleGraph(t), tt.exprs[engName])
				require.NoError(t, err)
				assert.Equal(t, tt.want, names(got))
			})
		}
	}
}

func TestSelect_NonBoolean(t *testing.T) {
	for name, eng := range engines(t) {
		t.Run(name, func(t *testing.T) {
			expr := "node.name"
			if name == EngineJQ {
				expr = ".node.name"
			}
			_, err := Select(context.Background(), eng, sampleGraph(t), expr)
			require.Error(t, err)

			var sErr *schema.Error
			require.True(t, errors.As(err, &sErr))
			assert.Equal(t, schema.ErrCodeValidation, sErr.Code)
		})
	}
}

func TestSelect_CompileErrors(t *testing.T) {
	bad := map[string]string{
		EngineCEL:  `node.type ==`,
		EngineExpr: `node.type ==`,
		EngineJQ:   `.node.type ==`,
	}
	for name, eng := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := Select(context.Background(), eng, sampleGraph(t), bad[name])
			assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

			_, err = eng.Evaluate(context.Background(), "", nil)
			assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
		})
	}
}

func TestSelect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Select(ctx, NewExprEngine(), sampleGraph(t), "true")
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Any ---

func TestAny(t *testing.T) {
	eng := NewExprEngine()
	cg := sampleGraph(t)

	found, err := Any(context.Background(), eng, cg, `node.type == "UNKNOWN"`)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = Any(context.Background(), eng, cg, `node.type == "NONE"`)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = Any(context.Background(), eng, callgraph.New(callgraph.NewRoot(), ""), "true")
	require.NoError(t, err)
	assert.False(t, found)
}

// --- Engines ---

func TestNewEngine_Unknown(t *testing.T) {
	_, err := NewEngine("lua")
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestGoJQEngine_MultipleOutputs(t *testing.T) {
	out, err := NewGoJQEngine().Evaluate(context.Background(), `.xs[]`, map[string]any{"xs": []any{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, out)

	out, err = NewGoJQEngine().Evaluate(context.Background(), `empty`, map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGoJQEngine_NoEnvironment(t *testing.T) {
	t.Setenv("CIGRAPH_SECRET", "x")
	out, err := NewGoJQEngine().Evaluate(context.Background(), `$ENV.CIGRAPH_SECRET`, map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestEngines_ConcurrentCache(t *testing.T) {
	cg := sampleGraph(t)
	for name, eng := range engines(t) {
		expr := `node.depth == 2`
		if name == EngineJQ {
			expr = `.node.depth == 2`
		}
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := Select(context.Background(), eng, cg, expr)
				assert.NoError(t, err)
				assert.Len(t, got, 3)
			}()
		}
		wg.Wait()
	}
}

func TestNodeData(t *testing.T) {
	cg := sampleGraph(t)
	d := NodeData(cg.Root.Callees[1], 1)
	assert.Equal(t, "release.yml", d["name"])
	assert.Equal(t, "INTERNAL", d["type"])
	assert.Equal(t, true, d["resolved"])
	assert.Equal(t, "", d["error_code"])
	assert.Nil(t, d["document"])
}
