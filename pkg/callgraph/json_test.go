package callgraph

import (
	"encoding/json"
	"testing"

	"github.com/rendis/cigraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type docStub struct{}

func (docStub) Value() any { return map[string]any{"secret": true} }

// --- JSON ---

func TestMarshalJSON_Graph(t *testing.T) {
	root := NewRoot()
	ci := &Node{Name: "ci.yml", Type: NodeTypeInternal, SourcePath: "/repo/.github/workflows/ci.yml", Document: docStub{}}
	root.AddCallee(ci)
	ci.AddCallee(&Node{
		Name:       "actions/checkout@v4",
		Type:       NodeTypeExternal,
		CallerPath: ci.SourcePath,
		Context:    "jobs.build.steps[0]",
	})
	ci.AddCallee(&Node{
		Name:       "${{ matrix.action }}",
		Type:       NodeTypeUnknown,
		CallerPath: ci.SourcePath,
		Err:        schema.NewError(schema.ErrCodeUnresolved, "expression"),
	})

	data, err := json.Marshal(New(root, "/repo"))
	require.NoError(t, err)

	var out struct {
		RepoPath string `json:"repo_path"`
		Stats    Stats  `json:"stats"`
		Nodes    []struct {
			Name     string         `json:"name"`
			Type     string         `json:"type"`
			Document map[string]any `json:"document"`
			Callees  []struct {
				Name    string `json:"name"`
				Context string `json:"context"`
				Error   *struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			} `json:"callees"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "/repo", out.RepoPath)
	assert.Equal(t, 3, out.Stats.Total)
	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "ci.yml", out.Nodes[0].Name)
	assert.Equal(t, "INTERNAL", out.Nodes[0].Type)
	assert.Nil(t, out.Nodes[0].Document)
	require.Len(t, out.Nodes[0].Callees, 2)
	assert.Equal(t, "jobs.build.steps[0]", out.Nodes[0].Callees[0].Context)
	assert.Nil(t, out.Nodes[0].Callees[0].Error)
	require.NotNil(t, out.Nodes[0].Callees[1].Error)
	assert.Equal(t, schema.ErrCodeUnresolved, out.Nodes[0].Callees[1].Error.Code)
	assert.Contains(t, out.Nodes[0].Callees[1].Error.Message, "expression")
}

func TestMarshalJSON_EmptyGraph(t *testing.T) {
	data, err := json.Marshal(New(NewRoot(), "/repo"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodes":null`)
}
