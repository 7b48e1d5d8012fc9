package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func sampleRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	writeFile(t, repo, ".github/workflows/ci.yml", `on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - uses: ./.github/actions/setup
`)
	return repo
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), defaultConfig(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// --- Dispatch ---

func TestRun_NoArgs(t *testing.T) {
	code, _, stderr := runCmd(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: cigraph")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := runCmd(t, "explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "explode"`)
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCmd(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "dev\n", stdout)
}

func TestRun_BadFlag(t *testing.T) {
	code, _, stderr := runCmd(t, "analyze", "-nope")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-nope")
}

// --- analyze ---

func TestAnalyze_Tree(t *testing.T) {
	code, stdout, stderr := runCmd(t, "analyze", sampleRepo(t))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "=== github-actions ===\nci.yml [INTERNAL]\n")
	assert.Contains(t, stdout, "actions/checkout@v4 [EXTERNAL]")
	assert.Contains(t, stdout, "!NOT_FOUND")
	assert.Contains(t, stdout, "3 nodes, 1 unresolved, depth 2")
}

func TestAnalyze_JSON(t *testing.T) {
	code, stdout, stderr := runCmd(t, "analyze", "-format", "json", sampleRepo(t))
	require.Equal(t, 0, code, stderr)

	var out struct {
		RunID   string `json:"run_id"`
		Results []struct {
			Dialect string `json:"dialect"`
			Graph   struct {
				Stats struct {
					Total int `json:"total"`
				} `json:"stats"`
				Nodes []struct {
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"graph"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.NotEmpty(t, out.RunID)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "github-actions", out.Results[0].Dialect)
	assert.Equal(t, 3, out.Results[0].Graph.Stats.Total)
	require.Len(t, out.Results[0].Graph.Nodes, 1)
	assert.Equal(t, "ci.yml", out.Results[0].Graph.Nodes[0].Name)
}

func TestAnalyze_MetricsOut(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "cigraph.prom")
	code, _, stderr := runCmd(t, "analyze", "-metrics-out", metricsFile, sampleRepo(t))
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cigraph_nodes_total{dialect="github-actions",type="EXTERNAL"} 1`)
	assert.Contains(t, string(data), `cigraph_unresolved_total{code="NOT_FOUND",dialect="github-actions"} 1`)
}

func TestAnalyze_Strict(t *testing.T) {
	repo := sampleRepo(t)
	code, _, stderr := runCmd(t, "analyze", "-strict", repo)
	require.Equal(t, 0, code, stderr)

	writeFile(t, repo, ".gitlab-ci.yml", "stages: build\n")
	code, stdout, stderr := runCmd(t, "analyze", "-strict", repo)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "=== gitlab-ci ===", "the report is still written")
	assert.Contains(t, stderr, "VALIDATION_ERROR")
	assert.Contains(t, stderr, ".gitlab-ci.yml")
}

func TestAnalyze_UnknownDialect(t *testing.T) {
	code, _, stderr := runCmd(t, "analyze", "-dialect", "bamboo", sampleRepo(t))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "VALIDATION_ERROR")
}

func TestAnalyze_InvalidFormat(t *testing.T) {
	code, _, stderr := runCmd(t, "analyze", "-format", "yaml", sampleRepo(t))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `invalid output "yaml"`)
}

func TestAnalyze_NothingDetected(t *testing.T) {
	code, stdout, _ := runCmd(t, "analyze", t.TempDir())
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)
}

// --- detect ---

func TestDetect(t *testing.T) {
	repo := sampleRepo(t)
	writeFile(t, repo, ".travis.yml", "language: go\n")

	code, stdout, _ := runCmd(t, "detect", repo)
	assert.Equal(t, 0, code)
	assert.Equal(t, "github-actions\ntravis-ci\n", stdout)
}

// --- query ---

func TestQuery(t *testing.T) {
	repo := sampleRepo(t)
	for _, tc := range []struct {
		engine, expr string
	}{
		{"cel", `node.type == "EXTERNAL"`},
		{"expr", `node.type == "EXTERNAL"`},
		{"jq", `.node.type == "EXTERNAL"`},
	} {
		t.Run(tc.engine, func(t *testing.T) {
			code, stdout, stderr := runCmd(t, "query", "-engine", tc.engine, "-expr", tc.expr, repo)
			require.Equal(t, 0, code, stderr)
			assert.Contains(t, stdout, "github-actions\tNode(actions/checkout@v4,EXTERNAL)\t")
			assert.Contains(t, stdout, "jobs.build.steps[0]")
		})
	}
}

func TestQuery_MissingExpr(t *testing.T) {
	code, _, stderr := runCmd(t, "query", sampleRepo(t))
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-expr is required")
}

func TestQuery_UnknownEngine(t *testing.T) {
	code, _, stderr := runCmd(t, "query", "-engine", "lua", "-expr", "true", sampleRepo(t))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "VALIDATION_ERROR")
}

// --- diagram ---

func TestDiagram_MermaidToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "graph.mmd")
	code, _, stderr := runCmd(t, "diagram", "-out", out, sampleRepo(t))
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "graph TD")
	assert.Contains(t, string(data), `(["actions/checkout@v4"])`)
}

func TestDiagram_PNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "graph.png")
	code, stdout, stderr := runCmd(t, "diagram", "-format", "png", "-out", out, sampleRepo(t))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestDiagram_PNGRequiresOut(t *testing.T) {
	code, _, stderr := runCmd(t, "diagram", "-format", "png", sampleRepo(t))
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-out is required")
}

func TestImagePath(t *testing.T) {
	assert.Equal(t, "g.png", imagePath("g.png", "travis-ci", 1))
	assert.Equal(t, "g-travis-ci.png", imagePath("g.png", "travis-ci", 2))
}

// --- init ---

func TestInit_WritesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	code, stdout, stderr := runCmd(t, "init", "-path", path, "-log-level", "debug", "-format", "json", "-concurrency", "2")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Config written to "+path)

	cfg := loadConfigFrom(path, envMap(nil))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, outputJSON, cfg.Output)
	assert.Equal(t, 2, cfg.Concurrency)
}

func TestInit_RejectsBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	code, _, stderr := runCmd(t, "init", "-path", path, "-log-level", "loud")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid log level")
	assert.NoFileExists(t, path)
}

// --- discovery faults ---

func TestAnalyze_DiscoveryFaultFails(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, ".travis.yml", "language: go\n")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".github"), 0o755))
	require.NoError(t, os.Symlink("workflows", filepath.Join(repo, ".github", "workflows")))

	code, stdout, stderr := runCmd(t, "analyze", repo)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "IO_ERROR")

	code, _, stderr = runCmd(t, "detect", repo)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "IO_ERROR")
}
