package ci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService is a minimal Service for registry and analyzer tests.
type stubService struct {
	name     string
	files    []string
	err      error
	buildErr error
	built    []string
	mu       sync.Mutex
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) IsDetected(_ string) bool { return len(s.files) > 0 && s.err == nil }

func (s *stubService) GetWorkflows(_ string) ([]string, error) { return s.files, s.err }

func (s *stubService) BuildCallGraphFromNode(ctx context.Context, node *callgraph.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.built = append(s.built, node.SourcePath)
	s.mu.Unlock()
	node.AddCallee(&callgraph.Node{Name: "leaf", Type: callgraph.NodeTypeExternal, CallerPath: node.SourcePath})
	return s.buildErr
}

// --- Registry ---

func TestRegistry_Register_Success(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubService{name: "test"}))
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Has("test"))
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubService{name: "dup"}))

	err := reg.Register(&stubService{name: "dup"})
	require.Error(t, err)

	var sErr *schema.Error
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, schema.ErrCodeConflict, sErr.Code)
}

func TestRegistry_Register_Invalid(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(reg.Register(nil)))
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(reg.Register(&stubService{})))
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry()
	svc := &stubService{name: "a"}
	require.NoError(t, reg.Register(svc))

	got, err := reg.Get("a")
	require.NoError(t, err)
	assert.Same(t, svc, got)

	_, err = reg.Get("missing")
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}

func TestRegistry_List_Sorted(t *testing.T) {
	reg := NewRegistry()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(&stubService{name: n}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Register(&stubService{name: fmt.Sprintf("svc-%d", i)})
			_ = reg.Has("svc-0")
			_ = reg.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, reg.Count())
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry(builder.Options{})
	assert.Equal(t, []string{"circleci", "github-actions", "gitlab-ci", "jenkins", "travis-ci"}, reg.Names())
}

// --- Detection ---

func TestDetect_OnlyGitHub(t *testing.T) {
	repo := writeRepo(t, map[string]string{
		".github/workflows/ci.yml":      "on: push\njobs: {}\n",
		".github/workflows/release.yml": "on: push\njobs: {}\n",
	})
	services, err := DefaultRegistry(builder.Options{}).Detect(repo)
	require.NoError(t, err)
	var names []string
	for _, svc := range services {
		names = append(names, svc.Name())
	}
	assert.Equal(t, []string{"github-actions"}, names)
}

func TestDetect_AllDialects(t *testing.T) {
	repo := writeRepo(t, map[string]string{
		".github/workflows/ci.yml": "on: push\n",
		".gitlab-ci.yml":           "stages: [build]\n",
		"Jenkinsfile":              "node {}\n",
		".circleci/config.yml":     "version: 2.1\n",
		".travis.yml":              "language: go\n",
	})
	services, err := DefaultRegistry(builder.Options{}).Detect(repo)
	require.NoError(t, err)
	assert.Len(t, services, 5)

	services, err = DefaultRegistry(builder.Options{}).Detect(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestDetect_DiscoveryFault(t *testing.T) {
	repo := loopingWorkflowsRepo(t)

	services, err := DefaultRegistry(builder.Options{}).Detect(repo)
	assert.Nil(t, services)
	assert.Equal(t, schema.ErrCodeIO, schema.CodeOf(err))
}

// loopingWorkflowsRepo returns a repository whose .github/workflows is a
// symlink to itself, so listing it fails with ELOOP regardless of the
// user's privileges.
func loopingWorkflowsRepo(t *testing.T) string {
	t.Helper()
	repo := writeRepo(t, map[string]string{".travis.yml": "language: go\n"})
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".github"), 0o755))
	require.NoError(t, os.Symlink("workflows", filepath.Join(repo, ".github", "workflows")))
	return repo
}
