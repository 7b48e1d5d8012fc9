package ci

import (
	"sort"
	"sync"

	"github.com/rendis/cigraph/internal/builder"
	"github.com/rendis/cigraph/internal/ci/circleci"
	"github.com/rendis/cigraph/internal/ci/github"
	"github.com/rendis/cigraph/internal/ci/gitlab"
	"github.com/rendis/cigraph/internal/ci/jenkins"
	"github.com/rendis/cigraph/internal/ci/travis"
	"github.com/rendis/cigraph/pkg/schema"
)

// Registry is a thread-safe set of dialect services keyed by name.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Service),
	}
}

// DefaultRegistry registers every built-in dialect, all sharing opts.
func DefaultRegistry(opts builder.Options) *Registry {
	r := NewRegistry()
	for _, svc := range []Service{
		github.New(opts),
		gitlab.New(opts),
		jenkins.New(opts),
		circleci.New(opts),
		travis.New(opts),
	} {
		// Names are distinct constants; a failure here is a programming error.
		if err := r.Register(svc); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a service. Returns error on nil, empty or duplicate name.
func (r *Registry) Register(svc Service) error {
	if svc == nil {
		return schema.NewError(schema.ErrCodeValidation, "service is nil")
	}
	name := svc.Name()
	if name == "" {
		return schema.NewError(schema.ErrCodeValidation, "service name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "dialect %q already registered", name)
	}
	r.services[name] = svc
	return nil
}

// Get retrieves a service by name.
func (r *Registry) Get(name string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "dialect %q not registered", name)
	}
	return svc, nil
}

// List returns all services sorted by name.
func (r *Registry) List() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Service, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Names returns the registered dialect names, sorted.
func (r *Registry) Names() []string {
	svcs := r.List()
	names := make([]string, len(svcs))
	for i, svc := range svcs {
		names[i] = svc.Name()
	}
	return names
}

// Detect returns the services that find configuration in repoPath, sorted
// by name. A discovery I/O fault in any dialect is returned.
func (r *Registry) Detect(repoPath string) ([]Service, error) {
	var out []Service
	for _, svc := range r.List() {
		files, err := svc.GetWorkflows(repoPath)
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			out = append(out, svc)
		}
	}
	return out, nil
}

// Has checks if a dialect is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[name]
	return ok
}

// Count returns the number of registered dialects.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
