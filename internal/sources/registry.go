package sources

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

// Factory builds an adapter for one platform.
type Factory func(deps Deps) (Adapter, error)

// Registry maps platforms to adapter factories. Adapter packages register
// themselves at init time; the engine only ever resolves through here.
type Registry struct {
	mu        sync.RWMutex
	factories map[platform.Platform]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[platform.Platform]Factory)}
}

// Register binds a factory to a platform, replacing any previous binding.
func (r *Registry) Register(p platform.Platform, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[p] = f
}

// New builds the adapter for a platform. Returns an error when no adapter is
// registered, which the session reports without touching the backend.
func (r *Registry) New(p platform.Platform, deps Deps) (Adapter, error) {
	r.mu.RLock()
	f, ok := r.factories[p]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform '%s'", p)
	}
	return f(deps)
}

// Registered returns the platforms with a registered adapter, sorted.
func (r *Registry) Registered() []platform.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]platform.Platform, 0, len(r.factories))
	for p := range r.factories {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// defaultRegistry backs the package-level Register used by adapter packages.
var defaultRegistry = NewRegistry()

// Register binds a factory in the default registry.
func Register(p platform.Platform, f Factory) {
	defaultRegistry.Register(p, f)
}

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}
