package connector

import (
	"fmt"
	"slices"
	"sync"
)

// Factory builds a fresh connector instance for a platform. Configuration
// (base URLs, HTTP client, clock) is captured when the factory is registered.
type Factory func() Social

// Registry maps platform ids to connector factories and to at most one live
// instance per platform. Construct exactly one per process and inject it.
//
// Creating an instance for a platform that already has one displaces the old
// instance without disconnecting it; callers that need cleanup must call
// Disconnect on the old instance first.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	active    map[string]Social
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		active:    make(map[string]Social),
	}
}

// Register associates a platform id with a factory, silently overwriting any
// previous registration for the same id.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = f
}

// Create instantiates the registered factory for id and makes the result the
// single active instance for that platform.
func (r *Registry) Create(id string) (Social, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("no connector registered for platform %q", id)
	}
	conn := f()
	r.active[id] = conn
	return conn, nil
}

// Active returns the live instance for a platform, if one exists.
func (r *Registry) Active(id string) (Social, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.active[id]
	return conn, ok
}

// AllActive returns a copy of the live instance table.
func (r *Registry) AllActive() map[string]Social {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Social, len(r.active))
	for id, conn := range r.active {
		out[id] = conn
	}
	return out
}

// Remove drops the active instance for a platform. The registration itself
// stays; Create can bring the platform back.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

// Available lists every registered platform id, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for id := range r.factories {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
