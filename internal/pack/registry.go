package pack

import (
	"sort"
	"sync"
)

// Registry tracks the last-known resolved plugin per name for one Manager
// instance. It reports what is currently active; it is never consulted for
// version-control state, which is always re-queried before decisions that
// affect correctness.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]ResolvedPlugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]ResolvedPlugin)}
}

// Put records or replaces a plugin entry.
func (r *Registry) Put(p ResolvedPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.Spec.Name] = p
}

// Get returns the entry for a name.
func (r *Registry) Get(name string) (ResolvedPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns all registered names sorted lexically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all entries sorted by name.
func (r *Registry) All() []ResolvedPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]ResolvedPlugin, 0, len(names))
	for _, name := range names {
		result = append(result, r.plugins[name])
	}
	return result
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
