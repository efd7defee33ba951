package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the static, process-wide table of adapters keyed by id.
// Adapters are registered at startup; lookups never touch the filesystem.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates a registry from a map of factories.
// Each factory is invoked once; a factory returning nil is kept so that
// dispatch can report the misconfiguration instead of silently hiding it.
func NewRegistry(factories map[string]Factory) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(factories))}
	for id, f := range factories {
		var a Adapter
		if f != nil {
			a = f()
		}
		r.adapters[id] = a
	}
	return r
}

// Register adds an adapter under id. Registering an id twice is an error.
func (r *Registry) Register(id string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[id]; exists {
		return fmt.Errorf("adapter %q already registered", id)
	}
	var a Adapter
	if f != nil {
		a = f()
	}
	r.adapters[id] = a
	return nil
}

// Get returns the adapter registered under id. The boolean is false only
// when the id is unknown; a registered but nil adapter is returned as nil, true.
func (r *Registry) Get(id string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// IDs returns the registered adapter ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns the descriptors of all usable adapters sorted by id.
// Entries whose factory produced nil are left out.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.adapters))
	for _, a := range r.adapters {
		if a == nil {
			continue
		}
		infos = append(infos, a.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}
