// Package registry implements the Provider Registry from spec.md §4.12:
// discovery, capability queries, and explicit register/unregister
// lifecycle. There is no hot reload — adapters are wired once at
// startup and torn down once at shutdown.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Registry holds every registered adapter for one running process. The
// zero value is not usable; construct with New.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]contract.Base
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{adapters: make(map[string]contract.Base)}
}

// RegisterProvider adds adapter under its own ID, failing if that ID is
// already registered (registration is a deliberate, one-shot startup
// action, not an overwrite).
func (r *Registry) RegisterProvider(adapter contract.Base) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := adapter.ID()
	if _, exists := r.adapters[id]; exists {
		return apierrors.New(id, apierrors.Conflict, "provider already registered")
	}
	r.adapters[id] = adapter
	return nil
}

// Unregister removes a provider by id. Unregistering an id that was
// never registered is a no-op, matching shutdown code that may race
// against a partially-initialized registry.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, id)
}

// GetAll returns every registered adapter, in no particular order.
func (r *Registry) GetAll() []contract.Base {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]contract.Base, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// GetSourceProviders returns every registered adapter whose declared
// Capabilities.CanBeSource is true.
func (r *Registry) GetSourceProviders() []contract.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []contract.Source
	for _, a := range r.adapters {
		if !a.Capabilities().CanBeSource {
			continue
		}
		if src, ok := a.(contract.Source); ok {
			out = append(out, src)
		}
	}
	return out
}

// GetTargetProviders returns every registered adapter whose declared
// Capabilities.CanBeTarget is true.
func (r *Registry) GetTargetProviders() []contract.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []contract.Target
	for _, a := range r.adapters {
		if !a.Capabilities().CanBeTarget {
			continue
		}
		if tgt, ok := a.(contract.Target); ok {
			out = append(out, tgt)
		}
	}
	return out
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (contract.Base, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// NewMigrationRunID stamps a synthetic correlation id for a batch of
// ResilienceFacade.Execute calls sharing one migration run, for log
// correlation only — the id-mapping table itself is owned elsewhere
// (spec.md §3's migration-status record, out of this module's scope).
func NewMigrationRunID() string {
	return uuid.NewString()
}
