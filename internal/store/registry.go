package store

import (
	"fmt"

	"stash-go/internal/stash"
)

// Registry resolves the storage provider responsible for an entity. The
// first registered provider is the default for new uploads.
type Registry struct {
	providers map[string]stash.Storage
	def       stash.Storage
}

// NewRegistry creates a registry over the given providers. At least one
// is required; the first becomes the default.
func NewRegistry(providers ...stash.Storage) (*Registry, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("registry requires at least one storage provider")
	}
	r := &Registry{providers: make(map[string]stash.Storage, len(providers)), def: providers[0]}
	for _, p := range providers {
		if _, ok := r.providers[p.Provider()]; ok {
			return nil, fmt.Errorf("duplicate storage provider: %s", p.Provider())
		}
		r.providers[p.Provider()] = p
	}
	return r, nil
}

// Default returns the provider new uploads go to.
func (r *Registry) Default() stash.Storage { return r.def }

// ByProvider returns the provider registered under name.
func (r *Registry) ByProvider(name string) (stash.Storage, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: no storage registered for provider %q", stash.ErrIncompatibleProvider, name)
	}
	return p, nil
}

// ByFile returns the provider that created the entity.
func (r *Registry) ByFile(file *stash.Entity) (stash.Storage, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: nil entity", stash.ErrIncompatibleProvider)
	}
	return r.ByProvider(file.Provider)
}
