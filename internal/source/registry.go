package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"acm/internal/domain"
)

// Registry manages available model listers, keyed by the source they serve
type Registry struct {
	mu      sync.RWMutex
	listers map[string]ModelLister
}

// NewRegistry creates a new lister registry
func NewRegistry() *Registry {
	return &Registry{
		listers: make(map[string]ModelLister),
	}
}

// Register adds a lister to the registry
func (r *Registry) Register(lister ModelLister) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listers[lister.ID()] = lister
}

// Get retrieves a lister by ID
func (r *Registry) Get(id string) (ModelLister, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lister, ok := r.listers[id]
	if !ok {
		return nil, fmt.Errorf("%w: no model lister for %s", domain.ErrUnsupportedSource, id)
	}
	return lister, nil
}

// List returns all registered listers ordered by ID
func (r *Registry) List() []ModelLister {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listers := make([]ModelLister, 0, len(r.listers))
	for _, l := range r.listers {
		listers = append(listers, l)
	}
	sort.Slice(listers, func(i, j int) bool { return listers[i].ID() < listers[j].ID() })
	return listers
}

// ListModels dispatches to the lister registered for the request's source
func (r *Registry) ListModels(ctx context.Context, req ListRequest) ([]string, error) {
	lister, err := r.Get(string(req.Source))
	if err != nil {
		return nil, err
	}
	return lister.ListModels(ctx, req)
}
