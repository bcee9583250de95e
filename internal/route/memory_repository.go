package route

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It backs STORAGE_BACKEND=memory and the tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	routes map[string]*Route
}

// NewInMemoryRepository creates a new in-memory route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		routes: make(map[string]*Route),
	}
}

// Get retrieves a route by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[id]
	if !ok {
		return nil, ErrRouteNotFound
	}
	return rt.clone(), nil
}

// GetByOwnerAndID retrieves a route by owner and route ID.
func (r *InMemoryRepository) GetByOwnerAndID(_ context.Context, ownerID, routeID string) (*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[routeID]
	if !ok || rt.OwnerID != ownerID {
		return nil, ErrRouteNotFound
	}
	return rt.clone(), nil
}

// List retrieves an owner's routes with pagination.
func (r *InMemoryRepository) List(_ context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var routes []*Route
	for _, rt := range r.routes {
		if rt.OwnerID == ownerID {
			routes = append(routes, rt.clone())
		}
	}
	return page(routes, opts), nil
}

// ListAll pages through every stored route.
func (r *InMemoryRepository) ListAll(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]*Route, 0, len(r.routes))
	for _, rt := range r.routes {
		routes = append(routes, rt.clone())
	}
	return page(routes, opts), nil
}

// Create stores a new route.
func (r *InMemoryRepository) Create(_ context.Context, rt *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[rt.ID] = rt.clone()
	return nil
}

// Update replaces an existing route.
func (r *InMemoryRepository) Update(_ context.Context, rt *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[rt.ID]; !ok {
		return ErrRouteNotFound
	}
	r.routes[rt.ID] = rt.clone()
	return nil
}

// Delete deletes a route by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.routes, id)
	return nil
}

// page orders routes newest first (ID breaks ties) and applies the cursor,
// which is the ID of the last item of the previous page. An unknown cursor
// yields an empty page.
func page(routes []*Route, opts ListOptions) *ListResult {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].CreatedAt.Equal(routes[j].CreatedAt) {
			return routes[i].ID > routes[j].ID
		}
		return routes[i].CreatedAt.After(routes[j].CreatedAt)
	})

	if opts.Cursor != "" {
		i := slices.IndexFunc(routes, func(rt *Route) bool { return rt.ID == opts.Cursor })
		if i < 0 {
			return &ListResult{}
		}
		routes = routes[i+1:]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: routes}
	if len(routes) > limit {
		result.Items = routes[:limit]
		result.NextCursor = routes[limit-1].ID
	}
	return result
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
