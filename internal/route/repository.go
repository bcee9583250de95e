package route

import "context"

// ListOptions contains options for listing routes.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing routes.
type ListResult struct {
	Items      []*Route
	NextCursor string
}

// Repository defines the interface for route persistence.
type Repository interface {
	// Get retrieves a route by ID.
	Get(ctx context.Context, id string) (*Route, error)

	// GetByOwnerAndID retrieves a route by owner and route ID.
	// Returns ErrRouteNotFound if the route doesn't exist or belongs to someone else.
	GetByOwnerAndID(ctx context.Context, ownerID, routeID string) (*Route, error)

	// List retrieves an owner's routes, newest first.
	List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error)

	// ListAll pages through every stored route regardless of owner.
	ListAll(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Create stores a new route.
	Create(ctx context.Context, route *Route) error

	// Update replaces an existing route.
	Update(ctx context.Context, route *Route) error

	// Delete deletes a route by ID.
	Delete(ctx context.Context, id string) error
}
