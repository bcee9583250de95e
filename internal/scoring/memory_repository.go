package scoring

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of the Repository interface.
type InMemoryRepository struct {
	mu      sync.RWMutex
	configs map[string]Configuration
}

// NewInMemoryRepository creates a new empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		configs: make(map[string]Configuration),
	}
}

// Get retrieves the configuration saved by a device.
func (r *InMemoryRepository) Get(_ context.Context, deviceID string) (*Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[deviceID]
	if !ok {
		return nil, ErrConfigurationNotFound
	}
	return &cfg, nil
}

// Put creates or replaces a device's configuration.
func (r *InMemoryRepository) Put(_ context.Context, cfg *Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[cfg.DeviceID] = *cfg
	return nil
}

// Delete removes a device's configuration.
func (r *InMemoryRepository) Delete(_ context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.configs, deviceID)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
