package scoring

import "context"

// Repository defines the interface for scoring configuration storage.
type Repository interface {
	// Get retrieves the configuration saved by a device.
	Get(ctx context.Context, deviceID string) (*Configuration, error)

	// Put creates or replaces a device's configuration.
	Put(ctx context.Context, cfg *Configuration) error

	// Delete removes a device's configuration. Deleting a missing
	// configuration is not an error.
	Delete(ctx context.Context, deviceID string) error
}
