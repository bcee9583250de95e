// Package scoring stores per-device cycling score configurations.
package scoring

import (
	"errors"
	"time"

	"github.com/windrider/windrider/internal/windimpact"
)

// ErrConfigurationNotFound is returned when a device has not saved a configuration.
var ErrConfigurationNotFound = errors.New("scoring configuration not found")

// Configuration is a device's saved scoring configuration.
type Configuration struct {
	DeviceID  string
	Values    windimpact.ScoringConfiguration
	UpdatedAt time.Time
}
