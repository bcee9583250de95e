// Package worker keeps the weather cache warm for stored routes so that
// analyses triggered by riders rarely wait on the weather provider.
package worker

import (
	"fmt"
	"math"
	"time"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// RefreshConfig holds configuration for the weather warm-up job.
type RefreshConfig struct {
	// Concurrency is the number of concurrent weather fetches.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each weather fetch.
	// Default: 30 seconds
	Timeout time.Duration

	// PageSize is how many routes are read per page while collecting targets.
	// Default: 200
	PageSize int

	// GridSize groups route weather points into cells of this many degrees;
	// one fetch per cell. Match the weather service cache grid.
	// Default: 0.1
	GridSize float64

	// MaxPoints caps the number of fetches in one run.
	// Default: 1000
	MaxPoints int

	// HealthCheckPoint is fetched by the health_check job.
	HealthCheckPoint Point
}

// DefaultRefreshConfig returns the default warm-up configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Concurrency:      3,
		Timeout:          30 * time.Second,
		PageSize:         200,
		GridSize:         0.1,
		MaxPoints:        1000,
		HealthCheckPoint: Point{Lat: 52.3676, Lon: 4.9041},
	}
}

// withDefaults fills zero fields from DefaultRefreshConfig.
func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.GridSize <= 0 {
		c.GridSize = def.GridSize
	}
	if c.MaxPoints <= 0 {
		c.MaxPoints = def.MaxPoints
	}
	if c.HealthCheckPoint == (Point{}) {
		c.HealthCheckPoint = def.HealthCheckPoint
	}
	return c
}

// cell returns the grid cell a point falls in.
func (c RefreshConfig) cell(p Point) string {
	return fmt.Sprintf("%.0f:%.0f", math.Floor(p.Lat/c.GridSize), math.Floor(p.Lon/c.GridSize))
}
