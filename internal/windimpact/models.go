// Package windimpact estimates how wind helps or hinders a cyclist along a route.
//
// Every function in this package is pure: the same inputs always produce
// bit-identical outputs, nothing blocks and nothing is shared between calls.
package windimpact

import "math"

// Kelvin is a temperature in kelvin, as reported by weather providers.
type Kelvin float64

// Celsius is a temperature in degrees Celsius.
type Celsius float64

// Celsius converts the temperature. All scoring math works in Celsius.
func (k Kelvin) Celsius() Celsius {
	return Celsius(float64(k) - 273.15)
}

// Coordinate is a geographic position in decimal degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// SegmentVector is the direction between two consecutive route coordinates.
//
// Longitude is not scaled by cos(latitude), so the vector is only accurate for
// direction over short segments and is not a geodesic distance.
type SegmentVector struct {
	DeltaLatitude  float64
	DeltaLongitude float64
}

// Length returns the magnitude of the vector in degrees.
func (v SegmentVector) Length() float64 {
	return math.Hypot(v.DeltaLatitude, v.DeltaLongitude)
}

// WindObservation is a single ambient wind reading applied to the whole route.
type WindObservation struct {
	// SpeedMetersPerSecond is always >= 0.
	SpeedMetersPerSecond float64

	// DirectionDegrees is the compass bearing the wind blows from, in [0, 360).
	DirectionDegrees float64
}

// NewWindObservation builds an observation, clamping negative or NaN speeds to
// zero and normalizing the direction into [0, 360).
func NewWindObservation(speed, direction float64) WindObservation {
	if math.IsNaN(speed) || speed < 0 {
		speed = 0
	}
	return WindObservation{
		SpeedMetersPerSecond: speed,
		DirectionDegrees:     normalizeDegrees(direction),
	}
}

// SegmentImpact is the wind effect on one segment. At most one field is non-zero.
type SegmentImpact struct {
	Headwind  float64
	Crosswind float64
	Tailwind  float64
}

// Band returns the dominant band of the impact.
func (s SegmentImpact) Band() Band {
	switch {
	case s.Headwind > 0:
		return BandHeadwind
	case s.Tailwind > 0:
		return BandTailwind
	case s.Crosswind > 0:
		return BandCrosswind
	default:
		return BandNone
	}
}

// Band identifies which wind effect a segment was assigned to.
type Band string

const (
	BandHeadwind  Band = "HEADWIND"
	BandCrosswind Band = "CROSSWIND"
	BandTailwind  Band = "TAILWIND"
	BandNone      Band = "NONE"
)

// PathImpact summarizes the wind effect on a whole route.
type PathImpact struct {
	HeadwindPercentage  int
	CrosswindPercentage int
	TailwindPercentage  int
	WindSpeed           float64
	Temperature         Celsius
	CyclingScore        int
	AdvisoryMessage     string
}

// ScoringConfiguration holds the user-tunable parameters of the cycling score.
type ScoringConfiguration struct {
	IdealTemperatureC          float64
	UpperPlausibleTemperatureC float64
	UpperPlausibleWindSpeed    float64
	HeadwindWeight             float64
	TailwindWeight             float64
	CrosswindWeight            float64
}

// DefaultScoringConfiguration returns the configuration used when the user has
// not saved one.
func DefaultScoringConfiguration() ScoringConfiguration {
	return ScoringConfiguration{
		IdealTemperatureC:          23.0,
		UpperPlausibleTemperatureC: 40.7,
		UpperPlausibleWindSpeed:    20,
		HeadwindWeight:             2.0,
		TailwindWeight:             1.0,
		CrosswindWeight:            1.0,
	}
}

func normalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// math.Mod of a tiny negative value can round back up to 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}
