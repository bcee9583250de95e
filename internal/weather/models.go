package weather

import (
	"errors"
	"time"

	"github.com/windrider/windrider/internal/windimpact"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation is the current weather at the lookup point of a route.
type Observation struct {
	// Location coordinates
	Lat float64
	Lon float64

	// Temperature in Kelvin, as delivered by the provider.
	Temperature windimpact.Kelvin

	// Wind data
	WindSpeed     float64 // m/s
	WindDirection float64 // degrees the wind blows from (0=N, 90=E, 180=S, 270=W)
	WindGust      float64 // m/s, 0 if not available

	Condition   Condition
	Description string

	// Timestamps
	ObservedAt time.Time
	FetchedAt  time.Time
}

// Wind returns the observation as input for the impact engine.
func (o *Observation) Wind() windimpact.WindObservation {
	return windimpact.NewWindObservation(o.WindSpeed, o.WindDirection)
}

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)
