package models

// ScoringConfiguration holds the user-tunable cycling score parameters.
type ScoringConfiguration struct {
	IdealTemperatureC          float64 `json:"idealTemperatureC"`
	UpperPlausibleTemperatureC float64 `json:"upperPlausibleTemperatureC"`
	UpperPlausibleWindSpeed    float64 `json:"upperPlausibleWindSpeed"`
	HeadwindWeight             float64 `json:"headwindWeight"`
	TailwindWeight             float64 `json:"tailwindWeight"`
	CrosswindWeight            float64 `json:"crosswindWeight"`
}

// ScoringConfigurationResponse is a device's scoring configuration.
type ScoringConfigurationResponse struct {
	ScoringConfiguration
	IsDefault bool       `json:"isDefault"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}
