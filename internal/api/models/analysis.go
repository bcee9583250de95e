package models

// AnalysisStatus reports whether an analysis could be computed.
type AnalysisStatus string

const (
	AnalysisStatusOK               AnalysisStatus = "OK"
	AnalysisStatusInsufficientData AnalysisStatus = "INSUFFICIENT_DATA"
	AnalysisStatusWindUnavailable  AnalysisStatus = "WIND_UNAVAILABLE"
)

// Wind is a wind observation.
type Wind struct {
	SpeedMetersPerSecond float64 `json:"speedMetersPerSecond"`
	DirectionDegrees     float64 `json:"directionDegrees"`
}

// SegmentImpact is the wind effect on one route segment.
type SegmentImpact struct {
	Index     int     `json:"index"`
	Band      string  `json:"band"`
	Headwind  float64 `json:"headwind"`
	Crosswind float64 `json:"crosswind"`
	Tailwind  float64 `json:"tailwind"`
	Color     string  `json:"color"`
}

// PathImpact summarizes the wind effect on a whole route.
type PathImpact struct {
	HeadwindPercentage  int     `json:"headwindPercentage"`
	CrosswindPercentage int     `json:"crosswindPercentage"`
	TailwindPercentage  int     `json:"tailwindPercentage"`
	WindSpeed           float64 `json:"windSpeed"`
	TemperatureCelsius  float64 `json:"temperatureCelsius"`
	CyclingScore        int     `json:"cyclingScore"`
	AdvisoryMessage     string  `json:"advisoryMessage"`
}

// Analysis is the response for a route analysis.
type Analysis struct {
	RouteID      string          `json:"routeId,omitempty"`
	Status       AnalysisStatus  `json:"status"`
	Wind         *Wind           `json:"wind"`
	WeatherPoint *Point          `json:"weatherPoint,omitempty"`
	Provider     string          `json:"provider,omitempty"`
	Path         PathImpact      `json:"path"`
	Segments     []SegmentImpact `json:"segments"`
	GeneratedAt  Timestamp       `json:"generatedAt"`
}

// AnalysisPreviewRequest analyzes coordinates against a supplied observation
// without contacting the weather provider.
type AnalysisPreviewRequest struct {
	Coordinates       []Point               `json:"coordinates"`
	Wind              Wind                  `json:"wind"`
	TemperatureKelvin float64               `json:"temperatureKelvin"`
	ScoringOverride   *ScoringConfiguration `json:"scoringOverride,omitempty"`
}

// AnalysisAccepted is returned when an analysis runs in the background. The
// result is published at /v1/me/analysis/latest unless a newer request for the
// same device supersedes it.
type AnalysisAccepted struct {
	RouteID    string `json:"routeId"`
	Generation uint64 `json:"generation"`
}
