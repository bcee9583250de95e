package windimpact

// Status describes whether an analysis could be computed.
type Status string

const (
	StatusOK               Status = "OK"
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
	StatusWindUnavailable  Status = "WIND_UNAVAILABLE"
)

// WindUnavailableMessage is the advisory when no wind observation was fetched.
const WindUnavailableMessage = "wind data unavailable"

// Result is the full output of one analysis.
type Result struct {
	Status Status

	// Wind is nil when no observation was fetched. A fetched calm reading is
	// a non-nil observation with zero speed.
	Wind *WindObservation

	Segments []SegmentImpact
	Colors   []RGB
	Path     PathImpact
}

// Analyze runs the whole pipeline for a route and a fetched observation.
// Temperature is converted from Kelvin here and nowhere else.
func Analyze(route Route, wind WindObservation, temperature Kelvin, cfg ScoringConfiguration) Result {
	vectors := route.SegmentVectors()
	impacts := DecomposeAll(vectors, wind)
	path := Aggregate(impacts, vectors, wind, temperature.Celsius(), cfg)

	status := StatusOK
	if path.AdvisoryMessage == InsufficientDataMessage {
		status = StatusInsufficientData
	}

	w := wind
	return Result{
		Status:   status,
		Wind:     &w,
		Segments: impacts,
		Colors:   SegmentColors(impacts, vectors),
		Path:     path,
	}
}

// Unavailable builds the neutral result for a route whose wind could not be
// fetched. Segments are left unclassified and every segment is drawn with the
// zero-intensity color.
func Unavailable(route Route) Result {
	vectors := route.SegmentVectors()
	impacts := make([]SegmentImpact, len(vectors))
	return Result{
		Status:   StatusWindUnavailable,
		Segments: impacts,
		Colors:   SegmentColors(impacts, vectors),
		Path:     PathImpact{AdvisoryMessage: WindUnavailableMessage},
	}
}

// Insufficient builds the result for a route with no segments when no wind
// was fetched for it.
func Insufficient(route Route) Result {
	vectors := route.SegmentVectors()
	return Result{
		Status:   StatusInsufficientData,
		Segments: make([]SegmentImpact, len(vectors)),
		Colors:   make([]RGB, 0),
		Path:     PathImpact{AdvisoryMessage: InsufficientDataMessage},
	}
}
