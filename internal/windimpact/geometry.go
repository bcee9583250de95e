package windimpact

import (
	"sync"

	"github.com/umahmood/haversine"
)

// ComputeSegmentVectors returns the N-1 direction vectors between consecutive
// coordinates. Fewer than two coordinates yield an empty slice.
func ComputeSegmentVectors(coords []Coordinate) []SegmentVector {
	if len(coords) < 2 {
		return []SegmentVector{}
	}

	vectors := make([]SegmentVector, len(coords)-1)
	for i := 0; i < len(coords)-1; i++ {
		vectors[i] = SegmentVector{
			DeltaLatitude:  coords[i+1].Latitude - coords[i].Latitude,
			DeltaLongitude: coords[i+1].Longitude - coords[i].Longitude,
		}
	}
	return vectors
}

// PathLength sums the magnitudes of the vectors.
func PathLength(vectors []SegmentVector) float64 {
	var total float64
	for _, v := range vectors {
		total += v.Length()
	}
	return total
}

// AverageCoordinate returns the arithmetic mean of the coordinates. It is the
// point at which the route's weather is looked up.
func AverageCoordinate(coords []Coordinate) (Coordinate, bool) {
	if len(coords) == 0 {
		return Coordinate{}, false
	}

	var lat, lon float64
	for _, c := range coords {
		lat += c.Latitude
		lon += c.Longitude
	}
	n := float64(len(coords))
	return Coordinate{Latitude: lat / n, Longitude: lon / n}, true
}

// DistanceKm returns the great-circle length of the route in kilometers.
func DistanceKm(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		_, km := haversine.Distance(
			haversine.Coord{Lat: coords[i-1].Latitude, Lon: coords[i-1].Longitude},
			haversine.Coord{Lat: coords[i].Latitude, Lon: coords[i].Longitude},
		)
		total += km
	}
	return total
}

// Route is an ordered list of coordinates in travel order.
//
// A Route is immutable once built. Its segment vectors are computed on first
// use and reused by every later analysis.
type Route struct {
	coords []Coordinate

	once    *sync.Once
	vectors *[]SegmentVector
}

// NewRoute copies coords into a new Route.
func NewRoute(coords []Coordinate) Route {
	c := make([]Coordinate, len(coords))
	copy(c, coords)
	return Route{
		coords:  c,
		once:    &sync.Once{},
		vectors: new([]SegmentVector),
	}
}

// WithCoordinates returns a new Route for edited coordinates.
func (r Route) WithCoordinates(coords []Coordinate) Route {
	return NewRoute(coords)
}

// Coordinates returns a copy of the route's coordinates.
func (r Route) Coordinates() []Coordinate {
	c := make([]Coordinate, len(r.coords))
	copy(c, r.coords)
	return c
}

// Len returns the number of coordinates.
func (r Route) Len() int {
	return len(r.coords)
}

// SegmentVectors returns the route's segment vectors.
func (r Route) SegmentVectors() []SegmentVector {
	if r.once == nil {
		// Zero-value Route.
		return ComputeSegmentVectors(r.coords)
	}
	r.once.Do(func() {
		*r.vectors = ComputeSegmentVectors(r.coords)
	})
	out := make([]SegmentVector, len(*r.vectors))
	copy(out, *r.vectors)
	return out
}

// AverageCoordinate returns the route's weather lookup point.
func (r Route) AverageCoordinate() (Coordinate, bool) {
	return AverageCoordinate(r.coords)
}
