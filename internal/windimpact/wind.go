package windimpact

import (
	"math"

	"github.com/golang/geo/s1"
)

// Band weights for a travel angle a relative to the wind:
//
//	headwind  (1 + cos a) / 2
//	tailwind  (1 - cos a) / 2
//	crosswind (1 - cos 2a) / 2
//
// A segment goes to the band with the largest weight. Headwind wins within 60°
// of 0°, tailwind within 60° of 180°, and crosswind covers the rest. Ties fall
// to crosswind.

// Decompose splits the wind effect on a single segment into headwind,
// crosswind and tailwind. Exactly one component is non-zero unless the
// segment has zero length.
func Decompose(v SegmentVector, wind WindObservation) SegmentImpact {
	theta := (s1.Angle(wind.DirectionDegrees) * s1.Degree).Radians()
	sinT, cosT := math.Sincos(theta)

	x := v.DeltaLatitude*cosT - v.DeltaLongitude*sinT
	y := v.DeltaLatitude*sinT + v.DeltaLongitude*cosT

	length := math.Hypot(x, y)
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return SegmentImpact{}
	}

	angle := RelativeAngle(x, y)
	head, cross, tail := bandWeights(angle)

	switch {
	case head > cross && head >= tail:
		return SegmentImpact{Headwind: length * head * 100}
	case tail > cross && tail > head:
		return SegmentImpact{Tailwind: length * tail * 100}
	default:
		return SegmentImpact{Crosswind: length * cross * 100}
	}
}

// DecomposeAll applies Decompose to every vector, in order.
func DecomposeAll(vectors []SegmentVector, wind WindObservation) []SegmentImpact {
	impacts := make([]SegmentImpact, len(vectors))
	for i, v := range vectors {
		impacts[i] = Decompose(v, wind)
	}
	return impacts
}

// RelativeAngle returns atan2(y, x) in degrees, normalized to [0, 360).
func RelativeAngle(x, y float64) float64 {
	deg := (s1.Angle(math.Atan2(y, x)) * s1.Radian).Degrees()
	return normalizeDegrees(deg)
}

func bandWeights(angleDeg float64) (head, cross, tail float64) {
	a := (s1.Angle(angleDeg) * s1.Degree).Radians()
	c := math.Cos(a)
	head = (1 + c) / 2
	tail = (1 - c) / 2
	cross = (1 - math.Cos(2*a)) / 2
	return head, cross, tail
}
