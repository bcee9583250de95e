package windimpact_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/windrider/windrider/internal/windimpact"
)

func nonZeroCount(impact windimpact.SegmentImpact) int {
	n := 0
	for _, v := range []float64{impact.Headwind, impact.Crosswind, impact.Tailwind} {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestDecompose_NorthIntoNorthWind(t *testing.T) {
	vector := windimpact.SegmentVector{DeltaLatitude: 1, DeltaLongitude: 0}
	wind := windimpact.NewWindObservation(5, 0)

	impact := windimpact.Decompose(vector, wind)

	assert.InDelta(t, 100.0, impact.Headwind, 1e-9)
	assert.Zero(t, impact.Crosswind)
	assert.Zero(t, impact.Tailwind)
	assert.Equal(t, windimpact.BandHeadwind, impact.Band())
}

func TestDecompose_Bands(t *testing.T) {
	north := windimpact.SegmentVector{DeltaLatitude: 1}

	tests := []struct {
		name      string
		direction float64
		expected  windimpact.Band
	}{
		{"wind from north", 0, windimpact.BandHeadwind},
		{"wind from south", 180, windimpact.BandTailwind},
		{"wind from east", 90, windimpact.BandCrosswind},
		{"wind from west", 270, windimpact.BandCrosswind},
		{"just inside headwind", 59, windimpact.BandHeadwind},
		{"just outside headwind", 61, windimpact.BandCrosswind},
		{"just outside tailwind", 119, windimpact.BandCrosswind},
		{"just inside tailwind", 121, windimpact.BandTailwind},
		{"headwind from the other side", 301, windimpact.BandHeadwind},
		{"tailwind from the other side", 239, windimpact.BandTailwind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impact := windimpact.Decompose(north, windimpact.NewWindObservation(5, tt.direction))
			assert.Equal(t, tt.expected, impact.Band())
		})
	}
}

func TestDecompose_ExactlyOneComponent(t *testing.T) {
	for dir := 0.0; dir < 360; dir += 7.5 {
		for _, v := range []windimpact.SegmentVector{
			{DeltaLatitude: 1},
			{DeltaLongitude: 1},
			{DeltaLatitude: -0.3, DeltaLongitude: 0.7},
			{DeltaLatitude: 0.001, DeltaLongitude: -0.002},
		} {
			impact := windimpact.Decompose(v, windimpact.NewWindObservation(8, dir))
			assert.Equal(t, 1, nonZeroCount(impact), "direction %v vector %+v", dir, v)
			assert.GreaterOrEqual(t, impact.Headwind, 0.0)
			assert.GreaterOrEqual(t, impact.Crosswind, 0.0)
			assert.GreaterOrEqual(t, impact.Tailwind, 0.0)
		}
	}
}

func TestDecompose_ZeroLength(t *testing.T) {
	impact := windimpact.Decompose(windimpact.SegmentVector{}, windimpact.NewWindObservation(10, 45))
	assert.Equal(t, windimpact.SegmentImpact{}, impact)
	assert.Equal(t, windimpact.BandNone, impact.Band())
}

func TestDecompose_MagnitudeScalesWithLength(t *testing.T) {
	wind := windimpact.NewWindObservation(3, 0)
	short := windimpact.Decompose(windimpact.SegmentVector{DeltaLatitude: 0.5}, wind)
	long := windimpact.Decompose(windimpact.SegmentVector{DeltaLatitude: 2}, wind)
	assert.InDelta(t, 4*short.Headwind, long.Headwind, 1e-9)
}

func TestRelativeAngle(t *testing.T) {
	assert.InDelta(t, 0.0, windimpact.RelativeAngle(1, 0), 1e-9)
	assert.InDelta(t, 90.0, windimpact.RelativeAngle(0, 1), 1e-9)
	assert.InDelta(t, 180.0, windimpact.RelativeAngle(-1, 0), 1e-9)
	assert.InDelta(t, 270.0, windimpact.RelativeAngle(0, -1), 1e-9)

	for _, xy := range [][2]float64{{1, -1e-18}, {-1, -1e-18}, {0.3, -0.7}} {
		a := windimpact.RelativeAngle(xy[0], xy[1])
		assert.GreaterOrEqual(t, a, 0.0)
		assert.Less(t, a, 360.0)
	}
}

func TestNewWindObservation(t *testing.T) {
	tests := []struct {
		name              string
		speed, direction  float64
		expectedSpeed     float64
		expectedDirection float64
	}{
		{"in range", 4, 200, 4, 200},
		{"negative speed", -1, 10, 0, 10},
		{"nan speed", math.NaN(), 10, 0, 10},
		{"direction 360", 3, 360, 3, 0},
		{"negative direction", 3, -90, 3, 270},
		{"large direction", 3, 725, 3, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := windimpact.NewWindObservation(tt.speed, tt.direction)
			assert.Equal(t, tt.expectedSpeed, w.SpeedMetersPerSecond)
			assert.InDelta(t, tt.expectedDirection, w.DirectionDegrees, 1e-9)
		})
	}
}
