package windimpact

import (
	"fmt"
	"math"
)

// RGB is a color with channels in [0, 1].
type RGB struct {
	Red   float64
	Green float64
	Blue  float64
}

// Hex returns the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.Red), channel(c.Green), channel(c.Blue))
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// ColorFor maps a headwind intensity in [0, 100] linearly from green to red.
// Out of range values are clamped and NaN is treated as 0.
func ColorFor(intensity float64) RGB {
	if math.IsNaN(intensity) {
		intensity = 0
	}
	intensity = math.Max(0, math.Min(100, intensity))

	red := intensity / 100
	return RGB{Red: red, Green: 1 - red, Blue: 0}
}

// SegmentColors returns one color per segment, in segment order. The
// intensity of a segment is its headwind divided by its length.
func SegmentColors(impacts []SegmentImpact, vectors []SegmentVector) []RGB {
	n := min(len(impacts), len(vectors))
	colors := make([]RGB, n)
	for i := 0; i < n; i++ {
		var intensity float64
		if length := vectors[i].Length(); length > 0 {
			intensity = impacts[i].Headwind / length
		}
		colors[i] = ColorFor(intensity)
	}
	return colors
}
