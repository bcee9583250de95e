package windimpact

import "math"

// InsufficientDataMessage is the advisory for routes that cannot be analyzed.
const InsufficientDataMessage = "insufficient data"

// Aggregate combines per-segment impacts into a path summary.
//
// The three percentages are independent intensity measures and need not sum
// to 100. Routes with no segments, or whose segments all have zero length,
// produce zero percentages, a score of 0 and the insufficient data advisory.
// If impacts and vectors differ in length only the common prefix is used.
func Aggregate(impacts []SegmentImpact, vectors []SegmentVector, wind WindObservation, temperature Celsius, cfg ScoringConfiguration) PathImpact {
	n := min(len(impacts), len(vectors))
	totalLength := PathLength(vectors[:n])

	if n == 0 || totalLength == 0 || math.IsNaN(totalLength) || math.IsInf(totalLength, 0) {
		return insufficientData(wind, temperature)
	}

	var head, cross, tail float64
	for _, impact := range impacts[:n] {
		head += impact.Headwind
		cross += impact.Crosswind
		tail += impact.Tailwind
	}

	path := PathImpact{
		HeadwindPercentage:  percentage(head, totalLength),
		CrosswindPercentage: percentage(cross, totalLength),
		TailwindPercentage:  percentage(tail, totalLength),
		WindSpeed:           wind.SpeedMetersPerSecond,
		Temperature:         temperature,
	}
	path.CyclingScore = CyclingScore(path, cfg)
	path.AdvisoryMessage = Advise(path)
	return path
}

// CyclingScore computes the normalized [0, 100] ride score for a summary.
//
//	raw = (T - ideal) * speed + speed² + (head% * headW - tail% * tailW + crossW)
//	max = |upperT - ideal| * upperSpeed + upperSpeed² + 1
//	score = clamp(round(100 * raw / max), 0, 100)
//
// A non-positive or non-finite max scores 0.
func CyclingScore(path PathImpact, cfg ScoringConfiguration) int {
	speed := path.WindSpeed
	temperatureImpact := float64(path.Temperature) - cfg.IdealTemperatureC

	weightedHeadwind := float64(path.HeadwindPercentage) * cfg.HeadwindWeight
	weightedTailwind := float64(path.TailwindPercentage) * cfg.TailwindWeight
	windDirectionImpact := weightedHeadwind - weightedTailwind + cfg.CrosswindWeight

	raw := temperatureImpact*speed + speed*speed + windDirectionImpact

	maxScore := math.Abs(cfg.UpperPlausibleTemperatureC-cfg.IdealTemperatureC)*cfg.UpperPlausibleWindSpeed +
		cfg.UpperPlausibleWindSpeed*cfg.UpperPlausibleWindSpeed + 1

	if maxScore <= 0 || math.IsNaN(maxScore) || math.IsInf(maxScore, 0) {
		return 0
	}

	score := math.Round(100 * raw / maxScore)
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return int(score)
	}
}

func percentage(sum, totalLength float64) int {
	p := math.Round(sum / totalLength)
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(p)
}

func insufficientData(wind WindObservation, temperature Celsius) PathImpact {
	return PathImpact{
		WindSpeed:       wind.SpeedMetersPerSecond,
		Temperature:     temperature,
		AdvisoryMessage: InsufficientDataMessage,
	}
}
