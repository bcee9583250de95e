package windimpact

import (
	"fmt"
	"math"
	"strings"
)

// Wind speed band limits in m/s.
const (
	CalmWindSpeedLimit  = 2.0
	MildWindSpeedLimit  = 5.0
	WindyWindSpeedLimit = 15.0
)

// directionThreshold is the percentage above which a direction is mentioned.
const directionThreshold = 50

// Advise builds the human readable advisory for a path summary.
//
// Bands are evaluated in order: calm below 2 m/s, mild below 5 m/s, windy up
// to and including 15 m/s, very windy above.
func Advise(path PathImpact) string {
	speed := path.WindSpeed
	if math.IsNaN(speed) || speed < 0 {
		speed = 0
	}
	temp := float64(path.Temperature)
	if math.IsNaN(temp) {
		temp = 0
	}

	var clauses []string
	switch {
	case speed < CalmWindSpeedLimit:
		clauses = append(clauses,
			dayClause(temp),
			"The weather is calm with no wind.",
		)
	case speed < MildWindSpeedLimit:
		clauses = append(clauses,
			dayClause(temp),
			fmt.Sprintf("The wind speed is %d m/s, which is quite mild.", truncate(speed)),
		)
	case speed <= WindyWindSpeedLimit:
		clauses = append(clauses,
			windyTemperatureClause(temp),
			fmt.Sprintf("the wind speed is %d m/s, which is not ideal for cycling.", truncate(speed)),
		)
		clauses = append(clauses, directionClauses(path)...)
	default:
		clauses = append(clauses,
			veryWindyTemperatureClause(temp),
			fmt.Sprintf("the wind speed is %d m/s, making it a bad day to cycle.", truncate(speed)),
		)
		clauses = append(clauses, directionClauses(path)...)
	}

	return strings.Join(clauses, " ")
}

func temperatureTier(temp float64) string {
	switch {
	case temp > 20:
		return "great"
	case temp > 10:
		return "good"
	default:
		return "cold"
	}
}

func dayClause(temp float64) string {
	return fmt.Sprintf("The temperature is %d°C, making it a %s day to cycle.", truncate(temp), temperatureTier(temp))
}

func windyTemperatureClause(temp float64) string {
	tier := temperatureTier(temp)
	if tier == "cold" {
		return fmt.Sprintf("The temperature is %d°C, and", truncate(temp))
	}
	return fmt.Sprintf("The temperature is %d°C, which is %s for cycling. However,", truncate(temp), tier)
}

func veryWindyTemperatureClause(temp float64) string {
	if temperatureTier(temp) == "cold" {
		return fmt.Sprintf("The temperature is %d°C, and", truncate(temp))
	}
	return fmt.Sprintf("The temperature is %d°C, but", truncate(temp))
}

func directionClauses(path PathImpact) []string {
	var clauses []string
	if path.HeadwindPercentage > directionThreshold {
		clauses = append(clauses, fmt.Sprintf("%d%% of your ride is against the wind.", path.HeadwindPercentage))
	}
	if path.TailwindPercentage > directionThreshold {
		clauses = append(clauses, fmt.Sprintf("%d%% of your ride is with the wind.", path.TailwindPercentage))
	}
	if path.CrosswindPercentage > directionThreshold {
		clauses = append(clauses, fmt.Sprintf("%d%% of your ride is across the wind.", path.CrosswindPercentage))
	}
	return clauses
}

// truncate drops the fractional part, so 19.9°C reads as 19°C.
func truncate(v float64) int {
	if math.IsInf(v, 0) {
		if v > 0 {
			return math.MaxInt32
		}
		return math.MinInt32
	}
	return int(v)
}
