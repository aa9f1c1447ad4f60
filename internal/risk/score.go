package risk

import (
	"math"

	"github.com/warkadguard/riskwatch/internal/models"
)

const (
	// ndviNoiseFloor is the minimum drop treated as vegetation loss.
	ndviNoiseFloor = 0.05
	ndviMultiplier = 5.0
	ndviMaxWeight  = 0.5

	tempWeight     = 0.2
	humidityWeight = 0.2
	manyWeight     = 0.2
	fewWeight      = 0.1

	maxScore = 1.0

	// scorePrecision removes float summation residue (0.1+0.2) so that
	// threshold comparisons are stable.
	scorePrecision = 1e9

	mediumThreshold = 0.4
	highThreshold   = 0.7
)

// NDVIContribution returns the vegetation-loss term.
func NDVIContribution(drop *float64) float64 {
	if drop == nil || *drop <= ndviNoiseFloor {
		return 0
	}
	return math.Min(*drop*ndviMultiplier, ndviMaxWeight)
}

// WeatherContribution returns the weather term, at most 0.4.
func WeatherContribution(f Features) float64 {
	var c float64
	if f.TempInPestRange {
		c += tempWeight
	}
	if f.HumidityHigh {
		c += humidityWeight
	}
	return c
}

// ReportContribution sums over all reports in the window, not only the
// representative one.
func ReportContribution(f Features) float64 {
	return float64(f.ManyCount)*manyWeight + float64(f.FewCount)*fewWeight
}

// Score combines the features into a composite score in [0, 1].
// It is a pure function: identical features give identical scores.
func Score(f Features) float64 {
	total := NDVIContribution(f.NDVIDrop) + WeatherContribution(f) + ReportContribution(f)
	total = math.Round(total*scorePrecision) / scorePrecision
	return math.Max(0, math.Min(total, maxScore))
}

// Classify maps a score onto a level. Lower bounds are inclusive:
// [0,0.4) low, [0.4,0.7) medium, [0.7,1] high.
func Classify(score float64) models.RiskLevel {
	switch {
	case score >= highThreshold:
		return models.RiskHigh
	case score >= mediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
