package risk

import (
	"time"

	"github.com/warkadguard/riskwatch/internal/models"
)

// Inputs holds everything fetched for one kebele in one pass.
type Inputs struct {
	NDVICurrent *float64
	NDVIPast    *float64
	Weather     *models.WeatherSnapshot
	Reports     []models.PestReport
}

// Assess runs the full chain (aggregate, normalize, score, classify,
// recommend) and assembles the assessment.
func Assess(id, location string, in Inputs, at time.Time) models.RiskAssessment {
	rep := SelectRepresentative(in.Reports)
	features := Normalize(in.NDVICurrent, in.NDVIPast, in.Weather, in.Reports)
	score := Score(features)
	level := Classify(score)

	return models.RiskAssessment{
		ID:             id,
		Location:       location,
		Crop:           rep.Crop,
		Symptom:        rep.Symptom,
		Severity:       rep.Severity,
		Score:          score,
		Level:          level,
		Pest:           InferPest(rep),
		Recommendation: RecommendationFor(level),
		LastUpdated:    at,
	}
}
