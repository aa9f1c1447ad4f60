package risk

import (
	"strings"

	"github.com/warkadguard/riskwatch/internal/models"
)

const (
	PestFallArmyworm = "Fall Armyworm"
	PestGeneral      = "General Pest"
	PestUnknown      = "Unknown Pest"
)

// recommendations is keyed by level only. Field reports rarely identify the
// species reliably, so guidance does not depend on the inferred pest.
var recommendations = map[models.RiskLevel]models.Recommendation{
	models.RiskLow: {
		English: "Monitor crop daily and consult local extension officer.",
		Amharic: "የእርሻዎን በየቀኑ ይከታተሉ እና ከአካባቢ መምሪያ ባለሙያ ጋር ይወያዩ።",
	},
	models.RiskMedium: {
		English: "Spray neem extract or ash-water mix within 2 days.",
		Amharic: "በሁለት ቀናት ውስጥ የኒም ጭማቂ ወይም የአመድ እና የውሃ ውህድ ይርጩ።",
	},
	models.RiskHigh: {
		English: "Apply recommended pesticides immediately and remove infected plants.",
		Amharic: "የተመከሩትን ፀረ-ተባይ መድኃኒቶች በአስቸኳይ ይርጩ እና የተበከሉ ተክሎችን ያስወግዱ።",
	},
}

// RecommendationFor returns the guidance for a level. Unknown levels get the
// low-risk guidance.
func RecommendationFor(level models.RiskLevel) models.Recommendation {
	if rec, ok := recommendations[level]; ok {
		return rec
	}
	return recommendations[models.RiskLow]
}

// InferPest names the likely pest from the representative report.
// This is a coarse substring heuristic; "hole" in the symptom is read as
// Fall Armyworm feeding damage.
func InferPest(rep Representative) string {
	if !rep.Found {
		return PestUnknown
	}
	if strings.Contains(strings.ToLower(rep.Symptom), "hole") {
		return PestFallArmyworm
	}
	return PestGeneral
}
