package risk

import (
	"strings"

	"github.com/warkadguard/riskwatch/internal/models"
)

const unknown = "unknown"

// Representative is the single report chosen to stand for a kebele's
// submissions in a window.
type Representative struct {
	Crop     string
	Symptom  string
	Severity models.Severity
	// Found is false when there were no reports at all.
	Found bool
}

// SelectRepresentative picks the report with the highest severity rank.
// Ties keep the first report encountered; callers must not rely on that order.
func SelectRepresentative(reports []models.PestReport) Representative {
	if len(reports) == 0 {
		return Representative{Crop: unknown, Symptom: unknown, Severity: models.SeverityNone}
	}

	best := 0
	bestRank := models.ParseSeverity(string(reports[0].Severity)).Rank()
	for i := 1; i < len(reports); i++ {
		rank := models.ParseSeverity(string(reports[i].Severity)).Rank()
		if rank > bestRank {
			best, bestRank = i, rank
		}
	}

	r := reports[best]
	return Representative{
		Crop:     orUnknown(r.Crop),
		Symptom:  orUnknown(r.Symptom),
		Severity: models.ParseSeverity(string(r.Severity)),
		Found:    true,
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}
