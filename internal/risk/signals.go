// Package risk fuses vegetation, weather and field-report signals into a
// bounded composite pest-risk score and a bilingual recommendation.
//
// The score is additive over three independent contributions and clamped:
//
//	score = min(ndvi + weather + reports, 1.0)
//
// The NDVI term rewards vegetation loss between a baseline and a recent
// window, the weather term flags conditions favourable to pest development,
// and the report term counts farmer submissions by severity.
//
// Every input is optional. A missing signal contributes nothing and never
// produces an error, so partial data can always be scored.
package risk

import (
	"github.com/warkadguard/riskwatch/internal/models"
)

const (
	pestTempMin     = 20.0 // °C, inclusive
	pestTempMax     = 35.0 // °C, inclusive
	humidityHighMin = 70.0 // %, inclusive
)

// Features is the normalized view of one kebele's signals for a pass.
type Features struct {
	// NDVIDrop is past − current, or nil when either reading is missing.
	NDVIDrop        *float64
	TempInPestRange bool
	HumidityHigh    bool
	ManyCount       int
	FewCount        int
}

// Normalize reduces raw signals to Features. Nil inputs degrade to
// "contributes nothing".
func Normalize(current, past *float64, weather *models.WeatherSnapshot, reports []models.PestReport) Features {
	var f Features

	if current != nil && past != nil {
		drop := *past - *current
		f.NDVIDrop = &drop
	}

	if weather != nil {
		f.TempInPestRange = weather.Temperature >= pestTempMin && weather.Temperature <= pestTempMax
		f.HumidityHigh = weather.Humidity >= humidityHighMin
	}

	for _, r := range reports {
		switch models.ParseSeverity(string(r.Severity)) {
		case models.SeverityMany:
			f.ManyCount++
		case models.SeverityFew:
			f.FewCount++
		}
	}

	return f
}
