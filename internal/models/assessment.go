package models

import (
	"errors"
	"time"
)

// RiskLevel is the discrete classification of a composite score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Alerting reports whether farmers should be notified at this level.
func (l RiskLevel) Alerting() bool {
	return l == RiskMedium || l == RiskHigh
}

// Recommendation is bilingual remediation guidance.
type Recommendation struct {
	English string `json:"english"`
	Amharic string `json:"amharic"`
}

// RiskAssessment is the fused output of one evaluation for one kebele.
// It is never mutated after creation.
type RiskAssessment struct {
	ID             string         `json:"id"`
	Location       string         `json:"location"`
	Crop           string         `json:"crop"`
	Symptom        string         `json:"symptom"`
	Severity       Severity       `json:"severity"`
	Score          float64        `json:"risk_score"`
	Level          RiskLevel      `json:"risk_level"`
	Pest           string         `json:"pest"`
	Recommendation Recommendation `json:"recommendation"`
	LastUpdated    time.Time      `json:"last_updated"`
}

// Validate checks that all assessment fields are valid.
func (a *RiskAssessment) Validate() error {
	if a.ID == "" {
		return errors.New("assessment ID must not be empty")
	}
	if a.Location == "" {
		return errors.New("assessment location must not be empty")
	}
	if a.Score < 0.0 || a.Score > 1.0 {
		return errors.New("risk score must be between 0.0 and 1.0")
	}
	switch a.Level {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return errors.New("risk level must be low, medium or high")
	}
	if a.Recommendation.English == "" || a.Recommendation.Amharic == "" {
		return errors.New("recommendation must carry english and amharic text")
	}
	if a.LastUpdated.IsZero() {
		return errors.New("last updated must be set")
	}
	return nil
}
