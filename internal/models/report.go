package models

import (
	"errors"
	"strings"
	"time"
)

// Severity is the farmer-reported infestation level.
type Severity string

const (
	SeverityNone Severity = "none"
	SeverityFew  Severity = "few"
	SeverityMany Severity = "many"
)

// ParseSeverity maps a free-form label onto the closed set of severities.
// Unrecognised labels collapse to SeverityNone.
func ParseSeverity(label string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(label))) {
	case SeverityMany:
		return SeverityMany
	case SeverityFew:
		return SeverityFew
	default:
		return SeverityNone
	}
}

// Rank orders severities: many=2, few=1, anything else=0.
func (s Severity) Rank() int {
	switch s {
	case SeverityMany:
		return 2
	case SeverityFew:
		return 1
	default:
		return 0
	}
}

// PestReport is a single field submission. Reports are immutable once stored.
type PestReport struct {
	ID         int64     `json:"id"`
	ReportedAt time.Time `json:"reported_at"`
	Kebele     string    `json:"kebele"`
	Crop       string    `json:"crop"`
	Symptom    string    `json:"symptom"`
	Severity   Severity  `json:"severity"`
}

// Validate checks that all report fields are valid.
func (r *PestReport) Validate() error {
	if strings.TrimSpace(r.Kebele) == "" {
		return errors.New("report kebele must not be empty")
	}
	if r.ReportedAt.IsZero() {
		return errors.New("report time must be set")
	}
	if r.ReportedAt.After(time.Now().Add(time.Minute)) {
		return errors.New("report time must not be in the future")
	}
	return nil
}
