// Package models defines the core domain entities for riskwatch.
// These models represent monitored kebeles, the farmers registered in them,
// field pest reports, transient remote-sensing and weather signals, and the
// risk assessments produced by each evaluation pass.
//
// Terminology:
//   - Kebele: the smallest administrative unit tracked; identified by name.
//   - Assessment: the fused risk verdict for one kebele in one pass.
package models

import (
	"errors"
	"strings"
	"time"
)

// Location is a monitored kebele. The name is its identity.
type Location struct {
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that all location fields are valid.
func (l *Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("location name must not be empty")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// Farmer is an alert recipient registered to a kebele.
type Farmer struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Kebele string `json:"kebele"`
}

// Validate checks that all farmer fields are valid.
func (f *Farmer) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("farmer name must not be empty")
	}
	if strings.TrimSpace(f.Phone) == "" {
		return errors.New("farmer phone must not be empty")
	}
	if strings.TrimSpace(f.Kebele) == "" {
		return errors.New("farmer kebele must not be empty")
	}
	return nil
}
