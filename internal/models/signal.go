package models

import (
	"errors"
	"time"
)

// WeatherSnapshot is a point weather observation. It is valid only for the
// instant it was fetched.
type WeatherSnapshot struct {
	Temperature   float64   `json:"temp"`     // °C
	Humidity      float64   `json:"humidity"` // relative humidity, %
	Precipitation float64   `json:"rain"`     // mm over the last hour
	ObservedAt    time.Time `json:"observed_at"`
}

// NDVIObservation records one scalar NDVI reading for a kebele and date range.
type NDVIObservation struct {
	Kebele string    `json:"kebele"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Value  float64   `json:"ndvi"`
}

// Validate checks that the NDVI value is in range.
func (o *NDVIObservation) Validate() error {
	if o.Kebele == "" {
		return errors.New("ndvi kebele must not be empty")
	}
	if o.Value < -1 || o.Value > 1 {
		return errors.New("ndvi must be between -1 and 1")
	}
	if o.End.Before(o.Start) {
		return errors.New("ndvi range end must not precede start")
	}
	return nil
}
