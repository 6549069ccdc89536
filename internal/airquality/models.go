// Package airquality models the air-quality index reported alongside the weather.
package airquality

import (
	"context"
	"time"
)

// Pollutant is a component reported by the air-pollution endpoint.
type Pollutant string

const (
	PollutantCO   Pollutant = "CO"
	PollutantNO   Pollutant = "NO"
	PollutantNO2  Pollutant = "NO2"
	PollutantO3   Pollutant = "O3"
	PollutantSO2  Pollutant = "SO2"
	PollutantPM25 Pollutant = "PM25"
	PollutantPM10 Pollutant = "PM10"
	PollutantNH3  Pollutant = "NH3"
)

// Index is the 1 (good) to 5 (very poor) air-quality index.
type Index int

// Label returns the human-readable band of the index.
func (i Index) Label() string {
	switch i {
	case 1:
		return "Good"
	case 2:
		return "Fair"
	case 3:
		return "Moderate"
	case 4:
		return "Poor"
	case 5:
		return "Very Poor"
	default:
		return "Unknown"
	}
}

// Reading is one air-quality measurement for a location.
type Reading struct {
	Index Index

	// Components holds concentrations in μg/m3, keyed by pollutant.
	Components map[Pollutant]float64

	MeasuredAt time.Time
}

// Provider fetches the current reading for a coordinate pair.
type Provider interface {
	Name() string
	GetCurrent(ctx context.Context, lat, lon float64) (*Reading, error)
}
