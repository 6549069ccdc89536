// Package weather implements the weather bot source: city validation, current
// conditions and the air-quality index for the same location.
package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pollwatch/pollwatch/internal/airquality"
)

// ErrUnknownUnits is returned by ParseUnits.
var ErrUnknownUnits = errors.New("unknown units")

// Target is the city being watched.
type Target struct {
	City string
}

func (t Target) String() string {
	return t.City
}

// Units selects the measurement system requested from the provider.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ParseUnits accepts "metric" or "imperial", case-insensitively. Empty means metric.
func ParseUnits(s string) (Units, error) {
	switch Units(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnitsMetric:
		return UnitsMetric, nil
	case UnitsImperial:
		return UnitsImperial, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUnits, s)
	}
}

// TemperatureSymbol returns the temperature unit suffix.
func (u Units) TemperatureSymbol() string {
	if u == UnitsImperial {
		return "°F"
	}
	return "°C"
}

// SpeedUnit returns the wind speed unit.
func (u Units) SpeedUnit() string {
	if u == UnitsImperial {
		return "mph"
	}
	return "m/s"
}

// Observation represents current weather for a city.
type Observation struct {
	// City and Country as resolved by the provider.
	City    string
	Country string

	// Location coordinates, used for the air-quality lookup.
	Lat float64
	Lon float64

	// Temperature in the requested units.
	Temperature float64

	// Humidity percentage (0-100)
	Humidity float64

	// WindSpeed in the requested units.
	WindSpeed float64

	Condition   Condition
	Description string

	ObservedAt time.Time
	FetchedAt  time.Time
}

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Report is the result of one weather poll. AirQuality is nil when the
// air-pollution lookup failed; AirQualityErr then holds the reason.
type Report struct {
	Observation   *Observation
	AirQuality    *airquality.Reading
	AirQualityErr error
}

// Provider fetches current weather by city name.
type Provider interface {
	Name() string
	GetCurrentWeather(ctx context.Context, city string) (*Observation, error)
}
