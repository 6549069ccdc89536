package weather

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pollwatch/pollwatch/internal/airquality"
	"github.com/pollwatch/pollwatch/internal/console"
	"github.com/pollwatch/pollwatch/internal/monitor"
	"github.com/pollwatch/pollwatch/internal/notify"
	"github.com/pollwatch/pollwatch/internal/provider"
)

// SourceName identifies the weather source in logs and metrics.
const SourceName = "weather"

const (
	timestampLayout = "2006-01-02 15:04:05"
	separator       = "------------------------------"
)

// SourceConfig holds the collaborators of a weather Source.
type SourceConfig struct {
	// Weather provides current conditions (required).
	Weather Provider

	// AirQuality provides the AQI (optional; AQI is reported unavailable without it).
	AirQuality airquality.Provider

	// Units selects the unit labels used when rendering (default: metric).
	Units Units

	// Logger for source operations.
	Logger zerolog.Logger
}

// Source validates a city, then polls its weather and air quality.
type Source struct {
	weather Provider
	air     airquality.Provider
	units   Units
	logger  zerolog.Logger
}

// NewSource creates a weather source.
func NewSource(cfg SourceConfig) *Source {
	units := cfg.Units
	if units == "" {
		units = UnitsMetric
	}
	return &Source{
		weather: cfg.Weather,
		air:     cfg.AirQuality,
		units:   units,
		logger:  cfg.Logger,
	}
}

// Name returns the source name.
func (s *Source) Name() string {
	return SourceName
}

// Validate queries the provider once for city. Empty input is rejected
// without a call.
func (s *Source) Validate(ctx context.Context, city string) (Target, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Target{}, &monitor.ValidationError{Input: city, Err: monitor.ErrEmptyInput}
	}

	if _, err := s.weather.GetCurrentWeather(ctx, city); err != nil {
		return Target{}, &monitor.ValidationError{Input: city, Err: err}
	}

	return Target{City: city}, nil
}

// Configure asks for a city until one validates, then for the poll frequency in minutes.
func (s *Source) Configure(ctx context.Context, p *console.Prompter) (monitor.Setup[Target], error) {
	var target Target
	for {
		city, err := p.AskNonEmpty(ctx, "Enter City Name: ", "City name cannot be empty.")
		if err != nil {
			return monitor.Setup[Target]{}, err
		}

		p.Printf("Checking '%s'...\n", city)
		target, err = s.Validate(ctx, city)
		if err == nil {
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return monitor.Setup[Target]{}, ctxErr
		}
		var vErr *monitor.ValidationError
		if !errors.As(err, &vErr) {
			return monitor.Setup[Target]{}, err
		}
		s.logger.Info().Err(err).Str("city", city).Msg("city rejected")
		p.Println(failureMessage(vErr.Err))
	}

	minutes, err := p.AskPositiveFloat(ctx, "Enter Frequency (in minutes): ", "Frequency must be positive.")
	if err != nil {
		return monitor.Setup[Target]{}, err
	}

	schedule, err := monitor.NewSchedule(time.Duration(minutes * float64(time.Minute)))
	if err != nil {
		return monitor.Setup[Target]{}, err
	}

	return monitor.Setup[Target]{Target: target, Schedule: schedule}, nil
}

// Fetch polls the weather and then the air quality at the returned coordinates.
// Only a weather failure fails the poll.
func (s *Source) Fetch(ctx context.Context, target Target) (Report, error) {
	obs, err := s.weather.GetCurrentWeather(ctx, target.City)
	if err != nil {
		return Report{}, err
	}

	report := Report{Observation: obs}
	if s.air == nil {
		return report, nil
	}

	reading, err := s.air.GetCurrent(ctx, obs.Lat, obs.Lon)
	if err != nil {
		s.logger.Warn().Err(err).Str("city", target.City).Msg("air quality unavailable")
		report.AirQualityErr = err
		return report, nil
	}
	report.AirQuality = reading
	return report, nil
}

// Render formats a successful poll as a block of lines.
func (s *Source) Render(target Target, r Report, at time.Time) monitor.Report {
	obs := r.Observation
	temperature := formatNumber(obs.Temperature) + s.units.TemperatureSymbol()
	condition := capitalize(obs.Description)
	if condition == "" {
		condition = capitalize(strings.ToLower(string(obs.Condition)))
	}

	aqi := "unavailable"
	if r.AirQuality != nil {
		aqi = fmt.Sprintf("%d (%s)", r.AirQuality.Index, r.AirQuality.Index.Label())
	}

	lines := []string{
		fmt.Sprintf("[%s] Weather in %s:", at.Format(timestampLayout), target.City),
		"  Temperature: " + temperature,
		"  Humidity: " + formatNumber(obs.Humidity) + "%",
		"  Wind Speed: " + formatNumber(obs.WindSpeed) + " " + s.units.SpeedUnit(),
		"  Condition: " + condition,
		"  AQI: " + aqi,
		separator,
	}

	msg := &notify.Message{
		Text: fmt.Sprintf("Weather in %s: %s, %s, humidity %s%%, AQI %s",
			target.City, temperature, condition, formatNumber(obs.Humidity), aqi),
		Speech: fmt.Sprintf("The temperature in %s is %d degrees with %s",
			target.City, int(obs.Temperature), strings.ToLower(condition)),
	}

	return monitor.Report{Lines: lines, Message: msg}
}

// RenderError formats a failed poll.
func (s *Source) RenderError(_ Target, err error, at time.Time) []string {
	return []string{fmt.Sprintf("[%s] %s", at.Format(timestampLayout), failureMessage(err))}
}

// failureMessage maps a fetch failure to the message shown to the user.
func failureMessage(err error) string {
	cause := err
	var pErr *provider.Error
	if errors.As(err, &pErr) && pErr.Err != nil {
		cause = pErr.Err
	}

	switch provider.KindOf(err) {
	case provider.KindNotFound:
		return "City not found. Please check the city name."
	case provider.KindUnauthorized:
		return "Invalid API Key. Please check your API key."
	case provider.KindTimeout:
		return fmt.Sprintf("Timeout Error: %v", cause)
	case provider.KindConnection:
		return fmt.Sprintf("Error Connecting: %v", cause)
	default:
		return fmt.Sprintf("Something else went wrong: %v", cause)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
