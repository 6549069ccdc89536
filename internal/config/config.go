// Package config reads the monitors' settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pollwatch/pollwatch/internal/weather"
)

// Configuration errors.
var (
	ErrMissingAPIKey     = errors.New("OWM_API_KEY is required")
	ErrNonPositive       = errors.New("must be positive")
	ErrInvalidTelegramID = errors.New("TELEGRAM_CHAT_ID must be an integer")
	ErrSampleRatio       = errors.New("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1")
)

// Config holds settings shared by both monitors.
type Config struct {
	// OpenWeatherMap
	OWMAPIKey  string
	OWMBaseURL string
	Units      weather.Units

	// Yahoo Finance
	YahooBaseURL string

	// Timing
	RequestTimeout    time.Duration
	StockPollInterval time.Duration
	ErrorBackOff      time.Duration

	// Side channels
	WebhookURL       string
	WebhookRecipient string
	TelegramToken    string
	TelegramChatID   int64
	SpeechEnabled    bool
	SpeechCommand    string

	// Ambient
	LogLevel     zerolog.Level
	Environment  string
	OTelEnabled        bool
	OTLPEndpoint       string
	OTelMetricInterval time.Duration
	OTelSampleRatio    float64
}

// FromEnv creates a Config from environment variables. Malformed values are
// reported together; defaults apply to unset variables.
func FromEnv() (Config, error) {
	var errs []error

	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnvOrDefault(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	boolean := func(key string, def bool) bool {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return b
	}

	units, err := weather.ParseUnits(os.Getenv("OWM_UNITS"))
	if err != nil {
		errs = append(errs, fmt.Errorf("OWM_UNITS: %w", err))
	}

	var chatID int64
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, ErrInvalidTelegramID)
		}
	}

	sampleRatio, err := strconv.ParseFloat(getEnvOrDefault("OTEL_TRACES_SAMPLER_ARG", "1"), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG: %w", err))
		sampleRatio = 1
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getEnvOrDefault("LOG_LEVEL", "warn")))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		level = zerolog.WarnLevel
	}

	cfg := Config{
		OWMAPIKey:          os.Getenv("OWM_API_KEY"),
		OWMBaseURL:         os.Getenv("OWM_BASE_URL"),
		Units:              units,
		YahooBaseURL:       os.Getenv("YAHOO_BASE_URL"),
		RequestTimeout:     duration("REQUEST_TIMEOUT", "10s"),
		StockPollInterval:  duration("STOCK_POLL_INTERVAL", "20s"),
		ErrorBackOff:       duration("ERROR_BACKOFF", "5s"),
		WebhookURL:         os.Getenv("NOTIFY_WEBHOOK_URL"),
		WebhookRecipient:   os.Getenv("NOTIFY_RECIPIENT"),
		TelegramToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     chatID,
		SpeechEnabled:      boolean("SPEECH_ENABLED", true),
		SpeechCommand:      os.Getenv("SPEECH_COMMAND"),
		LogLevel:           level,
		Environment:        getEnvOrDefault("APP_ENV", "development"),
		OTelEnabled:        boolean("OTEL_ENABLED", false),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelMetricInterval: duration("OTEL_METRIC_EXPORT_INTERVAL", "15s"),
		OTelSampleRatio:    sampleRatio,
	}

	return cfg, errors.Join(errs...)
}

// Validate checks the settings both monitors depend on.
func (c Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT":     c.RequestTimeout,
		"STOCK_POLL_INTERVAL": c.StockPollInterval,
		"ERROR_BACKOFF":       c.ErrorBackOff,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s %w: %s", name, ErrNonPositive, d))
		}
	}
	if c.OTelEnabled && c.OTelMetricInterval <= 0 {
		errs = append(errs, fmt.Errorf("OTEL_METRIC_EXPORT_INTERVAL %w: %s", ErrNonPositive, c.OTelMetricInterval))
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		errs = append(errs, ErrSampleRatio)
	}
	return errors.Join(errs...)
}

// ValidateWeather additionally requires the OpenWeatherMap key.
func (c Config) ValidateWeather() error {
	if c.OWMAPIKey == "" {
		return errors.Join(c.Validate(), ErrMissingAPIKey)
	}
	return c.Validate()
}

// TelegramConfigured reports whether both the bot token and chat id are set.
func (c Config) TelegramConfigured() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
