// Package app wires the shared runtime of the monitor binaries: logging,
// telemetry, provider clients and side channels.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/pollwatch/pollwatch/internal/config"
	"github.com/pollwatch/pollwatch/internal/notify"
	"github.com/pollwatch/pollwatch/internal/provider/resilience"
	"github.com/pollwatch/pollwatch/internal/telemetry"
)

// App holds what every monitor binary needs before its source is built.
type App struct {
	Config    config.Config
	Logger    zerolog.Logger
	Registry  *resilience.Registry
	Telemetry *telemetry.Provider
	Metrics   *telemetry.PollMetrics
}

// New builds the logger and telemetry for serviceName. Logs go to logOut so
// they never interleave with console status lines on stdout.
func New(ctx context.Context, cfg config.Config, serviceName, version string, logOut io.Writer) (*App, error) {
	log := NewLogger(logOut, serviceName, version, cfg.LogLevel)

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Enabled:        cfg.OTelEnabled,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		MetricInterval: cfg.OTelMetricInterval,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	if tp.Enabled() {
		log.Info().
			Str("endpoint", cfg.OTLPEndpoint).
			Dur("metric_interval", cfg.OTelMetricInterval).
			Float64("sample_ratio", cfg.OTelSampleRatio).
			Msg("telemetry enabled")
	}

	metrics, err := telemetry.NewPollMetrics()
	if err != nil {
		return nil, fmt.Errorf("create poll metrics: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    log,
		Registry:  resilience.NewRegistry(),
		Telemetry: tp,
		Metrics:   metrics,
	}, nil
}

// NewLogger returns a console logger tagged with the service and version.
func NewLogger(out io.Writer, serviceName, version string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", version).
		Logger()
}

// Client returns a registered provider client using the configured request
// timeout. Provider clients have no circuit breaker.
func (a *App) Client(name string) *resilience.Client {
	return a.register(resilience.DefaultClientConfig(name))
}

// SideChannelClient returns a registered notification client guarded by a
// circuit breaker.
func (a *App) SideChannelClient(name string) *resilience.Client {
	cfg := resilience.SideChannelClientConfig(name)
	cfg.CircuitBreaker.Logger = a.Logger
	return a.register(cfg)
}

func (a *App) register(cfg resilience.ClientConfig) *resilience.Client {
	cfg.Timeout = a.Config.RequestTimeout
	client := resilience.NewClient(cfg)
	a.Registry.Register(client)
	return client
}

// ErrorBackOff returns the constant pause used after unexpected iteration errors.
func (a *App) ErrorBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(a.Config.ErrorBackOff)
}

// Dispatcher builds the configured side channels. Channels without settings
// are skipped and logged.
func (a *App) Dispatcher() *notify.Dispatcher {
	var notifiers []notify.Notifier

	if a.Config.WebhookURL != "" {
		webhook, err := notify.NewWebhook(notify.WebhookConfig{
			URL:        a.Config.WebhookURL,
			Recipient:  a.Config.WebhookRecipient,
			HTTPClient: a.SideChannelClient("webhook"),
		})
		if err != nil {
			a.Logger.Warn().Err(err).Msg("webhook disabled")
		} else {
			notifiers = append(notifiers, webhook)
		}
	} else {
		a.Logger.Debug().Msg("webhook not configured, skipping")
	}

	if a.Config.TelegramConfigured() {
		tg, tgErr := notify.NewTelegram(notify.TelegramConfig{
			Token:      a.Config.TelegramToken,
			ChatID:     a.Config.TelegramChatID,
			HTTPClient: a.SideChannelClient("telegram"),
		})
		if tgErr != nil {
			a.Logger.Warn().Err(tgErr).Msg("telegram disabled")
		} else {
			notifiers = append(notifiers, tg)
		}
	} else {
		a.Logger.Debug().Msg("telegram not configured, skipping")
	}

	if a.Config.SpeechEnabled {
		speaker, spErr := notify.NewSpeaker(notify.SpeakerConfig{Command: a.Config.SpeechCommand})
		if spErr != nil {
			a.Logger.Info().Err(spErr).Msg("speech disabled")
		} else {
			a.Logger.Debug().Str("command", speaker.Command()).Msg("speech enabled")
			notifiers = append(notifiers, speaker)
		}
	}

	d := notify.NewDispatcher(notify.DispatcherConfig{
		Notifiers: notifiers,
		Timeout:   a.Config.RequestTimeout,
		Logger:    a.Logger,
	})
	a.Logger.Info().Int("channels", d.Len()).Msg("side channels configured")
	return d
}

// Shutdown flushes telemetry with a bounded timeout.
func (a *App) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("failed to shutdown telemetry")
	}
}

// ExitCode maps the result of a monitor run to a process exit code.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}

// Fatal logs a startup error and exits with status 1.
func Fatal(log zerolog.Logger, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	os.Exit(1)
}
