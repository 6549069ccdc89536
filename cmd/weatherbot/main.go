// Package main provides the entrypoint for the weather notification bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	airowm "github.com/pollwatch/pollwatch/internal/airquality/openweathermap"
	"github.com/pollwatch/pollwatch/internal/app"
	"github.com/pollwatch/pollwatch/internal/config"
	"github.com/pollwatch/pollwatch/internal/console"
	"github.com/pollwatch/pollwatch/internal/monitor"
	"github.com/pollwatch/pollwatch/internal/weather"
	"github.com/pollwatch/pollwatch/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "weatherbot"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err == nil {
		err = cfg.ValidateWeather()
	}
	if err != nil {
		app.Fatal(app.NewLogger(os.Stderr, serviceName, Version, zerolog.WarnLevel), err, "invalid configuration")
	}

	a, err := app.New(ctx, cfg, serviceName, Version, os.Stderr)
	if err != nil {
		app.Fatal(app.NewLogger(os.Stderr, serviceName, Version, cfg.LogLevel), err, "startup failed")
	}

	weatherClient := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     cfg.OWMAPIKey,
		BaseURL:    cfg.OWMBaseURL,
		Units:      cfg.Units,
		HTTPClient: a.Client(openweathermap.ProviderName),
		Logger:     a.Logger,
	})

	a.Logger.Info().
		Str("build_time", BuildTime).
		Str("units", string(weatherClient.Units())).
		Msg("starting weather bot")

	airClient := airowm.NewClient(airowm.ClientConfig{
		APIKey:     cfg.OWMAPIKey,
		BaseURL:    cfg.OWMBaseURL,
		HTTPClient: a.Client(airowm.ProviderName),
		Logger:     a.Logger,
	})

	source := weather.NewSource(weather.SourceConfig{
		Weather:    weatherClient,
		AirQuality: airClient,
		Units:      weatherClient.Units(),
		Logger:     a.Logger,
	})

	prompter := console.New(os.Stdin, os.Stdout)
	prompter.Println("Welcome to the Weather Notification Bot!")

	m := monitor.New(monitor.Config[weather.Target, weather.Report]{
		Source:       source,
		Prompter:     prompter,
		Interrupts:   monitor.OSInterrupts(),
		Dispatcher:   a.Dispatcher(),
		ErrorBackOff: a.ErrorBackOff(),
		Status:       a.Registry.StatusLines,
		Metrics:      a.Metrics,
		Logger:       a.Logger,
	})

	runErr := m.Run(ctx)
	if runErr != nil {
		a.Logger.Warn().Err(runErr).Msg("monitor stopped")
	}

	a.Shutdown()
	stop()
	os.Exit(app.ExitCode(runErr))
}
