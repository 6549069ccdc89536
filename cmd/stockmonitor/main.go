// Package main provides the entrypoint for the real-time stock price monitor.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/pollwatch/pollwatch/internal/app"
	"github.com/pollwatch/pollwatch/internal/config"
	"github.com/pollwatch/pollwatch/internal/console"
	"github.com/pollwatch/pollwatch/internal/monitor"
	"github.com/pollwatch/pollwatch/internal/quote"
	"github.com/pollwatch/pollwatch/internal/quote/yahoo"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "stockmonitor"

	// SIGTERM aborts in-flight requests; SIGINT belongs to the monitor's pause menu.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		app.Fatal(app.NewLogger(os.Stderr, serviceName, Version, zerolog.WarnLevel), err, "invalid configuration")
	}

	a, err := app.New(ctx, cfg, serviceName, Version, os.Stderr)
	if err != nil {
		app.Fatal(app.NewLogger(os.Stderr, serviceName, Version, cfg.LogLevel), err, "startup failed")
	}

	a.Logger.Info().
		Str("build_time", BuildTime).
		Dur("interval", cfg.StockPollInterval).
		Msg("starting stock monitor")

	source := quote.NewSource(quote.SourceConfig{
		Provider: yahoo.NewClient(yahoo.ClientConfig{
			BaseURL:    cfg.YahooBaseURL,
			HTTPClient: a.Client(yahoo.ProviderName),
			Logger:     a.Logger,
		}),
		Interval: cfg.StockPollInterval,
		Logger:   a.Logger,
	})

	prompter := console.New(os.Stdin, os.Stdout)
	prompter.Println("Initializing Real-Time Stock Price Monitor...")

	m := monitor.New(monitor.Config[quote.Target, *quote.Quote]{
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
