package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pollwatch/pollwatch/internal/console"
	"github.com/pollwatch/pollwatch/internal/notify"
	"github.com/pollwatch/pollwatch/internal/provider"
	"github.com/pollwatch/pollwatch/internal/telemetry"
)

const tracerName = "github.com/pollwatch/pollwatch/internal/monitor"

// DefaultErrorBackOff is the pause after an unexpected iteration error.
const DefaultErrorBackOff = 5 * time.Second

var pauseOptions = []console.Option{
	{Key: "1", Label: "Change settings"},
	{Key: "2", Label: "Exit application"},
	{Key: "3", Label: "Resume"},
}

// Config holds the collaborators of a Monitor.
type Config[T fmt.Stringer, R any] struct {
	// Source configures, fetches and renders the target (required).
	Source Source[T, R]

	// Prompter reads answers and prints status (required).
	Prompter *console.Prompter

	// Interrupts delivers Ctrl+C while polling (default: OSInterrupts).
	Interrupts Interrupts

	// Dispatcher receives a message after every successful poll (optional).
	Dispatcher *notify.Dispatcher

	// ErrorBackOff paces iterations after unexpected errors
	// (default: constant DefaultErrorBackOff).
	ErrorBackOff backoff.BackOff

	// Status returns provider health lines shown on the pause screen (optional).
	Status func() []string

	// Metrics records polls (default: instruments on the global meter).
	Metrics *telemetry.PollMetrics

	// Logger for loop diagnostics.
	Logger zerolog.Logger

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// Monitor is the poll-and-report loop for one source. It is not safe for
// concurrent use; Run drives everything from the calling goroutine.
type Monitor[T fmt.Stringer, R any] struct {
	source       Source[T, R]
	prompter     *console.Prompter
	interrupts   Interrupts
	dispatcher   *notify.Dispatcher
	errorBackOff backoff.BackOff
	status       func() []string
	metrics      *telemetry.PollMetrics
	tracer       trace.Tracer
	logger       zerolog.Logger
	now          func() time.Time

	state     State
	setup     Setup[T]
	hasSetup  bool
	sessionID string
}

// New creates a Monitor in the CONFIGURING state.
func New[T fmt.Stringer, R any](cfg Config[T, R]) *Monitor[T, R] {
	interrupts := cfg.Interrupts
	if interrupts == nil {
		interrupts = OSInterrupts()
	}

	errorBackOff := cfg.ErrorBackOff
	if errorBackOff == nil {
		errorBackOff = backoff.NewConstantBackOff(DefaultErrorBackOff)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	metrics := cfg.Metrics
	if metrics == nil {
		m, err := telemetry.NewPollMetrics()
		if err != nil {
			cfg.Logger.Warn().Err(err).Msg("failed to create poll metrics")
		}
		metrics = m
	}

	return &Monitor[T, R]{
		source:       cfg.Source,
		prompter:     cfg.Prompter,
		interrupts:   interrupts,
		dispatcher:   cfg.Dispatcher,
		errorBackOff: errorBackOff,
		status:       cfg.Status,
		metrics:      metrics,
		tracer:       telemetry.Tracer(tracerName),
		logger:       cfg.Logger.With().Str("source", cfg.Source.Name()).Logger(),
		now:          now,
		state:        StateConfiguring,
	}
}

// State returns the current lifecycle state.
func (m *Monitor[T, R]) State() State {
	return m.state
}

// Setup returns the active target and schedule, if one has been configured.
func (m *Monitor[T, R]) Setup() (Setup[T], bool) {
	return m.setup, m.hasSetup
}

// SessionID identifies the current monitoring session. It changes on every
// successful configuration.
func (m *Monitor[T, R]) SessionID() string {
	return m.sessionID
}

// Run drives the state machine until the user exits, input ends or ctx is done.
// It returns nil on a user exit or end of input and ctx.Err() on cancellation.
func (m *Monitor[T, R]) Run(ctx context.Context) error {
	defer m.interrupts.Release()

	for {
		switch m.state {
		case StateConfiguring:
			if err := m.configure(ctx); err != nil {
				return m.terminate(err)
			}
			m.transition(StateRunning)

		case StateRunning:
			if err := m.poll(ctx); err != nil {
				return m.terminate(err)
			}
			m.transition(StateInterrupted)

		case StateInterrupted:
			next, err := m.pause(ctx)
			if err != nil {
				return m.terminate(err)
			}
			m.transition(next)

		case StateTerminated:
			return nil
		}
	}
}

func (m *Monitor[T, R]) transition(to State) {
	m.logger.Debug().
		Str("from", m.state.String()).
		Str("to", to.String()).
		Str("session_id", m.sessionID).
		Msg("monitor state changed")
	m.state = to
}

func (m *Monitor[T, R]) terminate(err error) error {
	m.transition(StateTerminated)
	if errors.Is(err, console.ErrNoInput) {
		m.logger.Info().Msg("input closed, exiting")
		return nil
	}
	return err
}

// configure runs the configuration phase. Interrupts are released so Ctrl+C at a
// prompt behaves like it does in any other console program.
func (m *Monitor[T, R]) configure(ctx context.Context) error {
	m.interrupts.Release()

	setup, err := m.source.Configure(ctx, m.prompter)
	if err != nil {
		return err
	}

	reconfigured := m.hasSetup
	m.setup = setup
	m.hasSetup = true
	m.sessionID = uuid.NewString()
	m.errorBackOff.Reset()

	m.logger.Info().
		Str("session_id", m.sessionID).
		Str("target", setup.Target.String()).
		Dur("interval", setup.Schedule.Interval).
		Msg("monitoring session started")

	if reconfigured {
		m.prompter.Printf("\nResuming with new settings: %s...\n", setup.Target)
		return nil
	}
	m.prompter.Printf("\nStarted monitoring %s.\n", setup.Target)
	m.prompter.Printf("Updates every %s.\n", setup.Schedule.Interval)
	m.prompter.Println("Press Ctrl+C at any time to change settings or exit.")
	return nil
}

// poll runs fetch, render and sleep until an interrupt arrives (nil) or ctx ends.
// An interrupt that arrives mid-fetch is handled once the fetch returns.
func (m *Monitor[T, R]) poll(ctx context.Context) error {
	interrupted := m.interrupts.Listen()

	for {
		delay := m.setup.Schedule.Interval

		if err := m.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Error().Err(err).Str("session_id", m.sessionID).Msg("unexpected error during poll")
			m.prompter.Printf("Unexpected Error: %v\n", err)
			if next := m.errorBackOff.NextBackOff(); next != backoff.Stop {
				delay = next
			}
		} else {
			m.errorBackOff.Reset()
		}

		select {
		case <-interrupted:
			return nil
		default:
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-interrupted:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// iterate performs one fetch and render. Provider errors are rendered and
// swallowed; anything else, including a panic, is returned.
func (m *Monitor[T, R]) iterate(ctx context.Context) (err error) {
	target := m.setup.Target

	ctx, span := m.tracer.Start(ctx, "monitor.poll", trace.WithAttributes(
		attribute.String("source", m.source.Name()),
		attribute.String("target", target.String()),
		attribute.String("session_id", m.sessionID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Str("session_id", m.sessionID).
				Msg("panic recovered")
			err = fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
		}
	}()

	start := m.now()
	result, fetchErr := m.source.Fetch(ctx, target)
	at := m.now()

	if fetchErr != nil {
		span.RecordError(fetchErr)
		span.SetStatus(codes.Error, "fetch failed")

		if !provider.IsProviderError(fetchErr) {
			return fetchErr
		}

		m.metrics.RecordPoll(ctx, m.source.Name(), string(provider.KindOf(fetchErr)), at.Sub(start))
		m.logger.Warn().
			Err(fetchErr).
			Str("session_id", m.sessionID).
			Str("kind", string(provider.KindOf(fetchErr))).
			Msg("fetch failed")
		m.prompter.Lines(m.source.RenderError(target, fetchErr, at))
		return nil
	}

	m.metrics.RecordPoll(ctx, m.source.Name(), telemetry.OutcomeOK, at.Sub(start))

	report := m.source.Render(target, result, at)
	m.prompter.Lines(report.Lines)

	if report.Message != nil && m.dispatcher != nil {
		m.dispatcher.Dispatch(ctx, *report.Message)
	}
	return nil
}

// pause shows the interrupt menu and returns the next state.
func (m *Monitor[T, R]) pause(ctx context.Context) (State, error) {
	m.interrupts.Release()

	m.prompter.Banner("PAUSED", "!")
	if m.status != nil {
		if lines := m.status(); len(lines) > 0 {
			m.prompter.Println("Provider status:")
			for _, line := range lines {
				m.prompter.Println("  " + line)
			}
		}
	}

	choice, err := m.prompter.Menu(ctx, "What would you like to do?", pauseOptions, "Enter choice: ")
	if err != nil {
		return StateTerminated, err
	}

	switch choice {
	case "1":
		return StateConfiguring, nil
	case "2":
		m.prompter.Println("Exiting. Goodbye!")
		return StateTerminated, nil
	default:
		m.prompter.Println("Resuming...")
		return StateRunning, nil
	}
}
