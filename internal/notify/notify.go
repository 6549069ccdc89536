// Package notify delivers poll results to best-effort side channels: a JSON
// webhook, a Telegram chat and local text-to-speech.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/pollwatch/pollwatch/internal/notify"

// Message is what a successful poll hands to the side channels.
type Message struct {
	// Text is the written status, sent to webhooks and chats.
	Text string

	// Speech is the spoken form. Speakers fall back to Text when empty.
	Speech string
}

// Notifier is one side channel.
type Notifier interface {
	// Name identifies the channel in logs.
	Name() string

	// Notify delivers msg.
	Notify(ctx context.Context, msg Message) error
}

// Error is a failed side-channel delivery. It is logged and never propagated.
type Error struct {
	Notifier string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Notifier, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	// Notifiers are called in order.
	Notifiers []Notifier

	// Timeout bounds each delivery (default: 10 seconds).
	Timeout time.Duration

	// Logger receives delivery failures.
	Logger zerolog.Logger
}

// Dispatcher fans a message out to every notifier, swallowing failures.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    zerolog.Logger
	failures  metric.Int64Counter
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	failures, err := otel.Meter(meterName).Int64Counter(
		"pollwatch.notify.failures",
		metric.WithDescription("Side-channel deliveries that failed"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("failed to create notify failure counter")
	}

	return &Dispatcher{
		notifiers: cfg.Notifiers,
		timeout:   timeout,
		logger:    cfg.Logger,
		failures:  failures,
	}
}

// Len returns the number of configured notifiers.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.notifiers)
}

// Dispatch delivers msg to every notifier. Failures are logged and returned
// for inspection; callers are free to ignore them.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) []error {
	if d == nil {
		return nil
	}

	var failed []error
	for _, n := range d.notifiers {
		if err := d.deliver(ctx, n, msg); err != nil {
			failed = append(failed, err)
		}
	}
	return failed
}

func (d *Dispatcher) deliver(ctx context.Context, n Notifier, msg Message) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = d.fail(ctx, n, fmt.Errorf("panic: %v", r))
		}
	}()

	if notifyErr := n.Notify(ctx, msg); notifyErr != nil {
		return d.fail(ctx, n, notifyErr)
	}

	d.logger.Debug().Str("notifier", n.Name()).Msg("notification delivered")
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, n Notifier, cause error) error {
	err := &Error{Notifier: n.Name(), Err: cause}
	d.logger.Warn().Err(err).Str("notifier", n.Name()).Msg("side channel failed")
	if d.failures != nil {
		d.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("notifier", n.Name())))
	}
	return err
}
