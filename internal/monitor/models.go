// Package monitor runs the poll-and-report loop: a configuration phase, then
// fetch, render and sleep until the user interrupts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pollwatch/pollwatch/internal/console"
	"github.com/pollwatch/pollwatch/internal/notify"
)

// Monitor errors.
var (
	ErrEmptyInput      = errors.New("input cannot be empty")
	ErrInvalidInterval = errors.New("interval must be positive")
)

// ValidationError is returned when a target fails validation. The caller re-prompts.
type ValidationError struct {
	// Input is what the user typed.
	Input string

	// Err is the reason: ErrEmptyInput or the lookup's fetch error.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid target %q: %v", e.Input, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Schedule is how often the target is polled.
type Schedule struct {
	Interval time.Duration
}

// NewSchedule validates the interval.
func NewSchedule(interval time.Duration) (Schedule, error) {
	if interval <= 0 {
		return Schedule{}, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	return Schedule{Interval: interval}, nil
}

// Setup is the outcome of the configuration phase.
type Setup[T fmt.Stringer] struct {
	Target   T
	Schedule Schedule
}

// Report is the rendered form of one successful poll.
type Report struct {
	// Lines are printed to the console.
	Lines []string

	// Message goes to the side channels; nil sends nothing.
	Message *notify.Message
}

// Source knows how to configure, fetch and render one kind of target.
type Source[T fmt.Stringer, R any] interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Configure prompts until a target validates. It returns console.ErrNoInput
	// when input ends.
	Configure(ctx context.Context, p *console.Prompter) (Setup[T], error)

	// Fetch polls the target once. Failures are *provider.Error values.
	Fetch(ctx context.Context, target T) (R, error)

	// Render formats a successful poll.
	Render(target T, result R, at time.Time) Report

	// RenderError formats a failed poll.
	RenderError(target T, err error, at time.Time) []string
}

// State is the loop's lifecycle state.
type State int

const (
	StateConfiguring State = iota
	StateRunning
	StateInterrupted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "CONFIGURING"
	case StateRunning:
		return "RUNNING"
	case StateInterrupted:
		return "INTERRUPTED"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
