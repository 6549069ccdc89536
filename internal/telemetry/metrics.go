package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/pollwatch/pollwatch/internal/telemetry"

// OutcomeOK labels a successful poll; failures use the provider error kind.
const OutcomeOK = "ok"

// PollMetrics holds the instruments recorded by the polling loop.
type PollMetrics struct {
	polls         metric.Int64Counter
	fetchDuration metric.Float64Histogram
}

// NewPollMetrics creates the instruments on the global meter provider.
func NewPollMetrics() (*PollMetrics, error) {
	return NewPollMetricsWithMeter(otel.Meter(meterName))
}

// NewPollMetricsWithMeter creates the instruments on meter.
func NewPollMetricsWithMeter(meter metric.Meter) (*PollMetrics, error) {
	polls, err := meter.Int64Counter(
		"pollwatch.polls",
		metric.WithDescription("Number of polls by source and outcome"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"pollwatch.fetch.duration",
		metric.WithDescription("Duration of provider fetches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PollMetrics{
		polls:         polls,
		fetchDuration: fetchDuration,
	}, nil
}

// RecordPoll records one poll. A nil receiver records nothing.
func (m *PollMetrics) RecordPoll(ctx context.Context, source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	m.polls.Add(ctx, 1, attrs)
	m.fetchDuration.Record(ctx, duration.Seconds(), attrs)
}
