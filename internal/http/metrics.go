package http

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/thoughtd/internal/http"

// Metrics holds the HTTP layer's instruments.
type Metrics struct {
	meter  metric.Meter
	logger *zap.Logger

	memoryTurns     metric.Int64Counter
	memoryTurnDur   metric.Float64Histogram
	contributions   metric.Int64Counter
	contributionDur metric.Float64Histogram
}

// NewMetrics creates the HTTP metrics instruments.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.memoryTurns, err = m.meter.Int64Counter(
		"thoughtd.memory.turns_total",
		metric.WithDescription("Memory orchestration turns, labeled by whether the prompt was stored."),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		m.logger.Warn("failed to create memory turn counter", zap.Error(err))
	}

	m.memoryTurnDur, err = m.meter.Float64Histogram(
		"thoughtd.memory.turn_duration_seconds",
		metric.WithDescription("End-to-end memory turn duration in seconds."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create memory turn histogram", zap.Error(err))
	}

	m.contributions, err = m.meter.Int64Counter(
		"thoughtd.contributions_total",
		metric.WithDescription("Direct thought contributions, labeled by outcome."),
		metric.WithUnit("{thought}"),
	)
	if err != nil {
		m.logger.Warn("failed to create contribution counter", zap.Error(err))
	}

	m.contributionDur, err = m.meter.Float64Histogram(
		"thoughtd.contribution_duration_seconds",
		metric.WithDescription("Thought contribution duration in seconds."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create contribution histogram", zap.Error(err))
	}
}

// RecordMemoryTurn records one orchestrated memory turn.
func (m *Metrics) RecordMemoryTurn(ctx context.Context, d time.Duration, stored bool) {
	attrs := metric.WithAttributes(attribute.Bool("stored", stored))
	if m.memoryTurns != nil {
		m.memoryTurns.Add(ctx, 1, attrs)
	}
	if m.memoryTurnDur != nil {
		m.memoryTurnDur.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordContribute records one direct contribution attempt.
func (m *Metrics) RecordContribute(ctx context.Context, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if m.contributions != nil {
		m.contributions.Add(ctx, 1, attrs)
	}
	if m.contributionDur != nil {
		m.contributionDur.Record(ctx, d.Seconds(), attrs)
	}
}
