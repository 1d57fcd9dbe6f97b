package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "careerforge"

// Metrics holds the CareerForge metric instruments.
type Metrics struct {
	ExtractAttempts   metric.Int64Counter
	TasksToggled      metric.Int64Counter
	RoadmapsGenerated metric.Int64Counter
	LLMDuration       metric.Float64Histogram
}

// NewMetrics creates instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.GetMeterProvider())
}

// NewMetricsFrom creates instruments on mp.
func NewMetricsFrom(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ExtractAttempts, err = meter.Int64Counter("careerforge.extract.attempts",
		metric.WithDescription("JSON extraction attempts by winning strategy and outcome"))
	if err != nil {
		return nil, err
	}

	m.TasksToggled, err = meter.Int64Counter("careerforge.tasks.toggled",
		metric.WithDescription("Task completion toggles"))
	if err != nil {
		return nil, err
	}

	m.RoadmapsGenerated, err = meter.Int64Counter("careerforge.roadmaps.generated",
		metric.WithDescription("Roadmaps generated and persisted"))
	if err != nil {
		return nil, err
	}

	m.LLMDuration, err = meter.Float64Histogram("careerforge.llm.duration_seconds",
		metric.WithDescription("Text generation latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordExtract counts one extraction attempt.
func (m *Metrics) RecordExtract(strategy string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.ExtractAttempts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome),
	))
}

// RecordToggle counts one task completion change.
func (m *Metrics) RecordToggle(ctx context.Context, completed bool) {
	m.TasksToggled.Add(ctx, 1, metric.WithAttributes(attribute.Bool("completed", completed)))
}

// RecordRoadmap counts one persisted roadmap of the given kind.
func (m *Metrics) RecordRoadmap(ctx context.Context, kind string) {
	m.RoadmapsGenerated.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordLLM records the duration of one generation call.
func (m *Metrics) RecordLLM(ctx context.Context, purpose string, d time.Duration, err error) {
	m.LLMDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.Bool("error", err != nil),
	))
}
