package stroke

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName is the meter and tracer name used by Runner.
const instrumentationName = "github.com/dshills/strokeundo/internal/engine/stroke"

// Job outcomes reported on the jobs counter.
const (
	outcomeOK       = "ok"
	outcomeFailed   = "failed"
	outcomePanicked = "panicked"
	outcomeDropped  = "dropped"
	outcomeRollback = "rollback"
)

// Metrics holds the metric instruments of a Runner.
type Metrics struct {
	StrokesStarted   metric.Int64Counter
	StrokesFinished  metric.Int64Counter
	StrokesCancelled metric.Int64Counter
	Jobs             metric.Int64Counter
	JobDuration      metric.Float64Histogram
	QueueDepth       metric.Int64UpDownCounter
}

// NewMetrics creates all metric instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.StrokesStarted, err = meter.Int64Counter(
		"stroke.strokes.started",
		metric.WithDescription("Strokes whose strategy was initialized"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating strokes.started: %w", err)
	}

	m.StrokesFinished, err = meter.Int64Counter(
		"stroke.strokes.finished",
		metric.WithDescription("Strokes finished normally"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating strokes.finished: %w", err)
	}

	m.StrokesCancelled, err = meter.Int64Counter(
		"stroke.strokes.cancelled",
		metric.WithDescription("Strokes cancelled before finishing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating strokes.cancelled: %w", err)
	}

	m.Jobs, err = meter.Int64Counter(
		"stroke.jobs",
		metric.WithDescription("Jobs processed, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating jobs: %w", err)
	}

	m.JobDuration, err = meter.Float64Histogram(
		"stroke.job.duration",
		metric.WithDescription("Job execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating job.duration: %w", err)
	}

	m.QueueDepth, err = meter.Int64UpDownCounter(
		"stroke.queue.depth",
		metric.WithDescription("Tasks waiting for the worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue.depth: %w", err)
	}

	return m, nil
}

func (m *Metrics) recordJob(ctx context.Context, strategy string, data JobData, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome),
		attribute.String("sequentiality", data.Sequentiality().String()),
		attribute.String("exclusivity", data.Exclusivity().String()),
	)
	m.Jobs.Add(ctx, 1, attrs)
	if outcome != outcomeDropped {
		m.JobDuration.Record(ctx, d.Seconds(), attrs)
	}
}

func strategyAttr(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("strategy", name))
}
