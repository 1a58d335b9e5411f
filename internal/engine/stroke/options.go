package stroke

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// PanicHandler is called when a strategy callback panics.
type PanicHandler func(id ID, strategy string, recovered any, stack []byte)

// Option configures a Runner.
type Option func(*Runner)

// WithQueueSize sets the task queue size. Submissions block while the queue
// is full.
func WithQueueSize(size int) Option {
	return func(r *Runner) {
		if size > 0 {
			r.queueSize = size
		}
	}
}

// WithPanicHandler sets the handler for panics in strategy callbacks.
func WithPanicHandler(h PanicHandler) Option {
	return func(r *Runner) {
		r.panicHandler = h
	}
}

// WithMeterProvider sets the meter provider used for runner metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Runner) {
		if mp != nil {
			r.meterProvider = mp
		}
	}
}

// WithTracerProvider sets the tracer provider used for stroke spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) {
		if tp != nil {
			r.tracerProvider = tp
		}
	}
}
