package stroke

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/dshills/strokeundo/internal/logging"
)

// taskKind identifies what a queued task asks the worker to do.
type taskKind int

const (
	taskStart taskKind = iota
	taskJob
	taskEnd
	taskCancel
	taskBarrier
)

// task is one entry of the worker queue.
type task struct {
	kind taskKind
	id   ID
	data JobData
	done chan struct{}
}

// strokeState tracks one stroke between StartStroke and its completion.
type strokeState struct {
	strategy Strategy
	name     string

	// Owned by the worker.
	ctx     context.Context
	span    trace.Span
	started bool

	// Guarded by Runner.strokesMu.
	ended      bool
	cancelled  bool
	collecting bool
	rollback   []JobData
}

// Runner is a Facade that runs strokes on a single worker goroutine.
// Strokes are processed in submission order and the jobs of a stroke in the
// order they were added, so every scheduling hint is satisfied trivially.
//
// The calls for one stroke must come from one goroutine. Strategy callbacks
// must not start new strokes: the worker would wait on its own queue.
type Runner struct {
	// Configuration
	queueSize      int
	panicHandler   PanicHandler
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	metrics *Metrics
	tracer  trace.Tracer

	// State
	mu      sync.RWMutex // protects queue creation/destruction
	queue   chan task
	running atomic.Bool
	done    chan struct{} // closed when the current worker exits

	strokesMu sync.Mutex
	strokes   map[ID]*strokeState

	// Stats
	enqueued  atomic.Uint64
	started   atomic.Uint64
	finished  atomic.Uint64
	cancelled atomic.Uint64
	executed  atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
}

// NewRunner creates a stopped runner.
func NewRunner(opts ...Option) (*Runner, error) {
	r := &Runner{
		queueSize:      1024,
		panicHandler:   defaultPanicHandler,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
		strokes:        make(map[ID]*strokeState),
	}
	for _, opt := range opts {
		opt(r)
	}

	m, err := NewMetrics(r.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	r.metrics = m
	r.tracer = r.tracerProvider.Tracer(instrumentationName)
	return r, nil
}

func defaultPanicHandler(id ID, strategy string, recovered any, stack []byte) {
	logging.WithComponent("stroke").Error("strategy callback panicked",
		"stroke", id, "strategy", strategy, "panic", recovered, "stack", string(stack))
}

// Start starts the worker. It returns ErrDraining while the worker of a
// previous run is still processing its queue.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running.Load() {
		return ErrAlreadyRunning
	}
	if r.done != nil {
		select {
		case <-r.done:
		default:
			return ErrDraining
		}
	}

	r.queue = make(chan task, r.queueSize)
	r.done = make(chan struct{})
	r.running.Store(true)

	go r.worker(r.queue, r.done)
	return nil
}

// Stop stops accepting work and waits until every queued task has run or
// ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running.Load() {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.running.Store(false)
	close(r.queue)
	done := r.done
	r.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true if the runner accepts work.
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// StartStroke implements Facade.
func (r *Runner) StartStroke(strategy Strategy) (ID, error) {
	if strategy == nil {
		return "", errors.New("start stroke: nil strategy")
	}
	id := NewID()

	r.strokesMu.Lock()
	r.strokes[id] = &strokeState{strategy: strategy, name: strategy.Name()}
	r.strokesMu.Unlock()

	if err := r.enqueue(task{kind: taskStart, id: id}); err != nil {
		r.forget(id)
		return "", fmt.Errorf("start stroke: %w", err)
	}
	return id, nil
}

// AddJob implements Facade. While the stroke's CancelStroke callback runs,
// jobs are collected as rollback work instead of being queued.
func (r *Runner) AddJob(id ID, data JobData) error {
	if data == nil {
		return fmt.Errorf("add job to stroke %s: nil job", id)
	}

	r.strokesMu.Lock()
	st, ok := r.strokes[id]
	switch {
	case !ok:
		r.strokesMu.Unlock()
		return fmt.Errorf("add job to stroke %s: %w", id, ErrUnknownStroke)
	case st.collecting:
		st.rollback = append(st.rollback, data)
		r.strokesMu.Unlock()
		return nil
	case st.ended:
		r.strokesMu.Unlock()
		return fmt.Errorf("add job to stroke %s: %w", id, ErrStrokeEnded)
	}
	r.strokesMu.Unlock()

	return r.enqueue(task{kind: taskJob, id: id, data: data})
}

// EndStroke implements Facade.
func (r *Runner) EndStroke(id ID) error {
	r.strokesMu.Lock()
	st, ok := r.strokes[id]
	if !ok {
		r.strokesMu.Unlock()
		return fmt.Errorf("end stroke %s: %w", id, ErrUnknownStroke)
	}
	if st.ended {
		r.strokesMu.Unlock()
		return fmt.Errorf("end stroke %s: %w", id, ErrStrokeEnded)
	}
	st.ended = true
	r.strokesMu.Unlock()

	return r.enqueue(task{kind: taskEnd, id: id})
}

// CancelStroke implements Facade. Cancelling a stroke twice is a no-op;
// cancelling a finished stroke returns ErrUnknownStroke.
func (r *Runner) CancelStroke(id ID) error {
	r.strokesMu.Lock()
	st, ok := r.strokes[id]
	if !ok {
		r.strokesMu.Unlock()
		return fmt.Errorf("cancel stroke %s: %w", id, ErrUnknownStroke)
	}
	if st.cancelled {
		r.strokesMu.Unlock()
		return nil
	}
	st.cancelled = true
	st.ended = true
	r.strokesMu.Unlock()

	return r.enqueue(task{kind: taskCancel, id: id})
}

// Flush waits until every task queued before the call has run.
func (r *Runner) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := r.enqueue(task{kind: taskBarrier, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveStrokes returns the number of strokes that have not completed.
func (r *Runner) ActiveStrokes() int {
	r.strokesMu.Lock()
	defer r.strokesMu.Unlock()
	return len(r.strokes)
}

// QueueDepth returns the number of queued tasks.
func (r *Runner) QueueDepth() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.running.Load() {
		return 0
	}
	return len(r.queue)
}

func (r *Runner) enqueue(t task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running.Load() {
		return ErrNotRunning
	}
	r.queue <- t
	r.enqueued.Add(1)
	r.metrics.QueueDepth.Add(context.Background(), 1)
	return nil
}

func (r *Runner) lookup(id ID) *strokeState {
	r.strokesMu.Lock()
	defer r.strokesMu.Unlock()
	return r.strokes[id]
}

func (r *Runner) forget(id ID) {
	r.strokesMu.Lock()
	delete(r.strokes, id)
	r.strokesMu.Unlock()
}

func (r *Runner) isCancelled(st *strokeState) bool {
	r.strokesMu.Lock()
	defer r.strokesMu.Unlock()
	return st.cancelled
}

// worker processes tasks from the queue.
func (r *Runner) worker(queue <-chan task, done chan<- struct{}) {
	defer close(done)

	for t := range queue {
		r.metrics.QueueDepth.Add(context.Background(), -1)
		r.process(t)
	}
}

func (r *Runner) process(t task) {
	if t.kind == taskBarrier {
		close(t.done)
		return
	}

	st := r.lookup(t.id)
	if st == nil {
		return
	}

	switch t.kind {
	case taskStart:
		r.startStroke(t.id, st)
	case taskJob:
		r.runJob(t.id, st, t.data)
	case taskEnd:
		r.finishStroke(t.id, st)
	case taskCancel:
		r.cancelStroke(t.id, st)
	}
}

func (r *Runner) startStroke(id ID, st *strokeState) {
	if r.isCancelled(st) {
		return
	}

	st.ctx, st.span = r.tracer.Start(context.Background(), "stroke "+st.name,
		trace.WithAttributes(
			attribute.String("stroke.id", id.String()),
			attribute.String("stroke.strategy", st.name),
		))
	st.started = true

	if err := r.call(id, st, func(ctx context.Context) error {
		return st.strategy.InitStroke(ctx)
	}); err != nil {
		st.span.RecordError(err)
		logging.WithComponent("stroke").Warn("stroke init failed", "stroke", id, "strategy", st.name, "error", err)
	}

	r.started.Add(1)
	r.metrics.StrokesStarted.Add(st.ctx, 1, strategyAttr(st.name))
}

func (r *Runner) runJob(id ID, st *strokeState, data JobData) {
	if !st.started || r.isCancelled(st) {
		r.dropped.Add(1)
		r.metrics.recordJob(context.Background(), st.name, data, outcomeDropped, 0)
		return
	}
	r.execute(id, st, data, outcomeOK)
}

// execute runs one job and records its outcome. Successful jobs are
// reported as okOutcome.
func (r *Runner) execute(id ID, st *strokeState, data JobData, okOutcome string) {
	start := time.Now()
	before := r.panicked.Load()
	err := r.call(id, st, func(ctx context.Context) error {
		return st.strategy.DoStrokeCallback(ctx, data)
	})
	d := time.Since(start)

	outcome := okOutcome
	switch {
	case r.panicked.Load() != before:
		outcome = outcomePanicked
	case err != nil:
		outcome = outcomeFailed
		r.failed.Add(1)
		st.span.RecordError(err)
		logging.WithComponent("stroke").Warn("stroke job failed", "stroke", id, "strategy", st.name, "error", err)
	default:
		r.executed.Add(1)
	}

	st.span.AddEvent("job", trace.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("sequentiality", data.Sequentiality().String()),
		attribute.String("exclusivity", data.Exclusivity().String()),
	))
	r.metrics.recordJob(st.ctx, st.name, data, outcome, d)
}

func (r *Runner) finishStroke(id ID, st *strokeState) {
	if r.isCancelled(st) {
		return
	}
	defer r.forget(id)

	if !st.started {
		return
	}
	err := r.call(id, st, func(ctx context.Context) error {
		return st.strategy.FinishStroke(ctx)
	})
	if err != nil {
		logging.WithComponent("stroke").Warn("stroke finish failed", "stroke", id, "strategy", st.name, "error", err)
		st.span.RecordError(err)
		st.span.SetStatus(codes.Error, err.Error())
	} else {
		st.span.SetStatus(codes.Ok, "")
	}
	st.span.End()

	r.finished.Add(1)
	r.metrics.StrokesFinished.Add(st.ctx, 1, strategyAttr(st.name))
}

func (r *Runner) cancelStroke(id ID, st *strokeState) {
	defer r.forget(id)

	if !st.started {
		return
	}

	r.strokesMu.Lock()
	st.collecting = true
	r.strokesMu.Unlock()

	err := r.call(id, st, func(ctx context.Context) error {
		return st.strategy.CancelStroke(ctx, id)
	})

	r.strokesMu.Lock()
	st.collecting = false
	rollback := st.rollback
	st.rollback = nil
	r.strokesMu.Unlock()

	if err != nil {
		logging.WithComponent("stroke").Warn("stroke cancel failed", "stroke", id, "strategy", st.name, "error", err)
		st.span.RecordError(err)
	}
	for _, data := range rollback {
		r.execute(id, st, data, outcomeRollback)
	}

	st.span.SetAttributes(attribute.Bool("stroke.cancelled", true))
	st.span.End()

	r.cancelled.Add(1)
	r.metrics.StrokesCancelled.Add(st.ctx, 1, strategyAttr(st.name))
}

// call runs fn with the stroke context and recovers panics.
func (r *Runner) call(id ID, st *strokeState, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panicked.Add(1)
			err = fmt.Errorf("stroke %s: panic: %v", id, rec)
			if r.panicHandler != nil {
				stack := debug.Stack()
				func() {
					defer func() { _ = recover() }()
					r.panicHandler(id, st.name, rec, stack)
				}()
			}
		}
	}()
	return fn(st.ctx)
}

// Stats returns runner statistics.
func (r *Runner) Stats() Stats {
	return Stats{
		Enqueued:      r.enqueued.Load(),
		Started:       r.started.Load(),
		Finished:      r.finished.Load(),
		Cancelled:     r.cancelled.Load(),
		JobsExecuted:  r.executed.Load(),
		JobsFailed:    r.failed.Load(),
		JobsPanicked:  r.panicked.Load(),
		JobsDropped:   r.dropped.Load(),
		ActiveStrokes: r.ActiveStrokes(),
		QueueDepth:    r.QueueDepth(),
	}
}

// Stats contains statistics for a Runner.
type Stats struct {
	// Enqueued is the total number of tasks added to the queue.
	Enqueued uint64

	// Started is the number of strokes whose strategy was initialized.
	Started uint64

	// Finished is the number of strokes finished normally.
	Finished uint64

	// Cancelled is the number of started strokes that were cancelled.
	Cancelled uint64

	// JobsExecuted is the number of jobs that completed without error,
	// rollback jobs included.
	JobsExecuted uint64

	// JobsFailed is the number of jobs that returned an error.
	JobsFailed uint64

	// JobsPanicked is the number of strategy callbacks that panicked.
	JobsPanicked uint64

	// JobsDropped is the number of jobs skipped because their stroke was
	// cancelled.
	JobsDropped uint64

	// ActiveStrokes is the number of strokes not yet completed.
	ActiveStrokes int

	// QueueDepth is the number of tasks waiting in the queue.
	QueueDepth int
}

var _ Facade = (*Runner)(nil)
