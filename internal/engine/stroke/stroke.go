package stroke

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies a stroke.
type ID string

// NewID returns a fresh random stroke ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// String returns the ID as a string.
func (id ID) String() string { return string(id) }

// Sequentiality is a scheduling hint describing how a job may be ordered
// relative to other jobs of its stroke.
type Sequentiality int

const (
	// Sequential jobs run after all earlier jobs and before later ones.
	Sequential Sequentiality = iota
	// Concurrent jobs may run alongside other concurrent jobs.
	Concurrent
	// Barrier jobs wait for every earlier job and block every later one.
	Barrier
	// UniquelyConcurrent jobs may run alongside concurrent jobs but never
	// alongside another uniquely concurrent job.
	UniquelyConcurrent
)

// String returns the hint name.
func (s Sequentiality) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	case Barrier:
		return "barrier"
	case UniquelyConcurrent:
		return "uniquely_concurrent"
	default:
		return fmt.Sprintf("sequentiality(%d)", int(s))
	}
}

// Exclusivity is a scheduling hint describing whether a job may share the
// pipeline with jobs of other strokes.
type Exclusivity int

const (
	// Normal jobs may overlap with other strokes.
	Normal Exclusivity = iota
	// Exclusive jobs run with no other stroke active.
	Exclusive
)

// String returns the hint name.
func (e Exclusivity) String() string {
	switch e {
	case Normal:
		return "normal"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("exclusivity(%d)", int(e))
	}
}

// JobData is one unit of work queued against a stroke. The hints are
// interpreted by the facade implementation only.
type JobData interface {
	Sequentiality() Sequentiality
	Exclusivity() Exclusivity
}

// Hints is an embeddable JobData implementation.
type Hints struct {
	Seq  Sequentiality
	Excl Exclusivity
}

// Sequentiality implements JobData.
func (h Hints) Sequentiality() Sequentiality { return h.Seq }

// Exclusivity implements JobData.
func (h Hints) Exclusivity() Exclusivity { return h.Excl }

// Strategy defines what a stroke does with its jobs. Callbacks run on the
// worker, never concurrently for the same stroke.
type Strategy interface {
	// Name is used for logs, traces and metrics.
	Name() string

	// InitStroke runs before the first job.
	InitStroke(ctx context.Context) error

	// DoStrokeCallback runs one job.
	DoStrokeCallback(ctx context.Context, data JobData) error

	// FinishStroke runs after the last job of a stroke that was ended.
	FinishStroke(ctx context.Context) error

	// CancelStroke runs when a started stroke is cancelled. Jobs added to
	// id with Facade.AddJob while it runs are executed right after it
	// returns.
	CancelStroke(ctx context.Context, id ID) error
}

// Facade is the interface edits use to reach the stroke pipeline.
type Facade interface {
	// StartStroke opens a stroke driven by strategy.
	StartStroke(strategy Strategy) (ID, error)

	// AddJob queues data against an open stroke.
	AddJob(id ID, data JobData) error

	// EndStroke closes a stroke. Its strategy is finished once all queued
	// jobs have run.
	EndStroke(id ID) error

	// CancelStroke aborts a stroke that has not finished.
	CancelStroke(id ID) error
}

// BaseStrategy implements Strategy with no-op callbacks. Embed it and
// override the callbacks a strategy needs.
type BaseStrategy struct {
	StrategyName string
}

// Name implements Strategy.
func (b BaseStrategy) Name() string { return b.StrategyName }

// InitStroke implements Strategy.
func (BaseStrategy) InitStroke(context.Context) error { return nil }

// DoStrokeCallback implements Strategy.
func (BaseStrategy) DoStrokeCallback(context.Context, JobData) error { return nil }

// FinishStroke implements Strategy.
func (BaseStrategy) FinishStroke(context.Context) error { return nil }

// CancelStroke implements Strategy.
func (BaseStrategy) CancelStroke(context.Context, ID) error { return nil }
