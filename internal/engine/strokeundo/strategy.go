package strokeundo

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
	"github.com/dshills/strokeundo/internal/logging"
)

// StrategyOption configures an UndoCommandStrategy.
type StrategyOption func(*UndoCommandStrategy)

// WithInitCommand sets a command executed when the stroke starts.
func WithInitCommand(cmd history.Command) StrategyOption {
	return func(s *UndoCommandStrategy) {
		s.initCommand = cmd
	}
}

// WithFinishCommand sets a command executed when the stroke finishes.
func WithFinishCommand(cmd history.Command) StrategyOption {
	return func(s *UndoCommandStrategy) {
		s.finishCommand = cmd
	}
}

// WithMacroID sets the merge id of the recorded macro.
func WithMacroID(id int) StrategyOption {
	return func(s *UndoCommandStrategy) {
		s.macroID = id
	}
}

// UndoCommandStrategy is a stroke strategy whose jobs are CommandJob values.
// Every job runs its command in the job's direction.
//
// When the strategy has an adapter, the executed commands are recorded into
// a SavedMacroCommand which is pushed to the adapter's store once the stroke
// finishes. Cancelling such a stroke rolls the recorded commands back
// through the cancelled stroke instead.
type UndoCommandStrategy struct {
	stroke.BaseStrategy

	undo          bool
	adapter       *PostExecutionUndoAdapter
	initCommand   history.Command
	finishCommand history.Command
	macroID       int

	mu    sync.Mutex
	macro *SavedMacroCommand
}

// NewUndoCommandStrategy creates a strategy named name. The init and finish
// commands run in the undo direction when undo is true. adapter may be nil,
// in which case nothing is recorded.
func NewUndoCommandStrategy(name string, undo bool, adapter *PostExecutionUndoAdapter, opts ...StrategyOption) *UndoCommandStrategy {
	s := &UndoCommandStrategy{
		BaseStrategy: stroke.BaseStrategy{StrategyName: name},
		undo:         undo,
		adapter:      adapter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Undo reports the direction of the strategy.
func (s *UndoCommandStrategy) Undo() bool { return s.undo }

// InitStroke implements stroke.Strategy.
func (s *UndoCommandStrategy) InitStroke(context.Context) error {
	if s.adapter != nil {
		macro := s.adapter.CreateMacro(s.Name())
		macro.SetID(s.macroID)

		s.mu.Lock()
		s.macro = macro
		s.mu.Unlock()
	}

	executeCommand(s.initCommand, s.undo)
	s.notifyCommandDone(s.initCommand, stroke.Sequential, stroke.Normal)
	return nil
}

// DoStrokeCallback implements stroke.Strategy.
func (s *UndoCommandStrategy) DoStrokeCallback(_ context.Context, data stroke.JobData) error {
	var job CommandJob
	switch d := data.(type) {
	case CommandJob:
		job = d
	case *CommandJob:
		if d == nil {
			return fmt.Errorf("%s: nil command job", s.Name())
		}
		job = *d
	default:
		return fmt.Errorf("%s: unexpected job type %T", s.Name(), data)
	}

	executeCommand(job.Command, job.Undo)
	if !job.SkipHistory {
		s.notifyCommandDone(job.Command, job.Sequentiality(), job.Exclusivity())
	}
	return nil
}

// FinishStroke implements stroke.Strategy.
func (s *UndoCommandStrategy) FinishStroke(context.Context) error {
	executeCommand(s.finishCommand, s.undo)
	s.notifyCommandDone(s.finishCommand, stroke.Sequential, stroke.Normal)

	s.mu.Lock()
	macro := s.macro
	s.macro = nil
	s.mu.Unlock()

	if macro != nil {
		s.adapter.AddMacro(macro)
	}
	return nil
}

// CancelStroke implements stroke.Strategy. The recorded macro is discarded
// after its rollback jobs have been queued against id.
func (s *UndoCommandStrategy) CancelStroke(_ context.Context, id stroke.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.macro != nil {
		logging.WithComponent("strokeundo").Debug("rolling back cancelled stroke",
			"stroke", id, "name", s.Name(), "commands", s.macro.Len())
		s.macro.PerformCancel(id, s.undo)
		s.macro = nil
	}
	return nil
}

func (s *UndoCommandStrategy) notifyCommandDone(cmd history.Command, seq stroke.Sequentiality, excl stroke.Exclusivity) {
	if cmd == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.macro != nil {
		s.macro.AddCommand(cmd, seq, excl)
	}
}

var _ stroke.Strategy = (*UndoCommandStrategy)(nil)
