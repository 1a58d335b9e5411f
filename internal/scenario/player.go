package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dshills/strokeundo/internal/canvas"
	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
	"github.com/dshills/strokeundo/internal/engine/strokeundo"
	"github.com/dshills/strokeundo/internal/logging"
)

// Pipeline is the stroke pipeline a Player drives.
type Pipeline interface {
	stroke.Facade

	// Flush waits until all submitted work has run.
	Flush(ctx context.Context) error
}

// Player plays scenario steps against a canvas. Strokes are recorded in
// store through a post-execution adapter; history steps wait for the
// pipeline before touching the store.
type Player struct {
	pipeline    Pipeline
	store       *history.SurrogateStore
	adapter     *strokeundo.PostExecutionUndoAdapter
	canvas      *canvas.Canvas
	checkpoints map[string]history.Checkpoint
	listener    *historyLogger
	log         *slog.Logger
}

// NewPlayer creates a player. The player registers a history listener on
// store that logs every recorded and replayed entry.
func NewPlayer(pipeline Pipeline, store *history.SurrogateStore, c *canvas.Canvas) *Player {
	p := &Player{
		pipeline:    pipeline,
		store:       store,
		adapter:     strokeundo.NewPostExecutionUndoAdapter(store, pipeline),
		canvas:      c,
		checkpoints: make(map[string]history.Checkpoint),
		log:         logging.WithComponent("scenario"),
	}
	p.listener = &historyLogger{log: p.log}
	store.SetCommandHistoryListener(p.listener)
	return p
}

// Canvas returns the canvas the player paints on.
func (p *Player) Canvas() *canvas.Canvas { return p.canvas }

// Store returns the undo history.
func (p *Player) Store() *history.SurrogateStore { return p.store }

// Adapter returns the adapter strokes are recorded through.
func (p *Player) Adapter() *strokeundo.PostExecutionUndoAdapter { return p.adapter }

// Added returns the number of entries recorded in the history.
func (p *Player) Added() int { return int(p.listener.added.Load()) }

// Executed returns the number of history entries undone or redone.
func (p *Player) Executed() int { return int(p.listener.executed.Load()) }

// Close unregisters the player's history listener.
func (p *Player) Close() {
	p.store.RemoveCommandHistoryListener(p.listener)
}

// Play runs all steps of sc and waits for the pipeline to drain.
func (p *Player) Play(ctx context.Context, sc *Scenario) error {
	p.log.Info("playing scenario", "name", sc.Name, "steps", len(sc.Steps))
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Step(ctx, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return p.pipeline.Flush(ctx)
}

// Step runs a single step.
func (p *Player) Step(ctx context.Context, step Step) error {
	if err := step.validate(); err != nil {
		return err
	}
	if step.Stroke != nil {
		return p.runStroke(ctx, step.Stroke)
	}

	// The store is only touched while the pipeline is idle, so recorded
	// strokes have reached it.
	if err := p.pipeline.Flush(ctx); err != nil {
		return err
	}

	var err error
	switch {
	case step.Undo > 0:
		err = p.repeat(step.Undo, p.store.Undo, history.ErrNothingToUndo)
	case step.Redo > 0:
		err = p.repeat(step.Redo, p.store.Redo, history.ErrNothingToRedo)
	case step.Purge:
		p.store.PurgeRedoState()
	case step.Clean:
		p.store.Stack().SetClean()
	case step.Checkpoint != "":
		p.checkpoints[step.Checkpoint] = p.store.CreateCheckpoint()
	case step.Rewind != "":
		err = p.toCheckpoint(step.Rewind, p.store.UndoToCheckpoint)
	case step.Forward != "":
		err = p.toCheckpoint(step.Forward, p.store.RedoToCheckpoint)
	}
	if err != nil {
		return err
	}
	return p.pipeline.Flush(ctx)
}

func (p *Player) runStroke(ctx context.Context, s *StrokeStep) error {
	// Build every command first so a bad job never leaves a stroke open.
	jobs := make([]strokeundo.CommandJob, 0, len(s.Jobs))
	for i, job := range s.Jobs {
		cmd, err := job.Command(p.canvas, s.Layer)
		if err != nil {
			return fmt.Errorf("stroke %q job %d: %w", s.Name, i+1, err)
		}
		hints := job.Hints()
		jobs = append(jobs, strokeundo.NewCommandJobWithHints(cmd, false, hints.Seq, hints.Excl))
	}

	strategy := strokeundo.NewUndoCommandStrategy(s.Name, false, p.adapter,
		strokeundo.WithInitCommand(canvas.NewBatchCommand(p.canvas, false)),
		strokeundo.WithFinishCommand(canvas.NewBatchCommand(p.canvas, true)),
		strokeundo.WithMacroID(s.MergeID),
	)
	id, err := p.pipeline.StartStroke(strategy)
	if err != nil {
		return fmt.Errorf("stroke %q: %w", s.Name, err)
	}
	for _, job := range jobs {
		if err := p.pipeline.AddJob(id, job); err != nil {
			_ = p.pipeline.CancelStroke(id)
			return fmt.Errorf("stroke %q: %w", s.Name, err)
		}
	}

	if s.Cancel {
		if err := p.pipeline.Flush(ctx); err != nil {
			return err
		}
		p.log.Debug("cancelling stroke", "stroke", id, "name", s.Name)
		return p.pipeline.CancelStroke(id)
	}
	return p.pipeline.EndStroke(id)
}

func (p *Player) repeat(n int, op func() bool, exhausted error) error {
	for i := 0; i < n; i++ {
		if !op() {
			return fmt.Errorf("after %d of %d: %w", i, n, exhausted)
		}
	}
	return nil
}

func (p *Player) toCheckpoint(label string, move func(history.Checkpoint) error) error {
	cp, ok := p.checkpoints[label]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCheckpoint, label)
	}
	return move(cp)
}

// historyLogger logs history notifications. Recorded strokes reach the
// store from the stroke worker, so the counters are atomic.
type historyLogger struct {
	log      *slog.Logger
	added    atomic.Int64
	executed atomic.Int64
}

func (h *historyLogger) NotifyCommandAdded(cmd history.Command) {
	h.added.Add(1)
	h.log.Debug("history entry added", "text", cmd.Text())
}

func (h *historyLogger) NotifyCommandExecuted(cmd history.Command) {
	h.executed.Add(1)
	h.log.Debug("history entry executed", "text", cmd.Text())
}
