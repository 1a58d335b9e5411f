package strokeundo

import (
	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
)

// CommandJob is the job type understood by UndoCommandStrategy: it runs
// Command in the given direction.
type CommandJob struct {
	stroke.Hints

	// Command is executed by the job. A nil command is skipped.
	Command history.Command

	// Undo selects Command.Undo instead of Command.Redo.
	Undo bool

	// SkipHistory keeps the command out of the macro recorded by the
	// strategy.
	SkipHistory bool
}

// NewCommandJob returns a sequential, non-exclusive job for cmd.
func NewCommandJob(cmd history.Command, undo bool) CommandJob {
	return NewCommandJobWithHints(cmd, undo, stroke.Sequential, stroke.Normal)
}

// NewCommandJobWithHints returns a job for cmd with explicit scheduling
// hints.
func NewCommandJobWithHints(cmd history.Command, undo bool, seq stroke.Sequentiality, excl stroke.Exclusivity) CommandJob {
	return CommandJob{
		Hints:   stroke.Hints{Seq: seq, Excl: excl},
		Command: cmd,
		Undo:    undo,
	}
}

func executeCommand(cmd history.Command, undo bool) {
	if cmd == nil {
		return
	}
	if undo {
		cmd.Undo()
	} else {
		cmd.Redo()
	}
}
