package history

import (
	"fmt"

	"github.com/dshills/strokeundo/internal/logging"
)

// PopulateFunc generates the children of an AggregateCommand by calling
// AddCommand on it zero or more times.
type PopulateFunc func(a *AggregateCommand) error

// AggregateCommand is a command whose children are only known at execution
// time. The populate function runs exactly once, on the first Redo. Every
// child is executed as it is added, so later children may depend on the
// effects of earlier ones.
//
// If populate fails (returns an error or panics) the children added so far
// are reverted and dropped; the command then does nothing on Redo or Undo.
type AggregateCommand struct {
	Base
	populate  PopulateFunc
	populated bool
	store     *SurrogateStore
}

// NewAggregateCommand creates an aggregate driven by populate.
func NewAggregateCommand(text string, populate PopulateFunc) *AggregateCommand {
	return &AggregateCommand{
		Base:     Base{text: text},
		populate: populate,
	}
}

// AddCommand executes cmd and records it as a child. Only meaningful while
// the populate function runs.
func (a *AggregateCommand) AddCommand(cmd Command) {
	if cmd == nil {
		return
	}
	a.children().AddCommand(cmd)
}

// Redo populates the children on first use, then replays them forward.
func (a *AggregateCommand) Redo() {
	if !a.populated {
		a.populated = true
		a.runPopulate()
	}
	a.children().RedoAll()
}

// Undo replays the children backward.
func (a *AggregateCommand) Undo() {
	a.children().UndoAll()
}

// Populated reports whether the populate function has run.
func (a *AggregateCommand) Populated() bool { return a.populated }

// Count returns the number of recorded children.
func (a *AggregateCommand) Count() int { return a.children().Stack().Count() }

func (a *AggregateCommand) children() *SurrogateStore {
	if a.store == nil {
		a.store = NewSurrogateStore()
	}
	return a.store
}

func (a *AggregateCommand) runPopulate() {
	if a.populate == nil {
		return
	}
	if err := a.callPopulate(); err != nil {
		logging.WithComponent("history").Warn("populating child commands failed",
			"command", a.Text(), "error", err)
		a.children().UndoAll()
		a.store = NewSurrogateStore()
	}
}

func (a *AggregateCommand) callPopulate() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("populate panicked: %v", r)
		}
	}()
	return a.populate(a)
}

// LambdaCommand is an AggregateCommand fed by a factory that produces at
// most one child. The factory is called once and then released so that
// anything it captured can be collected.
type LambdaCommand struct {
	AggregateCommand
	factory func() Command
}

// NewLambdaCommand creates a command whose single child comes from factory.
// The factory may return nil, in which case the command does nothing.
func NewLambdaCommand(text string, factory func() Command) *LambdaCommand {
	l := &LambdaCommand{factory: factory}
	l.AggregateCommand = AggregateCommand{Base: Base{text: text}}
	l.populate = l.populateChildCommands
	return l
}

func (l *LambdaCommand) populateChildCommands(a *AggregateCommand) error {
	f := l.factory
	l.factory = nil
	if f == nil {
		return nil
	}
	a.AddCommand(f())
	return nil
}
