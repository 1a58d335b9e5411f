package history

import (
	"errors"

	"github.com/dshills/strokeundo/internal/logging"
)

// Listener observes a Store. Implementations receive the command for
// inspection only and must not mutate it.
type Listener interface {
	// NotifyCommandAdded is called before a command is recorded.
	NotifyCommandAdded(cmd Command)

	// NotifyCommandExecuted is called after a recorded command was undone
	// or redone.
	NotifyCommandExecuted(cmd Command)
}

// Store is the undo history used by the rest of the application.
type Store interface {
	// PresentCommand returns the most recently applied entry, or nil at
	// the start of history.
	PresentCommand() Command

	// UndoLastCommand reverts the most recently applied entry.
	UndoLastCommand()

	// AddCommand records cmd at the current position, discarding the
	// redo-able tail. Nil commands are ignored.
	AddCommand(cmd Command)

	// BeginMacro starts grouping added commands into one entry.
	BeginMacro(name string)

	// EndMacro finishes the group started by BeginMacro.
	EndMacro()

	// PurgeRedoState discards the redo-able tail.
	PurgeRedoState()

	// SetCommandHistoryListener registers l. Registering the same
	// listener twice has no effect.
	SetCommandHistoryListener(l Listener)

	// RemoveCommandHistoryListener unregisters l.
	RemoveCommandHistoryListener(l Listener)
}

// Listeners is a de-duplicated, ordered set of Listener values. Stores embed
// it to implement the listener half of Store.
//
// Listeners are compared by identity, so they must be comparable values,
// typically pointers.
type Listeners struct {
	list []Listener
}

// SetCommandHistoryListener registers l.
func (ls *Listeners) SetCommandHistoryListener(l Listener) {
	if l == nil || ls.indexOf(l) >= 0 {
		return
	}
	ls.list = append(ls.list, l)
}

// RemoveCommandHistoryListener unregisters l.
func (ls *Listeners) RemoveCommandHistoryListener(l Listener) {
	if i := ls.indexOf(l); i >= 0 {
		ls.list = append(ls.list[:i], ls.list[i+1:]...)
	}
}

// ListenerCount returns the number of registered listeners.
func (ls *Listeners) ListenerCount() int { return len(ls.list) }

// NotifyCommandAdded calls NotifyCommandAdded on every listener in
// registration order. A nil command is logged and dropped.
func (ls *Listeners) NotifyCommandAdded(cmd Command) {
	if !logging.SafeAssert(cmd != nil, "added notification with nil command") {
		return
	}
	for _, l := range ls.snapshot() {
		l.NotifyCommandAdded(cmd)
	}
}

// NotifyCommandExecuted calls NotifyCommandExecuted on every listener in
// registration order. A nil command is logged and dropped.
func (ls *Listeners) NotifyCommandExecuted(cmd Command) {
	if !logging.SafeAssert(cmd != nil, "executed notification with nil command") {
		return
	}
	for _, l := range ls.snapshot() {
		l.NotifyCommandExecuted(cmd)
	}
}

func (ls *Listeners) indexOf(l Listener) int {
	for i, cur := range ls.list {
		if cur == l {
			return i
		}
	}
	return -1
}

// snapshot lets listeners unregister themselves while being notified.
func (ls *Listeners) snapshot() []Listener {
	if len(ls.list) == 0 {
		return nil
	}
	out := make([]Listener, len(ls.list))
	copy(out, ls.list)
	return out
}

// SurrogateStore is a Store backed by a Stack. It is used standalone, for
// example inside an AggregateCommand, and as the document store when built
// over a document-owned stack.
type SurrogateStore struct {
	Listeners
	stack *Stack
}

// NewSurrogateStore creates a store over a private, unlimited stack.
func NewSurrogateStore() *SurrogateStore {
	return &SurrogateStore{stack: NewStack(0)}
}

// NewSurrogateStoreWithStack creates a store over stack, which stays owned by
// the caller.
func NewSurrogateStoreWithStack(stack *Stack) *SurrogateStore {
	if stack == nil {
		stack = NewStack(0)
	}
	return &SurrogateStore{stack: stack}
}

// Stack returns the underlying stack.
func (s *SurrogateStore) Stack() *Stack { return s.stack }

// PresentCommand implements Store.
func (s *SurrogateStore) PresentCommand() Command {
	return s.stack.Command(s.stack.Index() - 1)
}

// UndoLastCommand implements Store.
func (s *SurrogateStore) UndoLastCommand() {
	s.Undo()
}

// AddCommand implements Store. The added notification is issued before the
// command is executed and recorded.
func (s *SurrogateStore) AddCommand(cmd Command) {
	if cmd == nil {
		return
	}
	s.NotifyCommandAdded(cmd)
	s.stack.Push(cmd)
}

// BeginMacro implements Store.
func (s *SurrogateStore) BeginMacro(name string) {
	s.stack.BeginMacro(name)
}

// EndMacro implements Store.
func (s *SurrogateStore) EndMacro() {
	if err := s.stack.EndMacro(); err != nil {
		logging.WithComponent("history").Warn("end macro", "error", err)
	}
}

// PurgeRedoState implements Store.
func (s *SurrogateStore) PurgeRedoState() {
	if err := s.stack.PurgeRedoState(); err != nil {
		logging.WithComponent("history").Warn("purge redo state", "error", err)
	}
}

// Undo reverts the most recent entry and notifies listeners. It returns
// false when there was nothing to undo.
func (s *SurrogateStore) Undo() bool {
	cmd, err := s.stack.Undo()
	if err != nil {
		s.logRefused("undo", err)
		return false
	}
	s.NotifyCommandExecuted(cmd)
	return true
}

// Redo re-applies the next entry and notifies listeners. It returns false
// when there was nothing to redo.
func (s *SurrogateStore) Redo() bool {
	cmd, err := s.stack.Redo()
	if err != nil {
		s.logRefused("redo", err)
		return false
	}
	s.NotifyCommandExecuted(cmd)
	return true
}

// UndoAll undoes entries until none are left. The stack is queried on every
// step rather than counted up front because merges change its length.
func (s *SurrogateStore) UndoAll() {
	for s.stack.CanUndo() {
		s.Undo()
	}
}

// RedoAll redoes entries until none are left.
func (s *SurrogateStore) RedoAll() {
	for s.stack.CanRedo() {
		s.Redo()
	}
}

// CanUndo returns true if undo is available.
func (s *SurrogateStore) CanUndo() bool { return s.stack.CanUndo() }

// CanRedo returns true if redo is available.
func (s *SurrogateStore) CanRedo() bool { return s.stack.CanRedo() }

func (s *SurrogateStore) logRefused(op string, err error) {
	log := logging.WithComponent("history")
	if errors.Is(err, ErrMacroOpen) {
		log.Warn(op+" refused while a macro is open", "error", err)
		return
	}
	log.Debug(op+" refused", "error", err)
}

// DumbStore executes every added command and discards it. It keeps no
// history, so undo and macros are no-ops. It lets command-producing code run
// unchanged where undo is not wanted.
type DumbStore struct {
	Listeners
}

// NewDumbStore creates a DumbStore.
func NewDumbStore() *DumbStore {
	return &DumbStore{}
}

// PresentCommand always returns nil.
func (s *DumbStore) PresentCommand() Command { return nil }

// UndoLastCommand does nothing.
func (s *DumbStore) UndoLastCommand() {}

// AddCommand executes cmd and drops it.
func (s *DumbStore) AddCommand(cmd Command) {
	if cmd == nil {
		return
	}
	s.NotifyCommandAdded(cmd)
	cmd.Redo()
	s.NotifyCommandExecuted(cmd)
}

// BeginMacro does nothing.
func (s *DumbStore) BeginMacro(string) {}

// EndMacro does nothing.
func (s *DumbStore) EndMacro() {}

// PurgeRedoState does nothing.
func (s *DumbStore) PurgeRedoState() {}

var (
	_ Store = (*SurrogateStore)(nil)
	_ Store = (*DumbStore)(nil)
)
