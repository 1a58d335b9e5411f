package history

import (
	"time"
)

// entry wraps a top-level command with metadata.
type entry struct {
	command   Command
	timestamp time.Time
	serial    uint64
}

// EntryInfo provides read-only info about a history entry.
type EntryInfo struct {
	Text      string    // Display name
	Timestamp time.Time // When the entry was pushed or last merged into
	Applied   bool      // False for entries in the redo-able tail
}

// Stack is an index-based undo stack.
//
// Entries before the index are applied and can be undone; entries at or
// after it form the redo-able tail. Pushing a command executes it and
// discards the tail.
//
// Stack is not safe for concurrent use.
type Stack struct {
	entries []entry
	index   int

	// Open macros, outermost first.
	macros []*Base

	// Configuration
	limit int

	// Index at which the document was last marked clean, -1 if that state
	// is no longer reachable.
	cleanIndex int

	// Entry serials. Every entry gets a new serial when it is recorded or
	// merged into; dropped is the serial of the newest entry removed from
	// the front of the stack.
	serial  uint64
	dropped uint64
}

// NewStack creates a stack holding at most limit applied entries. A limit of
// zero or less means unlimited.
func NewStack(limit int) *Stack {
	if limit < 0 {
		limit = 0
	}
	return &Stack{limit: limit}
}

// Push executes cmd and records it at the current index, discarding any
// redo-able tail. If cmd shares a merge id with the entry just before the
// index and that entry accepts the merge, cmd is dropped instead of being
// recorded. While a macro is open cmd becomes a child of the innermost macro.
func (s *Stack) Push(cmd Command) {
	if cmd == nil {
		return
	}
	cmd.Redo()

	if macro := s.openMacro(); macro != nil {
		if cur := macro.lastChild(); canMerge(cur, cmd) && cur.MergeWith(cmd) {
			return
		}
		macro.AddChild(cmd)
		return
	}

	s.truncate()
	if s.index > 0 && s.index != s.cleanIndex {
		cur := &s.entries[s.index-1]
		if canMerge(cur.command, cmd) && cur.command.MergeWith(cmd) {
			cur.timestamp = time.Now()
			cur.serial = s.nextSerial()
			return
		}
	}

	s.entries = append(s.entries, s.newEntry(cmd))
	s.index++
	s.enforceLimit()
}

// Undo moves the index back by one and undoes the command there.
func (s *Stack) Undo() (Command, error) {
	if s.IsMacroOpen() {
		return nil, ErrMacroOpen
	}
	if s.index == 0 {
		return nil, ErrNothingToUndo
	}
	s.index--
	cmd := s.entries[s.index].command
	cmd.Undo()
	return cmd, nil
}

// Redo redoes the command at the index and moves the index forward.
func (s *Stack) Redo() (Command, error) {
	if s.IsMacroOpen() {
		return nil, ErrMacroOpen
	}
	if s.index >= len(s.entries) {
		return nil, ErrNothingToRedo
	}
	cmd := s.entries[s.index].command
	cmd.Redo()
	s.index++
	return cmd, nil
}

// CanUndo returns true if undo is available.
func (s *Stack) CanUndo() bool {
	return !s.IsMacroOpen() && s.index > 0
}

// CanRedo returns true if redo is available.
func (s *Stack) CanRedo() bool {
	return !s.IsMacroOpen() && s.index < len(s.entries)
}

// Index returns the current index: the number of applied entries.
func (s *Stack) Index() int { return s.index }

// Count returns the number of entries, applied or not.
func (s *Stack) Count() int { return len(s.entries) }

// Command returns the entry at index i, or nil when i is out of range.
func (s *Stack) Command(i int) Command {
	if i < 0 || i >= len(s.entries) {
		return nil
	}
	return s.entries[i].command
}

// BeginMacro opens a macro. Commands pushed until the matching EndMacro
// become its children. Macros nest; an inner macro is a child of the outer.
func (s *Stack) BeginMacro(text string) {
	macro := &Base{text: text}
	if outer := s.openMacro(); outer != nil {
		outer.AddChild(macro)
	} else {
		s.truncate()
		s.entries = append(s.entries, s.newEntry(macro))
	}
	s.macros = append(s.macros, macro)
}

// EndMacro closes the innermost macro. Closing the outermost macro makes it
// a regular applied entry; an outermost macro with no children is dropped.
func (s *Stack) EndMacro() error {
	if len(s.macros) == 0 {
		return ErrNoMacro
	}
	macro := s.macros[len(s.macros)-1]
	s.macros = s.macros[:len(s.macros)-1]
	if len(s.macros) > 0 {
		return nil
	}

	if macro.ChildCount() == 0 {
		s.entries = s.entries[:len(s.entries)-1]
		return nil
	}
	s.entries[len(s.entries)-1].timestamp = time.Now()
	s.index++
	s.enforceLimit()
	return nil
}

// IsMacroOpen returns true while a macro is being recorded.
func (s *Stack) IsMacroOpen() bool { return len(s.macros) > 0 }

// MacroDepth returns the number of open macros.
func (s *Stack) MacroDepth() int { return len(s.macros) }

// PurgeRedoState discards the redo-able tail without pushing anything.
func (s *Stack) PurgeRedoState() error {
	if s.IsMacroOpen() {
		return ErrMacroOpen
	}
	s.truncate()
	return nil
}

// Clear removes all entries and closes any open macro.
func (s *Stack) Clear() {
	s.dropped = s.nextSerial()
	s.entries = nil
	s.macros = nil
	s.index = 0
	s.cleanIndex = 0
}

// SetClean marks the current index as the clean state.
func (s *Stack) SetClean() {
	if s.IsMacroOpen() {
		return
	}
	s.cleanIndex = s.index
}

// IsClean returns true if the index is at the clean state.
func (s *Stack) IsClean() bool {
	return !s.IsMacroOpen() && s.cleanIndex == s.index
}

// CleanIndex returns the clean index, or -1 if the clean state was
// discarded.
func (s *Stack) CleanIndex() int { return s.cleanIndex }

// UndoText returns the text of the entry Undo would revert.
func (s *Stack) UndoText() string {
	if !s.CanUndo() {
		return ""
	}
	return s.entries[s.index-1].command.Text()
}

// RedoText returns the text of the entry Redo would apply.
func (s *Stack) RedoText() string {
	if !s.CanRedo() {
		return ""
	}
	return s.entries[s.index].command.Text()
}

// Info returns info about all entries in order.
func (s *Stack) Info() []EntryInfo {
	result := make([]EntryInfo, len(s.entries))
	for i, e := range s.entries {
		result[i] = EntryInfo{
			Text:      e.command.Text(),
			Timestamp: e.timestamp,
			Applied:   i < s.index,
		}
	}
	return result
}

// SetUndoLimit changes the maximum number of applied entries. If more are
// applied, the oldest are removed.
func (s *Stack) SetUndoLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	s.limit = limit
	s.enforceLimit()
}

// UndoLimit returns the maximum number of applied entries, 0 if unlimited.
func (s *Stack) UndoLimit() int { return s.limit }

// Serial identifies the current position: the serial of the last applied
// entry. It stays valid for IndexOfSerial until that entry is removed or
// merged into.
func (s *Stack) Serial() uint64 {
	if s.index == 0 {
		return s.dropped
	}
	return s.entries[s.index-1].serial
}

// IndexOfSerial returns the index a position returned by Serial maps to
// now, and false if that position is gone.
func (s *Stack) IndexOfSerial(serial uint64) (int, bool) {
	if serial == s.dropped {
		return 0, true
	}
	for i, e := range s.entries {
		if e.serial == serial {
			return i + 1, true
		}
	}
	return 0, false
}

func (s *Stack) newEntry(cmd Command) entry {
	return entry{command: cmd, timestamp: time.Now(), serial: s.nextSerial()}
}

func (s *Stack) nextSerial() uint64 {
	s.serial++
	return s.serial
}

func (s *Stack) openMacro() *Base {
	if len(s.macros) == 0 {
		return nil
	}
	return s.macros[len(s.macros)-1]
}

// truncate drops the entries after the index.
func (s *Stack) truncate() {
	if s.index >= len(s.entries) {
		return
	}
	for i := s.index; i < len(s.entries); i++ {
		s.entries[i] = entry{}
	}
	s.entries = s.entries[:s.index]
	if s.cleanIndex > s.index {
		s.cleanIndex = -1
	}
}

// enforceLimit removes the oldest applied entries beyond the limit.
func (s *Stack) enforceLimit() {
	if s.limit <= 0 || s.IsMacroOpen() {
		return
	}
	excess := s.index - s.limit
	if excess <= 0 {
		return
	}
	s.dropped = s.entries[excess-1].serial
	s.entries = s.entries[excess:]
	s.index -= excess
	if s.cleanIndex != -1 {
		s.cleanIndex -= excess
		if s.cleanIndex < 0 {
			s.cleanIndex = -1
		}
	}
}
