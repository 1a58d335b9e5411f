package strokeundo

import (
	"sync"

	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
	"github.com/dshills/strokeundo/internal/logging"
)

// SavedCommandBase is a command that replays its work through a stroke.
// The first Redo is skipped; every later Redo and every Undo starts one
// stroke, queues the jobs produced by addCommands and ends the stroke.
// Both return as soon as the jobs are queued.
type SavedCommandBase struct {
	*history.SkipFirstRedo

	facade      stroke.Facade
	addCommands func(id stroke.ID, undo bool)
}

func newSavedCommandBase(text string, facade stroke.Facade, addCommands func(id stroke.ID, undo bool)) *SavedCommandBase {
	b := &SavedCommandBase{
		facade:      facade,
		addCommands: addCommands,
	}
	b.SkipFirstRedo = history.NewSkipFirstRedoBase(text,
		func() { b.runStroke(false) },
		func() { b.runStroke(true) },
	)
	return b
}

// StrokesFacade returns the facade used for replay.
func (b *SavedCommandBase) StrokesFacade() stroke.Facade { return b.facade }

func (b *SavedCommandBase) runStroke(undo bool) {
	log := logging.WithComponent("strokeundo")
	if b.facade == nil {
		log.Warn("saved command has no strokes facade", "command", b.Text())
		return
	}

	id, err := b.facade.StartStroke(NewUndoCommandStrategy(b.Text(), undo, nil))
	if err != nil {
		log.Warn("cannot replay saved command", "command", b.Text(), "undo", undo, "error", err)
		return
	}

	b.addCommands(id, undo)

	if err := b.facade.EndStroke(id); err != nil {
		log.Warn("cannot end replay stroke", "command", b.Text(), "stroke", id, "error", err)
	}
}

func (b *SavedCommandBase) addJob(id stroke.ID, job CommandJob) {
	if err := b.facade.AddJob(id, job); err != nil {
		logging.WithComponent("strokeundo").Warn("cannot queue replay job",
			"command", b.Text(), "stroke", id, "error", err)
	}
}

// SavedCommand replays a single command.
type SavedCommand struct {
	*SavedCommandBase
	command history.Command
}

// NewSavedCommand wraps cmd, which must already have been executed. The
// wrapper takes over the text of cmd.
func NewSavedCommand(cmd history.Command, facade stroke.Facade) *SavedCommand {
	c := &SavedCommand{command: cmd}
	text := "<empty saved command>"
	if cmd != nil {
		text = cmd.Text()
	}
	c.SavedCommandBase = newSavedCommandBase(text, facade, c.queueCommands)
	return c
}

// Command returns the wrapped command.
func (c *SavedCommand) Command() history.Command { return c.command }

// ID returns the merge id of the wrapped command.
func (c *SavedCommand) ID() int {
	if c.command == nil {
		return history.NoMergeID
	}
	return c.command.ID()
}

// CanMergeWith reports whether the wrapped command can absorb other. A
// saved other is unwrapped first.
func (c *SavedCommand) CanMergeWith(other history.Command) bool {
	other = unwrapSaved(other)
	if c.command == nil || other == nil {
		return false
	}
	return history.CanMergeWith(c.command, other)
}

// MergeWith merges other into the wrapped command. A saved other is
// unwrapped first.
func (c *SavedCommand) MergeWith(other history.Command) bool {
	other = unwrapSaved(other)
	if c.command == nil || other == nil {
		return false
	}
	return c.command.MergeWith(other)
}

// Stateless reports whether the wrapped command is stateless.
func (c *SavedCommand) Stateless() bool {
	return c.command != nil && history.IsStateless(c.command)
}

func unwrapSaved(cmd history.Command) history.Command {
	if saved, ok := cmd.(*SavedCommand); ok {
		return saved.command
	}
	return cmd
}

func (c *SavedCommand) queueCommands(id stroke.ID, undo bool) {
	c.addJob(id, NewCommandJob(c.command, undo))
}

// savedEntry is one command of a macro with the hints it ran with.
type savedEntry struct {
	command history.Command
	seq     stroke.Sequentiality
	excl    stroke.Exclusivity
}

// SavedMacroCommand replays a list of commands as one history entry.
// Redo queues them in insertion order and Undo in reverse order, each job
// carrying the hints the command was recorded with.
type SavedMacroCommand struct {
	*SavedCommandBase

	mu       sync.Mutex
	commands []savedEntry
}

// NewSavedMacroCommand creates an empty macro.
func NewSavedMacroCommand(text string, facade stroke.Facade) *SavedMacroCommand {
	m := &SavedMacroCommand{}
	m.SavedCommandBase = newSavedCommandBase(text, facade, m.queueCommands)
	return m
}

// AddCommand appends an already executed command. Nil commands are ignored.
func (m *SavedMacroCommand) AddCommand(cmd history.Command, seq stroke.Sequentiality, excl stroke.Exclusivity) {
	if cmd == nil {
		return
	}
	m.mu.Lock()
	m.commands = append(m.commands, savedEntry{command: cmd, seq: seq, excl: excl})
	m.mu.Unlock()
}

// Len returns the number of recorded commands.
func (m *SavedMacroCommand) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commands)
}

// Commands returns the recorded commands in insertion order.
func (m *SavedMacroCommand) Commands() []history.Command {
	entries := m.entries()
	cmds := make([]history.Command, len(entries))
	for i, e := range entries {
		cmds[i] = e.command
	}
	return cmds
}

// PerformCancel queues the rollback of a stroke that was running in the
// strokeUndo direction: the commands go to id in the opposite direction.
func (m *SavedMacroCommand) PerformCancel(id stroke.ID, strokeUndo bool) {
	m.queueCommands(id, !strokeUndo)
}

// CanMergeWith reports whether MergeWith would absorb other. other must be
// a macro with the same non-zero merge id and the same shape: as many
// commands, recorded with the same hints, where every pair is either two
// stateless commands or two commands known to merge.
func (m *SavedMacroCommand) CanMergeWith(other history.Command) bool {
	o, ok := other.(*SavedMacroCommand)
	if !ok || o == m || m.ID() == history.NoMergeID || o.ID() != m.ID() {
		return false
	}

	mine := m.entries()
	theirs := o.entries()
	if len(mine) != len(theirs) {
		return false
	}
	for i := range mine {
		a, b := mine[i], theirs[i]
		if a.seq != b.seq || a.excl != b.excl {
			return false
		}
		if history.IsStateless(a.command) && history.IsStateless(b.command) {
			continue
		}
		if !history.CanMergeWith(a.command, b.command) {
			return false
		}
	}
	return true
}

// MergeWith merges other pairwise when CanMergeWith allows it. Stateless
// pairs are dropped. A pair that still refuses to merge keeps its command
// from other at the end of the macro, so no recorded work is lost.
func (m *SavedMacroCommand) MergeWith(other history.Command) bool {
	if !m.CanMergeWith(other) {
		return false
	}
	o := other.(*SavedMacroCommand)

	mine := m.entries()
	theirs := o.entries()
	var leftover []savedEntry
	for i := range mine {
		if history.IsStateless(mine[i].command) && history.IsStateless(theirs[i].command) {
			continue
		}
		merged := mine[i].command.MergeWith(theirs[i].command)
		if !logging.SafeAssert(merged, "macro merge left a pair unmerged",
			"macro", m.Text(), "command", mine[i].command.Text()) {
			leftover = append(leftover, theirs[i])
		}
	}

	if len(leftover) > 0 {
		m.mu.Lock()
		m.commands = append(m.commands, leftover...)
		m.mu.Unlock()
	}
	return true
}

func (m *SavedMacroCommand) entries() []savedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]savedEntry, len(m.commands))
	copy(out, m.commands)
	return out
}

func (m *SavedMacroCommand) queueCommands(id stroke.ID, undo bool) {
	entries := m.entries()
	if !undo {
		for _, e := range entries {
			m.addJob(id, NewCommandJobWithHints(e.command, undo, e.seq, e.excl))
		}
		return
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		m.addJob(id, NewCommandJobWithHints(e.command, undo, e.seq, e.excl))
	}
}
