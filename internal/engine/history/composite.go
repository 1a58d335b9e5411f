package history

import "github.com/dshills/strokeundo/internal/logging"

// CompositeCommand owns an ordered list of commands. Redo runs its own
// children first and then the list forward; Undo runs the list backward and
// then its own children.
type CompositeCommand struct {
	Base
	commands []Command
}

// NewCompositeCommand creates an empty composite.
func NewCompositeCommand(text string) *CompositeCommand {
	return &CompositeCommand{Base: Base{text: text}}
}

// AddCommand appends cmd and makes the composite its parent. Nil commands
// are ignored.
func (c *CompositeCommand) AddCommand(cmd Command) {
	if cmd == nil {
		return
	}
	if p, ok := cmd.(parented); ok {
		p.setParent(c)
	}
	c.commands = append(c.commands, cmd)
}

// Len returns the number of commands in the list.
func (c *CompositeCommand) Len() int { return len(c.commands) }

// Commands returns a copy of the command list.
func (c *CompositeCommand) Commands() []Command {
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// Redo implements Command.
func (c *CompositeCommand) Redo() {
	c.Base.Redo()
	for _, cmd := range c.commands {
		cmd.Redo()
	}
}

// Undo implements Command.
func (c *CompositeCommand) Undo() {
	for i := len(c.commands) - 1; i >= 0; i-- {
		c.commands[i].Undo()
	}
	c.Base.Undo()
}

// MergeWith merges other into the last command of the list when both share
// a non-zero merge id.
func (c *CompositeCommand) MergeWith(other Command) bool {
	if len(c.commands) == 0 || other == nil {
		return false
	}
	last := c.commands[len(c.commands)-1]
	if !canMerge(last, other) {
		return false
	}
	return last.MergeWith(other)
}

// ComposeCommands folds cmd into parent and returns the result.
//
//   - a nil cmd is replaced by a placeholder that logs when executed
//   - a nil parent returns cmd itself
//   - a CompositeCommand parent gets cmd appended
//   - any other parent is wrapped with cmd in a new CompositeCommand that
//     takes over parent's text
//
// Commands that already have a parent are never attached; parent is
// returned unchanged and a warning is logged.
func ComposeCommands(parent, cmd Command) Command {
	if cmd == nil {
		logging.WithComponent("history").Warn("composing a nil command, substituting placeholder")
		cmd = newFailedCommand()
	}
	if parent == nil {
		return cmd
	}
	if !logging.SafeAssert(!HasParent(cmd), "composed command already has a parent", "text", cmd.Text()) {
		return parent
	}

	composite, ok := parent.(*CompositeCommand)
	if !ok {
		composite = NewCompositeCommand(parent.Text())
		composite.AddCommand(parent)
	}
	composite.AddCommand(cmd)
	return composite
}

// canMerge reports whether cur and next share a mergeable id.
func canMerge(cur, next Command) bool {
	return cur != nil && next != nil && cur.ID() != NoMergeID && cur.ID() == next.ID()
}
