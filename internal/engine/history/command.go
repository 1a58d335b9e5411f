package history

import (
	"github.com/dshills/strokeundo/internal/logging"
)

// NoMergeID is the merge id of commands that never merge.
const NoMergeID = 0

// Command represents a reversible unit of work.
//
// Redo and Undo must be called in strict alternation starting with Redo.
// Calling them out of order is a caller bug and the result is undefined.
type Command interface {
	// Redo applies the command.
	Redo()

	// Undo reverts the command.
	Undo()

	// Text returns the display name of the command.
	Text() string

	// ID returns the merge id. Two adjacent commands with the same
	// non-zero id may be coalesced with MergeWith.
	ID() int

	// MergeWith tries to absorb other into the receiver. It reports
	// whether the merge happened; on success the caller drops other.
	MergeWith(other Command) bool
}

// Stateless is implemented by commands that leave no document state behind
// once the surrounding work is complete, such as batch brackets. Merging
// may drop a stateless command.
type Stateless interface {
	Stateless() bool
}

// IsStateless reports whether cmd declares itself stateless.
func IsStateless(cmd Command) bool {
	s, ok := cmd.(Stateless)
	return ok && s.Stateless()
}

// MergeChecker is implemented by commands that can tell whether MergeWith
// would succeed without changing anything.
type MergeChecker interface {
	CanMergeWith(other Command) bool
}

// CanMergeWith reports whether cur.MergeWith(other) is known to succeed.
// Commands that do not implement MergeChecker are never known to merge.
func CanMergeWith(cur, other Command) bool {
	if !canMerge(cur, other) {
		return false
	}
	c, ok := cur.(MergeChecker)
	return ok && c.CanMergeWith(other)
}

// parented is implemented by commands that track a parent.
type parented interface {
	Parent() Command
	setParent(p Command)
}

// HasParent reports whether cmd is already owned by a parent command.
func HasParent(cmd Command) bool {
	if p, ok := cmd.(parented); ok {
		return p.Parent() != nil
	}
	return false
}

// Base implements the bookkeeping shared by commands: display text, merge
// id, parent link and an ordered list of child commands.
//
// Base on its own is a valid Command whose Redo runs the children forward
// and whose Undo runs them backward. Types embedding Base call these
// methods from their own Redo and Undo to keep child commands in step.
type Base struct {
	text     string
	id       int
	parent   Command
	children []Command
}

// NewCommand creates a named container command. When parent is non-nil the
// new command is appended to parent's children.
func NewCommand(text string, parent *Base) *Base {
	b := &Base{text: text}
	if parent != nil {
		parent.AddChild(b)
	}
	return b
}

// Redo runs the child commands in insertion order.
func (b *Base) Redo() {
	for _, c := range b.children {
		c.Redo()
	}
}

// Undo runs the child commands in reverse order.
func (b *Base) Undo() {
	for i := len(b.children) - 1; i >= 0; i-- {
		b.children[i].Undo()
	}
}

// Text returns the display name.
func (b *Base) Text() string { return b.text }

// SetText sets the display name.
func (b *Base) SetText(text string) { b.text = text }

// ID returns the merge id.
func (b *Base) ID() int { return b.id }

// SetID sets the merge id.
func (b *Base) SetID(id int) { b.id = id }

// MergeWith never merges.
func (b *Base) MergeWith(Command) bool { return false }

// Parent returns the owning command, or nil.
func (b *Base) Parent() Command { return b.parent }

func (b *Base) setParent(p Command) { b.parent = p }

// AddChild appends cmd to the child list and takes ownership of it.
// Nil commands and commands that already have a parent are rejected.
func (b *Base) AddChild(cmd Command) {
	if cmd == nil {
		return
	}
	if !logging.SafeAssert(!HasParent(cmd), "command already has a parent", "text", cmd.Text()) {
		return
	}
	if p, ok := cmd.(parented); ok {
		p.setParent(b)
	}
	b.children = append(b.children, cmd)
}

// ChildCount returns the number of child commands.
func (b *Base) ChildCount() int { return len(b.children) }

// Child returns the child at index i, or nil when i is out of range.
func (b *Base) Child(i int) Command {
	if i < 0 || i >= len(b.children) {
		return nil
	}
	return b.children[i]
}

// lastChild returns the most recently added child, or nil.
func (b *Base) lastChild() Command {
	if len(b.children) == 0 {
		return nil
	}
	return b.children[len(b.children)-1]
}

// failedCommandText is the display name of the placeholder substituted for
// commands that could not be created.
const failedCommandText = "<failed command>"

// failedCommand stands in for a nil command so history entries stay valid.
type failedCommand struct {
	Base
}

func newFailedCommand() *failedCommand {
	return &failedCommand{Base: Base{text: failedCommandText}}
}

func (c *failedCommand) Redo() {
	logging.WithComponent("history").Warn("redo of a command that failed to be created")
	c.Base.Redo()
}

func (c *failedCommand) Undo() {
	c.Base.Undo()
	logging.WithComponent("history").Warn("undo of a command that failed to be created")
}
