package history

// FlipFlopState is the phase a FlipFlopCommand is in.
type FlipFlopState int

const (
	// Initializing commands run part A on redo and part B on undo.
	Initializing FlipFlopState = iota
	// Finalizing commands run part B on redo and part A on undo.
	Finalizing
)

// String returns the state name.
func (s FlipFlopState) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Finalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// FlipFlopPart is one half of a FlipFlopCommand.
type FlipFlopPart func(c *FlipFlopCommand)

// FlipFlopCommand pairs a setup step with a teardown step that are not
// simple inverses of each other. A command created Initializing sets up on
// redo and tears down on undo; a Finalizing one does the opposite.
//
// The command never changes its own state.
type FlipFlopCommand struct {
	Base
	state     FlipFlopState
	redone    bool
	stateless bool
	partA     FlipFlopPart
	partB     FlipFlopPart
}

// NewFlipFlopCommand creates a command in the Finalizing state when
// finalizing is true and in the Initializing state otherwise. Nil parts are
// no-ops.
func NewFlipFlopCommand(text string, finalizing bool, partA, partB FlipFlopPart) *FlipFlopCommand {
	state := Initializing
	if finalizing {
		state = Finalizing
	}
	return NewFlipFlopCommandWithState(text, state, partA, partB)
}

// NewFlipFlopCommandWithState creates a command in the given state.
func NewFlipFlopCommandWithState(text string, state FlipFlopState, partA, partB FlipFlopPart) *FlipFlopCommand {
	return &FlipFlopCommand{
		Base:  Base{text: text},
		state: state,
		partA: partA,
		partB: partB,
	}
}

// Redo runs part A while initializing and part B while finalizing.
func (c *FlipFlopCommand) Redo() {
	if c.state == Initializing {
		c.run(c.partA)
	} else {
		c.run(c.partB)
	}
	c.redone = true
}

// Undo runs part A while finalizing and part B while initializing.
func (c *FlipFlopCommand) Undo() {
	if c.state == Finalizing {
		c.run(c.partA)
	} else {
		c.run(c.partB)
	}
}

// IsFirstRedo reports whether Redo has not completed yet. Parts called from
// the first Redo observe true.
func (c *FlipFlopCommand) IsFirstRedo() bool { return !c.redone }

// State returns the current state.
func (c *FlipFlopCommand) State() FlipFlopState { return c.state }

// SetState changes the state.
func (c *FlipFlopCommand) SetState(state FlipFlopState) { c.state = state }

// SetStateless marks the command as leaving no state behind, which lets
// macro merges drop it.
func (c *FlipFlopCommand) SetStateless(stateless bool) { c.stateless = stateless }

// Stateless implements Stateless.
func (c *FlipFlopCommand) Stateless() bool { return c.stateless }

func (c *FlipFlopCommand) run(part FlipFlopPart) {
	if part != nil {
		part(c)
	}
}
