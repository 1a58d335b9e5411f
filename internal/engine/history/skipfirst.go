package history

// unnamedCommandText is used when a wrapper is built around a nil command.
const unnamedCommandText = "<bug: unnamed command>"

// SkipFirstRedo is a command whose first Redo is a no-op because the work
// was already applied before the command object existed. Every later Redo
// runs the redo step followed by the embedded children; every Undo runs the
// children backward followed by the undo step.
//
// The redo and undo steps are supplied at construction so that the skip
// rule cannot be bypassed by a type embedding SkipFirstRedo.
type SkipFirstRedo struct {
	Base
	skipOneRedo bool
	redoImpl    func()
	undoImpl    func()
}

// NewSkipFirstRedoBase creates a command from explicit redo and undo steps.
// Either step may be nil.
func NewSkipFirstRedoBase(text string, redoImpl, undoImpl func()) *SkipFirstRedo {
	return &SkipFirstRedo{
		Base:        Base{text: text},
		skipOneRedo: true,
		redoImpl:    redoImpl,
		undoImpl:    undoImpl,
	}
}

// NewSkipFirstRedoWrapper wraps child, taking over its text. The wrapper
// does not take the child's merge id.
func NewSkipFirstRedoWrapper(child Command) *SkipFirstRedo {
	if child == nil {
		return NewSkipFirstRedoBase(unnamedCommandText, nil, nil)
	}
	return NewSkipFirstRedoBase(child.Text(), child.Redo, child.Undo)
}

// SetSkipOneRedo sets whether the next Redo is skipped.
func (c *SkipFirstRedo) SetSkipOneRedo(skip bool) { c.skipOneRedo = skip }

// SkipsNextRedo reports whether the next Redo will be skipped.
func (c *SkipFirstRedo) SkipsNextRedo() bool { return c.skipOneRedo }

// Redo implements Command.
func (c *SkipFirstRedo) Redo() {
	if c.skipOneRedo {
		c.skipOneRedo = false
		return
	}
	if c.redoImpl != nil {
		c.redoImpl()
	}
	c.Base.Redo()
}

// Undo implements Command. Undo is never skipped.
func (c *SkipFirstRedo) Undo() {
	c.Base.Undo()
	if c.undoImpl != nil {
		c.undoImpl()
	}
}
