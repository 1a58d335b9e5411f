package history

// MacroScope provides a convenient way to group commands using defer.
// Usage:
//
//	func fill(store Store) {
//	    defer BeginMacroScope(store, "Fill").End()
//	    // ... AddCommand calls ...
//	}
type MacroScope struct {
	store  Store
	active bool
}

// BeginMacroScope starts a macro on store and returns its scope.
func BeginMacroScope(store Store, name string) *MacroScope {
	store.BeginMacro(name)
	return &MacroScope{store: store, active: true}
}

// End ends the macro. Safe to call multiple times; only the first call has
// effect.
func (m *MacroScope) End() {
	if m.active {
		m.store.EndMacro()
		m.active = false
	}
}

// Transaction runs fn inside a macro named name. If fn returns an error the
// macro is closed, reverted and removed from the history, and the error is
// returned. Commands of a DumbStore cannot be reverted and stay applied.
func Transaction(store Store, name string, fn func() error) error {
	before := store.PresentCommand()

	store.BeginMacro(name)
	err := fn()
	store.EndMacro()

	if err != nil {
		if store.PresentCommand() != before {
			store.UndoLastCommand()
			store.PurgeRedoState()
		}
		return err
	}
	return nil
}

// AddCommands adds each command as a single history entry named name. A
// single command is added without a macro.
func AddCommands(store Store, name string, cmds ...Command) {
	switch len(cmds) {
	case 0:
		return
	case 1:
		store.AddCommand(cmds[0])
		return
	}
	defer BeginMacroScope(store, name).End()
	for _, cmd := range cmds {
		store.AddCommand(cmd)
	}
}

// Checkpoint represents a point in history that can be returned to. A
// checkpoint is gone once the entry it follows is trimmed by the undo
// limit, discarded by a new branch, or merged into.
type Checkpoint struct {
	serial uint64
}

// CreateCheckpoint creates a checkpoint at the current history position.
func (s *SurrogateStore) CreateCheckpoint() Checkpoint {
	return Checkpoint{serial: s.stack.Serial()}
}

// UndoToCheckpoint undoes all entries applied since cp.
func (s *SurrogateStore) UndoToCheckpoint(cp Checkpoint) error {
	target, err := s.checkpointIndex(cp)
	if err != nil {
		return err
	}
	for s.stack.Index() > target {
		cmd, err := s.stack.Undo()
		if err != nil {
			return err
		}
		s.NotifyCommandExecuted(cmd)
	}
	return nil
}

// RedoToCheckpoint redoes entries until cp is reached.
func (s *SurrogateStore) RedoToCheckpoint(cp Checkpoint) error {
	target, err := s.checkpointIndex(cp)
	if err != nil {
		return err
	}
	for s.stack.Index() < target {
		cmd, err := s.stack.Redo()
		if err != nil {
			return err
		}
		s.NotifyCommandExecuted(cmd)
	}
	return nil
}

func (s *SurrogateStore) checkpointIndex(cp Checkpoint) (int, error) {
	if s.stack.IsMacroOpen() {
		return 0, ErrMacroOpen
	}
	target, ok := s.stack.IndexOfSerial(cp.serial)
	if !ok {
		return 0, ErrCheckpointGone
	}
	return target, nil
}
