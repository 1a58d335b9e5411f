package history

import "errors"

// Errors returned by Stack operations.
var (
	// ErrNothingToUndo indicates the stack pointer is at the start.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates the stack pointer is at the end.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrMacroOpen indicates an operation that is refused while a macro is
	// being recorded.
	ErrMacroOpen = errors.New("macro is open")

	// ErrCheckpointGone indicates the history position a checkpoint refers
	// to no longer exists.
	ErrCheckpointGone = errors.New("checkpoint is gone")

	// ErrNoMacro indicates EndMacro was called without a matching BeginMacro.
	ErrNoMacro = errors.New("no macro is open")
)
