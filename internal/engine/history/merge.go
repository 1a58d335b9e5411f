package history

import "github.com/dshills/strokeundo/internal/logging"

// RedoAndMergeIntoAccumulatingCommand executes cmd and folds it into
// accumulator, returning the new accumulator.
//
// With no accumulator, cmd itself becomes the accumulator. Otherwise cmd is
// merged into the accumulator and dropped. A failed merge is logged and
// both commands are kept, composed in order, so no work is lost.
func RedoAndMergeIntoAccumulatingCommand(cmd, accumulator Command) Command {
	if cmd == nil {
		return accumulator
	}
	cmd.Redo()

	if accumulator == nil {
		return cmd
	}
	if logging.SafeAssert(accumulator.MergeWith(cmd), "accumulating command refused merge",
		"accumulator", accumulator.Text(), "command", cmd.Text()) {
		return accumulator
	}
	return ComposeCommands(accumulator, cmd)
}
