// Package strokeundo connects the undo history to the stroke pipeline.
//
// Edits that were applied by a stroke are recorded as saved commands. The
// first Redo of a saved command does nothing, because the stroke already
// applied the work; every later Undo or Redo replays the wrapped commands
// through a fresh stroke, so history replay is ordered with every other
// queued edit.
//
// The usual flow is:
//
//	adapter := strokeundo.NewPostExecutionUndoAdapter(store, runner)
//	id, _ := runner.StartStroke(strokeundo.NewUndoCommandStrategy("Brush", false, adapter))
//	runner.AddJob(id, strokeundo.NewCommandJob(dab, false))
//	runner.EndStroke(id) // the finished stroke is pushed to store as one macro
package strokeundo
