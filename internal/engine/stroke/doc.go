// Package stroke defines the strokes facade used to run edits on a worker
// pipeline, and Runner, an in-process implementation of it.
//
// A stroke is a transaction made of jobs. Callers start a stroke with a
// Strategy, queue JobData against its ID and end it:
//
//	id, _ := facade.StartStroke(strategy)
//	facade.AddJob(id, job)
//	facade.EndStroke(id)
//
// Calls return as soon as the work is queued. Runner processes strokes in
// submission order and the jobs of a stroke in the order they were added.
//
// A stroke that has not finished yet can be cancelled. Jobs still pending are
// dropped and the strategy's CancelStroke callback may queue rollback jobs
// against the same ID; those run before the cancellation completes.
package stroke
