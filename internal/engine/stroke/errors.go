package stroke

import "errors"

// Sentinel errors for the stroke package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running runner.
	ErrAlreadyRunning = errors.New("stroke runner is already running")

	// ErrDraining is returned by Start while a stopped runner's worker is
	// still processing queued tasks.
	ErrDraining = errors.New("stroke runner is still draining")

	// ErrNotRunning is returned when work is submitted to a stopped runner.
	ErrNotRunning = errors.New("stroke runner is not running")

	// ErrUnknownStroke is returned for IDs that were never started or have
	// already completed.
	ErrUnknownStroke = errors.New("unknown stroke")

	// ErrStrokeEnded is returned when jobs are added after EndStroke or
	// CancelStroke.
	ErrStrokeEnded = errors.New("stroke already ended")
)
