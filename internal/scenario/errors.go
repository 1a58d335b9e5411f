package scenario

import "errors"

// Sentinel errors for the scenario package.
var (
	// ErrUnknownOp is returned for jobs with an unsupported op.
	ErrUnknownOp = errors.New("unknown op")

	// ErrInvalidStep is returned for malformed steps and jobs.
	ErrInvalidStep = errors.New("invalid step")

	// ErrUnknownCheckpoint is returned when rewinding to a checkpoint that
	// was never recorded.
	ErrUnknownCheckpoint = errors.New("unknown checkpoint")
)
