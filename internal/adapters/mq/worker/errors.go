package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrShutdownTimeout = errors.New("worker shutdown timed out")
	ErrAlreadyStarted  = errors.New("worker pool already started")
)
