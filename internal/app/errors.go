package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrSessionActive = errors.New("a recognition session is already active")
	ErrNoSession     = errors.New("no active recognition session")
	ErrBackpressure  = errors.New("event queue full")
	ErrInvalidEvent  = errors.New("invalid identity event")
	ErrInvalidDate   = errors.New("invalid date")
)
