package simulate

import "errors"

var (
	// ErrInvalidConfig is returned for a generator config that cannot produce a stream.
	ErrInvalidConfig = errors.New("invalid simulation config")
	// ErrBadLine is returned when a JSON-lines record cannot be decoded.
	ErrBadLine = errors.New("bad event line")
	// ErrThrottled is returned by HTTPSink when the server answers 429.
	ErrThrottled = errors.New("server throttled submission")
	// ErrRejected is returned by HTTPSink for any other non-202 answer.
	ErrRejected = errors.New("server rejected submission")
)
