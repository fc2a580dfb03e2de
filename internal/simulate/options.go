package simulate

import (
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// ReplayOption configures a Replayer.
type ReplayOption func(*Replayer)

// WithRetryIf sets which submission errors are retried after a short delay.
func WithRetryIf(fn func(error) bool) ReplayOption {
	return func(r *Replayer) {
		if fn != nil {
			r.retryIf = fn
		}
	}
}

// WithRetryDelay sets the delay between retries of one event.
func WithRetryDelay(d time.Duration) ReplayOption {
	return func(r *Replayer) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// WithMaxRetries bounds retries per event.
func WithMaxRetries(n int) ReplayOption {
	return func(r *Replayer) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithPacing replays at the speed implied by event timestamps.
func WithPacing(enabled bool) ReplayOption {
	return func(r *Replayer) {
		r.pace = enabled
	}
}

// WithReplayLogger sets the logger.
func WithReplayLogger(l logger.Logger) ReplayOption {
	return func(r *Replayer) {
		if l != nil {
			r.log = l
		}
	}
}
