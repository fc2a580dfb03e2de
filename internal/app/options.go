package service

import (
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithThreshold sets how many sightings confirm presence.
func WithThreshold(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.threshold = k
		}
	}
}

// WithWorkerCount sets the number of session workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of a session's event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeCacheDays bounds how many dates the dedup cache keeps.
func WithDedupeCacheDays(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheDays = n
		}
	}
}

// WithIOTimeout bounds each storage call made while confirming.
func WithIOTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ioTimeout = d
		}
	}
}

// WithShutdownTimeout bounds how long stopping a session may drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLocation sets the zone calendar dates are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
