// Package service wires the attendance engine, the session workers and the
// ledger into the operations the HTTP API and CLI expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rollcall/internal/adapters/ledger"
	eventqueue "github.com/okian/rollcall/internal/adapters/mq/queue"
	workerpool "github.com/okian/rollcall/internal/adapters/mq/worker"
	"github.com/okian/rollcall/internal/domain/dedupe"
	"github.com/okian/rollcall/internal/domain/engine"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/tracker"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

const (
	defaultQueueSize       = 1024
	defaultShutdownTimeout = 10 * time.Second
	systemMetricsInterval  = 5 * time.Second
)

// Service owns the ledger and runs at most one recognition session at a time.
type Service struct {
	mu sync.RWMutex

	ledger ledger.Ledger
	dedupe *dedupe.Store
	engine *engine.Engine

	// Configuration
	threshold       int
	workerCount     int
	queueSize       int
	cacheDays       int
	ioTimeout       time.Duration
	shutdownTimeout time.Duration
	loc             *time.Location
	now             func() time.Time

	// State
	started bool
	current *session
	last    *session
	stopCh  chan struct{}

	logger logger.Logger
}

// New constructs a Service over l. The service closes l on Stop.
func New(l ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:          l,
		threshold:       tracker.DefaultThreshold,
		workerCount:     1,
		queueSize:       defaultQueueSize,
		cacheDays:       dedupe.DefaultMaxDays,
		ioTimeout:       engine.DefaultIOTimeout,
		shutdownTimeout: defaultShutdownTimeout,
		loc:             time.Local,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the dedup cache and engine. It does not open a session.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.Named("service")
	s.stopCh = make(chan struct{})

	s.dedupe = dedupe.New(s.ledger, dedupe.WithMaxDays(s.cacheDays))
	s.engine = engine.New(s.dedupe, s.ledger,
		engine.WithClock(s.now),
		engine.WithLocation(s.loc),
		engine.WithIOTimeout(s.ioTimeout),
		engine.WithLogger(s.logger.Named("engine")),
	)
	go s.systemMetricsLoop()

	s.started = true
	metrics.SetSessionActive(false)
	s.logger.Info(ctx, "attendance service started",
		logger.Int("threshold", s.threshold),
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.String("timezone", s.loc.String()),
	)
	return nil
}

// Stop ends any active session, draining its queue, and closes the ledger.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil
	}

	var errs []error
	if _, err := s.StopSession(ctx); err != nil && !errors.Is(err, ErrNoSession) {
		errs = append(errs, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.stopCh)
	s.started = false
	if err := s.ledger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close ledger: %w", err))
	}
	s.logger.Info(ctx, "attendance service stopped")
	return errors.Join(errs...)
}

func (s *Service) systemMetricsLoop() {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
			s.mu.RLock()
			if cur := s.current; cur != nil {
				metrics.UpdateTrackedSubjects(cur.tracker.Len())
			}
			s.mu.RUnlock()
		}
	}
}

// StartSession opens a recognition session with empty counters.
func (s *Service) StartSession(ctx context.Context) (types.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return types.SessionInfo{}, ErrNotStarted
	}
	if s.current != nil {
		return s.current.info(true), ErrSessionActive
	}

	sess := &session{
		id:        uuid.NewString(),
		startedAt: s.now(),
		tracker:   tracker.New(tracker.WithThreshold(s.threshold)),
		engine:    s.engine,
		queue:     eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize)),
	}
	sess.pool = workerpool.NewPool(s.workerCount, sess.queue, sess,
		workerpool.WithPoolLogger(s.logger))
	// workers outlive the request that started them
	if err := sess.pool.Start(context.WithoutCancel(ctx)); err != nil {
		return types.SessionInfo{}, err
	}
	s.current = sess

	metrics.SetSessionActive(true)
	metrics.UpdateTrackedSubjects(0)
	s.logger.Info(ctx, "recognition session started", logger.String("session_id", sess.id))
	return sess.info(true), nil
}

// StopSession closes the active session's queue, waits for queued events
// to be processed (bounded by the shutdown timeout) and discards its
// counters.
func (s *Service) StopSession(ctx context.Context) (types.SessionInfo, error) {
	s.mu.Lock()
	sess := s.current
	s.current = nil
	s.mu.Unlock()
	if sess == nil {
		return types.SessionInfo{}, ErrNoSession
	}

	dctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	err := sess.pool.Shutdown(dctx)
	if err != nil {
		s.logger.Warn(ctx, "session did not drain", logger.String("session_id", sess.id), logger.Error(err))
	}

	sess.stoppedAt = s.now()
	info := sess.info(false)
	sess.tracker.Reset()

	s.mu.Lock()
	s.last = sess
	s.mu.Unlock()

	metrics.SetSessionActive(false)
	metrics.UpdateTrackedSubjects(0)
	s.logger.Info(ctx, "recognition session stopped",
		logger.String("session_id", sess.id),
		logger.Any("outcomes", info.Outcomes),
	)
	return info, err
}

// Session returns the active session, or the last stopped one with
// active=false. The bool is false if no session ever ran.
func (s *Service) Session() (types.SessionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current != nil {
		return s.current.info(true), true
	}
	if s.last != nil {
		return s.last.info(false), true
	}
	return types.SessionInfo{}, false
}

// Submit queues one sighting for the active session. A zero timestamp is
// replaced with the current time.
func (s *Service) Submit(ctx context.Context, ev model.IdentityEvent) error {
	metrics.RecordEventReceived()
	if strings.TrimSpace(ev.SubjectID) == "" {
		return fmt.Errorf("%w: subject_id is required", ErrInvalidEvent)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}

	s.mu.RLock()
	sess := s.current
	s.mu.RUnlock()
	if sess == nil {
		return ErrNoSession
	}

	err := sess.queue.Enqueue(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, eventqueue.ErrFull):
		return fmt.Errorf("%w: %w", ErrBackpressure, err)
	case errors.Is(err, eventqueue.ErrClosed):
		// session stopped between the check and the enqueue
		return ErrNoSession
	default:
		return err
	}
}

// SubmitBatch queues the detections of one frame in order. It stops at the
// first failure and reports how many were accepted.
func (s *Service) SubmitBatch(ctx context.Context, evs []model.IdentityEvent) (int, error) {
	for i, ev := range evs {
		if err := s.Submit(ctx, ev); err != nil {
			return i, err
		}
	}
	return len(evs), nil
}

// Today returns the current calendar date in the service's zone.
func (s *Service) Today() model.DateKey {
	return model.DateOf(s.now(), s.loc)
}

// Attendance returns the ledger rows for date in append order.
func (s *Service) Attendance(ctx context.Context, date model.DateKey) ([]types.AttendanceEntry, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	recs, err := s.ledger.Records(ctx, date)
	if err != nil {
		return nil, err
	}
	return types.FromRecords(recs), nil
}

// Dates lists the dates that have a ledger.
func (s *Service) Dates(ctx context.Context) ([]model.DateKey, error) {
	return s.ledger.Dates(ctx)
}

// GetStats returns a service snapshot for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Started:       s.started,
		Today:         s.Today().String(),
		Timezone:      s.loc.String(),
		Threshold:     s.threshold,
		WorkerCount:   s.workerCount,
		QueueCapacity: s.queueSize,
	}
	if !s.started {
		return stats
	}
	stats.CachedDays = s.dedupe.CachedDays()
	if recs, err := s.ledger.Records(ctx, s.Today()); err == nil {
		stats.TodayRecords = len(recs)
	}
	if s.current != nil {
		info := s.current.info(true)
		stats.Session = &info
		metrics.UpdateTrackedSubjects(info.TrackedSubjects)
	}
	return stats
}
