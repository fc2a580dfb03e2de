// Package engine turns identity sightings into at most one attendance
// record per subject per day.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/domain/datelock"
	"github.com/okian/rollcall/internal/domain/dedupe"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/tracker"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// DefaultIOTimeout bounds a single storage call.
const DefaultIOTimeout = 5 * time.Second

// Engine confirms presence. It is safe for concurrent use; the dedup
// check and the ledger append for one date run under that date's lock.
type Engine struct {
	dedupe *dedupe.Store
	writer ledger.Writer

	now       func() time.Time
	loc       *time.Location
	ioTimeout time.Duration
	log       logger.Logger

	locks *datelock.Locks
}

// New returns an Engine checking against d and writing through w.
func New(d *dedupe.Store, w ledger.Writer, opts ...Option) *Engine {
	e := &Engine{
		dedupe:    d,
		writer:    w,
		now:       time.Now,
		loc:       time.Local,
		ioTimeout: DefaultIOTimeout,
		log:       logger.Nop(),
		locks:     datelock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the zone used for calendar dates.
func (e *Engine) Location() *time.Location { return e.loc }

// Today returns the current calendar date.
func (e *Engine) Today() model.DateKey { return model.DateOf(e.now(), e.loc) }

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.ioTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.ioTimeout)
}

// Process feeds one sighting through the session's tracker and, on a
// threshold crossing, records the subject for today unless already present.
//
// The counter is reset on every crossing whatever the outcome, so a failed
// attempt is retried only after another full run of sightings. Storage
// errors are returned in the Result and never retried here.
func (e *Engine) Process(ctx context.Context, session *tracker.Tracker, ev model.IdentityEvent) model.Result {
	metrics.RecordEventObserved()
	obs := session.Observe(ev.SubjectID)
	if !obs.JustCrossedThreshold {
		return e.finish(ctx, ev, model.Result{Outcome: model.Ignored, Count: obs.Count})
	}
	metrics.RecordThresholdCrossing()

	now := e.now()
	today := model.DateOf(now, e.loc)

	unlock := e.locks.Lock(today)
	defer unlock()

	cctx, cancel := e.withTimeout(ctx)
	present, err := e.dedupe.AlreadyConfirmed(cctx, today, ev.SubjectID)
	cancel()
	if err != nil {
		return e.finish(ctx, ev, model.Result{Outcome: model.StorageError, Count: obs.Count, Err: err})
	}
	if present {
		return e.finish(ctx, ev, model.Result{Outcome: model.AlreadyPresent, Count: obs.Count})
	}

	rec := model.AttendanceRecord{
		DisplayName: ev.DisplayName,
		SubjectID:   ev.SubjectID,
		Timestamp:   now,
		Date:        today,
	}
	wctx, cancel := e.withTimeout(ctx)
	err = e.writer.Append(wctx, rec)
	cancel()
	switch {
	case errors.Is(err, ledger.ErrDuplicate):
		// another writer got there first
		e.dedupe.MarkConfirmed(today, ev.SubjectID)
		return e.finish(ctx, ev, model.Result{Outcome: model.AlreadyPresent, Count: obs.Count})
	case err != nil:
		return e.finish(ctx, ev, model.Result{Outcome: model.WriteFailed, Count: obs.Count, Err: err})
	}
	e.dedupe.MarkConfirmed(today, ev.SubjectID)
	return e.finish(ctx, ev, model.Result{Outcome: model.Confirmed, Count: obs.Count, Record: &rec})
}

func (e *Engine) finish(ctx context.Context, ev model.IdentityEvent, res model.Result) model.Result {
	metrics.RecordOutcome(res.Outcome.String())
	fields := []logger.Field{
		logger.String("subject_id", ev.SubjectID),
		logger.String("outcome", res.Outcome.String()),
	}
	switch res.Outcome {
	case model.Ignored:
		e.log.Debug(ctx, "sighting counted", append(fields, logger.Int("count", res.Count))...)
	case model.Confirmed:
		e.log.Info(ctx, "attendance recorded", append(fields,
			logger.String("display_name", res.Record.DisplayName),
			logger.String("date", res.Record.Date.String()))...)
	case model.AlreadyPresent:
		e.log.Debug(ctx, "subject already present", fields...)
	case model.StorageError, model.WriteFailed:
		e.log.Error(ctx, "attendance not recorded", append(fields, logger.Error(res.Err))...)
	}
	return res
}
