package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
)

const (
	defaultRetryDelay = 5 * time.Millisecond
	defaultMaxRetries = 200
)

// Submitter accepts one event. The service and HTTPSink both satisfy it.
type Submitter interface {
	Submit(ctx context.Context, ev model.IdentityEvent) error
}

// Report summarizes a replay.
type Report struct {
	Submitted int
	Retries   int
	Duration  time.Duration
}

// Replayer feeds a stream into a Submitter in order, backing off while the
// receiver is full.
type Replayer struct {
	retryIf    func(error) bool
	retryDelay time.Duration
	maxRetries int
	pace       bool
	log        logger.Logger
}

// NewReplayer creates a replayer. By default only ErrThrottled is retried.
func NewReplayer(opts ...ReplayOption) *Replayer {
	r := &Replayer{
		retryIf:    func(err error) bool { return errors.Is(err, ErrThrottled) },
		retryDelay: defaultRetryDelay,
		maxRetries: defaultMaxRetries,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Replay submits evs in order. It stops at the first error that is not
// retryable, or once an event has been retried maxRetries times.
func (r *Replayer) Replay(ctx context.Context, sub Submitter, evs []model.IdentityEvent) (Report, error) {
	start := time.Now()
	var rep Report
	for i, ev := range evs {
		if r.pace && i > 0 {
			if gap := ev.Timestamp.Sub(evs[i-1].Timestamp); gap > 0 {
				if err := sleep(ctx, gap); err != nil {
					rep.Duration = time.Since(start)
					return rep, err
				}
			}
		}
		for attempt := 0; ; attempt++ {
			err := sub.Submit(ctx, ev)
			if err == nil {
				rep.Submitted++
				break
			}
			if !r.retryIf(err) || attempt >= r.maxRetries {
				rep.Duration = time.Since(start)
				return rep, fmt.Errorf("event %d (%s): %w", i, ev.SubjectID, err)
			}
			rep.Retries++
			if err := sleep(ctx, r.retryDelay); err != nil {
				rep.Duration = time.Since(start)
				return rep, err
			}
		}
	}
	rep.Duration = time.Since(start)
	r.log.Info(ctx, "replay finished",
		logger.Int("submitted", rep.Submitted),
		logger.Int("retries", rep.Retries),
		logger.Duration("duration", rep.Duration))
	return rep, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("replay: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
