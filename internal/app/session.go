package service

import (
	"context"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/rollcall/internal/adapters/mq/queue"
	workerpool "github.com/okian/rollcall/internal/adapters/mq/worker"
	"github.com/okian/rollcall/internal/domain/engine"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/tracker"
	"github.com/okian/rollcall/internal/domain/types"
)

var outcomeKinds = []model.Outcome{ //nolint:gochecknoglobals // fixed enum listing
	model.Ignored, model.Confirmed, model.AlreadyPresent, model.StorageError, model.WriteFailed,
}

// session is one recognition run. Its tracker lives exactly as long as it.
type session struct {
	id        string
	startedAt time.Time
	stoppedAt time.Time

	tracker *tracker.Tracker
	engine  *engine.Engine
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool

	outcomes [5]atomic.Int64
}

// Process implements worker.Processor for this session.
func (s *session) Process(ctx context.Context, ev model.IdentityEvent) model.Result {
	res := s.engine.Process(ctx, s.tracker, ev)
	if int(res.Outcome) < len(s.outcomes) {
		s.outcomes[res.Outcome].Add(1)
	}
	return res
}

func (s *session) info(active bool) types.SessionInfo {
	info := types.SessionInfo{
		ID:              s.id,
		Active:          active,
		StartedAt:       s.startedAt,
		TrackedSubjects: s.tracker.Len(),
		QueueLength:     s.queue.Len(context.Background()),
		Outcomes:        make(map[string]int64, len(outcomeKinds)),
	}
	if !s.stoppedAt.IsZero() {
		at := s.stoppedAt
		info.StoppedAt = &at
	}
	for _, o := range outcomeKinds {
		info.Outcomes[o.String()] = s.outcomes[o].Load()
	}
	return info
}
