package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/rollcall/internal/adapters/mq/queue"
	worker "github.com/okian/rollcall/internal/adapters/mq/worker"
	model "github.com/okian/rollcall/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

// recordingProcessor remembers the order events arrive per subject.
type recordingProcessor struct {
	mu    sync.Mutex
	seen  map[string][]time.Time
	total int
	done  int
	block chan struct{}
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{seen: map[string][]time.Time{}}
}

func (r *recordingProcessor) Process(ctx context.Context, ev model.IdentityEvent) model.Result {
	defer func() {
		r.mu.Lock()
		r.done++
		r.mu.Unlock()
	}()
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return model.Result{Outcome: model.Ignored, Err: ctx.Err()}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[ev.SubjectID] = append(r.seen[ev.SubjectID], ev.Timestamp)
	r.total++
	return model.Result{Outcome: model.Ignored}
}

func (r *recordingProcessor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// returned counts Process calls that have finished, whatever their result.
func (r *recordingProcessor) returned() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		proc := newRecordingProcessor()
		pool := worker.NewPool(4, q, proc)
		ctx := context.Background()
		convey.So(pool.Size(), convey.ShouldEqual, 4)
		convey.So(pool.Start(ctx), convey.ShouldBeNil)

		convey.Convey("When interleaved events for many subjects are enqueued and the pool shuts down", func() {
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 400; i++ {
				ev := model.IdentityEvent{SubjectID: fmt.Sprintf("s%d", i%10), Timestamp: base.Add(time.Duration(i) * time.Second)}
				convey.So(q.Enqueue(ctx, ev), convey.ShouldBeNil)
			}
			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			convey.So(pool.Shutdown(sctx), convey.ShouldBeNil)

			convey.Convey("Then every queued event is processed", func() {
				convey.So(proc.count(), convey.ShouldEqual, 400)
			})

			convey.Convey("And each subject's events keep their arrival order", func() {
				for _, ts := range proc.seen {
					for i := 1; i < len(ts); i++ {
						convey.So(ts[i].After(ts[i-1]), convey.ShouldBeTrue)
					}
					convey.So(ts, convey.ShouldHaveLength, 40)
				}
			})

			convey.Convey("And the queue refuses new events", func() {
				err := q.Enqueue(ctx, model.IdentityEvent{SubjectID: "late"})
				convey.So(errors.Is(err, queue.ErrClosed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When started twice", func() {
			err := pool.Start(ctx)
			convey.So(errors.Is(err, worker.ErrAlreadyStarted), convey.ShouldBeTrue)
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a processor that never finishes", t, func() {
		q := queue.NewInMemoryQueue()
		proc := newRecordingProcessor()
		proc.block = make(chan struct{})
		pool := worker.NewPool(1, q, proc)
		ctx := context.Background()
		convey.So(pool.Start(ctx), convey.ShouldBeNil)
		convey.So(q.Enqueue(ctx, model.IdentityEvent{SubjectID: "stuck"}), convey.ShouldBeNil)

		convey.Convey("When shutdown has a short deadline", func() {
			sctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(sctx)

			convey.Convey("Then it reports the timeout", func() {
				convey.So(errors.Is(err, worker.ErrShutdownTimeout), convey.ShouldBeTrue)
				convey.So(proc.count(), convey.ShouldEqual, 0)
			})

			convey.Convey("And the cancelled call has returned before shutdown does", func() {
				convey.So(proc.returned(), convey.ShouldEqual, 1)
			})
		})
	})

	convey.Convey("Given a pool that was never started", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, newRecordingProcessor())

		convey.Convey("Then it has one worker and shuts down cleanly", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 1)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
		})
	})
}
