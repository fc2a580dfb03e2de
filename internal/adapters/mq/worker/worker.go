// Package worker runs session workers that feed queued identity events
// through the attendance engine.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/adapters/mq/queue"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

const defaultInboxSize = 64

// Event is what workers read off the queue.
type Event = queue.Event

// Processor handles one event. Implementations must be safe for
// concurrent use by several workers.
type Processor interface {
	Process(ctx context.Context, ev model.IdentityEvent) model.Result
}

// Queue defines how the pool receives events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// InMemoryWorker processes the events routed to its inbox in order.
type InMemoryWorker struct {
	inbox  chan Event
	proc   Processor
	name   string
	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from inbox.
func NewInMemoryWorker(inbox chan Event, proc Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		inbox:  inbox,
		proc:   proc,
		name:   "worker",
		done:   make(chan struct{}),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes events until the inbox is closed or ctx is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.inbox:
			if !ok {
				return
			}
			w.process(ctx, ev)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, ev Event) { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	res := w.proc.Process(ctx, ev)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	if res.Err != nil {
		w.logger.Debug(ctx, "event not recorded",
			logger.String("subject_id", ev.SubjectID),
			logger.String("outcome", res.Outcome.String()),
			logger.Error(res.Err))
	}
}

// Pool dispatches queued events to a fixed set of workers. All events of
// one subject go to the same worker so they are processed in arrival order.
type Pool struct {
	workers   []*InMemoryWorker
	inboxes   []chan Event
	queue     Queue
	proc      Processor
	inboxSize int

	mu         sync.Mutex
	started    bool
	cancel     context.CancelFunc
	dispatched chan struct{}

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers; counts below 1 mean one.
func NewPool(workerCount int, q Queue, proc Processor, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		queue:      q,
		proc:       proc,
		inboxSize:  defaultInboxSize,
		dispatched: make(chan struct{}),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("worker-pool")

	p.workers = make([]*InMemoryWorker, workerCount)
	p.inboxes = make([]chan Event, workerCount)
	for i := range p.workers {
		p.inboxes[i] = make(chan Event, p.inboxSize)
		p.workers[i] = NewInMemoryWorker(p.inboxes[i], proc,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// route picks the worker for a subject.
func (p *Pool) route(subjectID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return int(h.Sum32() % uint32(len(p.inboxes))) //nolint:gosec // worker count is small and positive
}

// Start launches the dispatcher and workers. They run until the queue is
// closed and drained, or ctx is cancelled.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)

	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.dispatch(ctx)
	return nil
}

func (p *Pool) dispatch(ctx context.Context) {
	defer close(p.dispatched)
	defer func() {
		for _, in := range p.inboxes {
			close(in)
		}
	}()
	for ev := range p.queue.Dequeue(ctx) {
		select {
		case p.inboxes[p.route(ev.SubjectID)] <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown closes the queue (when it can be closed) and waits for every
// queued event to be processed. If ctx expires first, the workers are
// cancelled and ErrShutdownTimeout is returned once every in-flight
// Process call has returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.mu.Lock()
	started, cancel := p.started, p.cancel
	p.mu.Unlock()
	if !started {
		return nil
	}
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			cancel()
			for _, w := range p.workers[i:] {
				<-w.Done()
			}
			<-p.dispatched
			return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
		}
	}
	<-p.dispatched
	return nil
}
