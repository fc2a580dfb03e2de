// Package tracker debounces per-frame recognition into threshold crossings.
//
// A Tracker is the counter state of one recognition session. It is created
// when the session starts and dropped when it ends; nothing is persisted.
package tracker

import (
	"sync"
)

// DefaultThreshold is the number of sightings required per confirmation attempt.
const DefaultThreshold = 7

// Observation is the result of one Observe call.
type Observation struct {
	// Count is the post-increment count; equals the threshold on a crossing.
	Count int
	// JustCrossedThreshold is true exactly when Count reached the threshold.
	JustCrossedThreshold bool
}

// Tracker keeps a per-subject sighting counter for one session.
// Safe for concurrent use; updates for a subject are serialized.
type Tracker struct {
	mu        sync.Mutex
	counts    map[string]int
	threshold int
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		counts:    make(map[string]int),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Observe records one sighting of subjectID. When the count reaches the
// threshold the counter is reset to zero in the same call.
func (t *Tracker) Observe(subjectID string) Observation {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.counts[subjectID] + 1
	if n >= t.threshold {
		t.counts[subjectID] = 0
		return Observation{Count: n, JustCrossedThreshold: true}
	}
	t.counts[subjectID] = n
	return Observation{Count: n}
}

// Count returns the current counter for subjectID.
func (t *Tracker) Count(subjectID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[subjectID]
}

// Len returns the number of subjects seen this session.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}

// Threshold returns the configured confirmation threshold.
func (t *Tracker) Threshold() int { return t.threshold }

// Reset discards all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[string]int)
}
