// Package dedupe answers "is this subject already recorded today?" from a
// per-date cache of ledger contents.
package dedupe

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/metrics"
)

// day is the cached subject set of one date. Days form a list ordered by
// load time, most recent at head.
type day struct {
	date     model.DateKey
	subjects map[string]struct{}
	next     *day
}

// Store caches, per date, the set of subjects present in the ledger.
//
// The cache is only refreshed by this process (MarkConfirmed after its own
// writes). Writes from other processes are caught by the ledger writer,
// which refuses duplicates on the write path.
type Store struct {
	reader  ledger.Reader
	maxDays int

	mu   sync.Mutex
	days map[model.DateKey]*day
	head *day

	loads singleflight.Group
}

// New returns a Store that loads dates through reader.
func New(reader ledger.Reader, opts ...Option) *Store {
	s := &Store{
		reader:  reader,
		maxDays: DefaultMaxDays,
		days:    make(map[model.DateKey]*day),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AlreadyConfirmed reports whether subjectID has a record for date. An
// uncached date is loaded from the ledger first; concurrent loads of one
// date share a single read. A failed read returns an error wrapping
// ErrStorageUnavailable and leaves the cache untouched.
func (s *Store) AlreadyConfirmed(ctx context.Context, date model.DateKey, subjectID string) (bool, error) {
	s.mu.Lock()
	if d, ok := s.days[date]; ok {
		_, present := d.subjects[subjectID]
		s.mu.Unlock()
		metrics.RecordDedupeCacheHit()
		return present, nil
	}
	s.mu.Unlock()
	metrics.RecordDedupeCacheMiss()

	v, err, _ := s.loads.Do(string(date), func() (any, error) {
		recs, err := s.reader.Records(ctx, date)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(recs))
		for _, r := range recs {
			set[r.SubjectID] = struct{}{}
		}
		s.store(date, set)
		return set, nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: load %s: %w", ErrStorageUnavailable, date, err)
	}
	// the loaded set is shared between waiters and never mutated
	_, present := v.(map[string]struct{})[subjectID]
	return present, nil
}

// store caches a copy of set.
func (s *Store) store(date model.DateKey, set map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.days[date]; ok {
		return
	}
	own := make(map[string]struct{}, len(set))
	for id := range set {
		own[id] = struct{}{}
	}
	if len(s.days) >= s.maxDays {
		s.evictOldest()
	}
	d := &day{date: date, subjects: own, next: s.head}
	s.head = d
	s.days[date] = d
	metrics.UpdateDedupeCachedDays(len(s.days))
}

// evictOldest drops the tail of the load-order list. Caller holds s.mu.
func (s *Store) evictOldest() {
	if s.head == nil {
		return
	}
	var prev *day
	cur := s.head
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	if prev == nil {
		s.head = nil
	} else {
		prev.next = nil
	}
	delete(s.days, cur.date)
}

// MarkConfirmed records that subjectID was just written for date. Dates
// not in the cache are left alone; the next check loads them in full.
func (s *Store) MarkConfirmed(date model.DateKey, subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.days[date]; ok {
		d.subjects[subjectID] = struct{}{}
	}
}

// CachedDays returns how many dates are cached.
func (s *Store) CachedDays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.days)
}

// Cached reports whether date is cached.
func (s *Store) Cached(date model.DateKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.days[date]
	return ok
}
