// Package datelock serializes work per calendar date.
package datelock

import (
	"sync"

	"github.com/okian/rollcall/internal/domain/model"
)

type entry struct {
	sync.Mutex
	refs int
}

// Locks holds one mutex per date. Idle locks for dates older than the day
// before the newest date are dropped, so a long-running process keeps only
// a couple of entries.
type Locks struct {
	mu    sync.Mutex
	locks map[model.DateKey]*entry
}

// New returns an empty set of date locks.
func New() *Locks {
	return &Locks{locks: make(map[model.DateKey]*entry)}
}

// Lock blocks until date's lock is held and returns the func releasing it.
func (l *Locks) Lock(date model.DateKey) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[date]
	if !ok {
		l.prune(date)
		e = &entry{}
		l.locks[date] = e
	}
	e.refs++
	l.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		l.mu.Lock()
		e.refs--
		l.mu.Unlock()
	}
}

// prune drops unreferenced locks for dates before the day preceding date.
// Caller holds l.mu.
func (l *Locks) prune(date model.DateKey) {
	if !date.Valid() {
		return
	}
	cutoff := date.Prev()
	for d, e := range l.locks {
		if d < cutoff && e.refs == 0 {
			delete(l.locks, d)
		}
	}
}

// Len reports how many dates currently have a lock.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
