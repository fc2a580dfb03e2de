// Package memory is an in-process ledger used by tests and the memory driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/domain/model"
)

// Store keeps ledgers in a map guarded by a mutex.
type Store struct {
	mu   sync.RWMutex
	days map[model.DateKey][]model.AttendanceRecord
}

var _ ledger.Ledger = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{days: make(map[model.DateKey][]model.AttendanceRecord)}
}

// Records returns a copy of the date's records.
func (s *Store) Records(ctx context.Context, date model.DateKey) ([]model.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrReadFailed, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AttendanceRecord, len(s.days[date]))
	copy(out, s.days[date])
	return out, nil
}

// Append adds rec unless its subject is already recorded for the date.
func (s *Store) Append(ctx context.Context, rec model.AttendanceRecord) error {
	if err := ledger.Validate(rec); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrWriteFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.days[rec.Date] {
		if r.SubjectID == rec.SubjectID {
			return ledger.ErrDuplicate
		}
	}
	s.days[rec.Date] = append(s.days[rec.Date], rec)
	return nil
}

// Dates lists dates with at least one record.
func (s *Store) Dates(_ context.Context) ([]model.DateKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dates := make([]model.DateKey, 0, len(s.days))
	for d := range s.days {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
