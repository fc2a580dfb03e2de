// Package ledger defines the durable daily attendance ledger contract.
//
// A ledger holds one ordered, append-only list of records per calendar
// date. No two records of a date share a subject id; backends enforce this
// on the write path so concurrent writers cannot produce duplicates.
package ledger

import (
	"context"

	"github.com/okian/rollcall/internal/domain/model"
)

// Reader loads the records of one date.
type Reader interface {
	// Records returns the date's records in append order. A date with no
	// ledger yet returns an empty slice and no error.
	Records(ctx context.Context, date model.DateKey) ([]model.AttendanceRecord, error)
}

// Writer appends confirmed records.
type Writer interface {
	// Append durably adds rec to the ledger of rec.Date, creating it on
	// first write. Returns ErrDuplicate if the subject is already recorded
	// for that date and an error wrapping ErrWriteFailed if the record was
	// not committed.
	Append(ctx context.Context, rec model.AttendanceRecord) error
}

// Ledger is the full storage surface used by the service.
type Ledger interface {
	Reader
	Writer
	// Dates lists the dates that have a ledger, ascending.
	Dates(ctx context.Context) ([]model.DateKey, error)
	Close() error
}
