package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrWriteFailed   = errors.New("ledger write failed")
	ErrReadFailed    = errors.New("ledger read failed")
	ErrDuplicate     = errors.New("subject already recorded for date")
	ErrCorrupt       = errors.New("ledger corrupt")
	ErrUnknownDriver = errors.New("unknown ledger driver")
	ErrInvalidRecord = errors.New("invalid attendance record")
)
