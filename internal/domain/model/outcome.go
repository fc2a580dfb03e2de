package model

// Outcome is what processing one identity event produced.
type Outcome int

const (
	// Ignored means the subject has not reached the threshold this cycle.
	Ignored Outcome = iota
	// Confirmed means a new record was committed.
	Confirmed
	// AlreadyPresent means the subject already has a record for the day.
	AlreadyPresent
	// StorageError means the dedup check could not read the ledger.
	StorageError
	// WriteFailed means the ledger append did not commit.
	WriteFailed
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Confirmed:
		return "confirmed"
	case AlreadyPresent:
		return "already_present"
	case StorageError:
		return "storage_error"
	case WriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}

// Result carries the outcome of one Process call.
type Result struct {
	Outcome Outcome
	// Count is the tracker count after the observation (the threshold on a crossing).
	Count int
	// Record is set only for Confirmed.
	Record *AttendanceRecord
	// Err is set for StorageError and WriteFailed.
	Err error
}
