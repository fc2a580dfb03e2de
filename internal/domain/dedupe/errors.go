package dedupe

import "errors"

// ErrStorageUnavailable means the date's ledger could not be read, so the
// store cannot say whether a subject is already recorded.
var ErrStorageUnavailable = errors.New("attendance storage unavailable")
