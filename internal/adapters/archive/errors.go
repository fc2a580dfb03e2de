package archive

import "errors"

var (
	// ErrNoBucket is returned when no archive bucket is configured.
	ErrNoBucket = errors.New("archive bucket required")
	// ErrEmptyLedger is returned when the date has no records to archive.
	ErrEmptyLedger = errors.New("ledger has no records for date")
	// ErrUpload wraps failures talking to the object store.
	ErrUpload = errors.New("archive upload failed")
)
