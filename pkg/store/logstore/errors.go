package logstore

import "errors"

var (
	// ErrValidationRejected is returned when a DB-level trigger rejects an
	// insert (whitelist violation, bad timestamp window, invalid JSON).
	ErrValidationRejected = errors.New("logstore: validation rejected")

	// ErrStoreUnreachable is returned when the underlying connection cannot
	// be used at all (open failure, ping failure).
	ErrStoreUnreachable = errors.New("logstore: store unreachable")

	// ErrNotFound is returned by lookups that find no matching row.
	ErrNotFound = errors.New("logstore: not found")
)
