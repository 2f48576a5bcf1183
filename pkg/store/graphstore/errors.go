package graphstore

import "errors"

var (
	// ErrCodegraphNotFound is returned by Open when codegraph.db does not
	// already exist at the configured root — the core never creates this
	// file, an external code-indexer process owns that.
	ErrCodegraphNotFound = errors.New("graphstore: codegraph.db not found")

	// ErrStoreUnreachable is returned when the store exists but cannot be
	// opened or queried.
	ErrStoreUnreachable = errors.New("graphstore: store unreachable")

	// ErrValidationRejected is returned for forbidden edge patterns or
	// unknown kind/edge_type values.
	ErrValidationRejected = errors.New("graphstore: validation rejected")

	// ErrNotFound is returned by lookups that find no matching row.
	ErrNotFound = errors.New("graphstore: not found")
)
