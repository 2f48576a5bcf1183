package tool

import "errors"

var (
	// ErrToolNotFound is returned when name is not a recognized dispatch
	// target — distinct from whitelist.IsWhitelisted, which governs what a
	// plan or chat turn may even attempt.
	ErrToolNotFound = errors.New("tool: not found")

	// ErrMissingArgument is returned when a required argument key is
	// absent from the argument map.
	ErrMissingArgument = errors.New("tool: missing argument")

	// ErrGraphStoreUnavailable is returned by graph-query tools when no
	// graph store handle was configured or it could not be reached.
	ErrGraphStoreUnavailable = errors.New("tool: graph store unavailable")
)
