package memory

import "errors"

// ErrLinkTargetUnresolved is a graph-transaction-local failure: a link's
// target entity could not be resolved by name/path. It never reaches the
// caller of RecordExecution directly — it only ever demotes
// RecordResult.GraphEntityAvailable to false, the dual-write gap that
// evidence queries must surface as data_source = "fallback".
var ErrLinkTargetUnresolved = errors.New("memory: link target unresolved")
