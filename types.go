package shardkeeper

import "github.com/arloliu/shardkeeper/types"

// Re-export types from the internal types package.
//
// This provides a stable public API for the library's core types and
// interfaces via type aliases, so callers get shardkeeper.Lease,
// shardkeeper.Logger, etc. without importing the types subpackage
// directly, while internal packages depend only on types and avoid an
// import cycle back to the root package.
type (
	Lease         = types.Lease
	ClusterMember = types.ClusterMember
	WorkerOptions = types.WorkerOptions
	KVEntry       = types.KVEntry
)

// Re-export interfaces from the internal types package for convenience.
type (
	ShardSource      = types.ShardSource
	LeaseStore       = types.LeaseStore
	ClusterStore     = types.ClusterStore
	KVStore          = types.KVStore
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export StartingIteratorType constants from the internal types package.
const (
	IteratorLatest              = types.IteratorLatest
	IteratorTrimHorizon         = types.IteratorTrimHorizon
	IteratorAtSequenceNumber    = types.IteratorAtSequenceNumber
	IteratorAfterSequenceNumber = types.IteratorAfterSequenceNumber
)
