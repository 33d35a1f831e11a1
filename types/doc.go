// Package types provides core type definitions and interfaces for the shardkeeper library.
//
// This package contains shared types used across multiple internal packages. Keeping
// them separate from the root shardkeeper package avoids import cycles between it and
// its internal implementations.
//
// Key types:
//   - Lease: per-shard ownership row, CAS'd on leaseCounter
//   - ClusterMember: per-instance liveness row
//   - KVStore: the backing conditional-put/scan/update table abstraction
//   - ShardSource: shard enumeration for a stream
//   - Logger / MetricsCollector: ambient instrumentation interfaces
package types
