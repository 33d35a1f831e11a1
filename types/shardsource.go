package types

import "context"

// ShardSource lists the shards of one stream. Out of scope per the stream
// API boundary: shard enumeration and record fetch belong to the stream
// client; this is a thin passthrough the Allocation Controller reads from.
type ShardSource interface {
	// ListShards returns every shard id belonging to streamName. Order is
	// stream-provided; the allocation controller relies on no specific
	// ordering beyond "stable enough within one tick".
	//
	// Errors propagate unchanged; the caller treats any error as "skip
	// this tick", not as a fatal condition.
	ListShards(ctx context.Context, streamName string) ([]string, error)
}
