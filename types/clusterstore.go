package types

import "context"

// ClusterStore is the per-instance liveness row store (one row per
// coordinator instance).
type ClusterStore interface {
	// Report is an unconditional upsert of (activeConsumers, expiresAt).
	Report(ctx context.Context, selfID string, activeConsumers int, memberTTL int64) error

	// FetchAll scans every member row, including self; the caller
	// filters self out.
	FetchAll(ctx context.Context) ([]ClusterMember, error)

	// GarbageCollect deletes rows whose ExpiresAt has passed and returns
	// the number of rows removed. The clusterstore implementation issues
	// one Delete per expired row; deletes are not batched.
	GarbageCollect(ctx context.Context) (int, error)
}
