package types

import "context"

// LeaseStore is the CAS protocol over the lease table (one row per shard).
//
// Conflict is a normal outcome of ClaimUnheld, TakeOver, Renew, and
// MarkFinished: it means another instance won the race. Implementations
// report it as ErrLeaseConflict so callers can distinguish it from a real
// failure with errors.Is, re-read, and re-decide. There is no retry loop
// inside the lease layer itself.
type LeaseStore interface {
	// FetchAll returns every lease row. Pagination, if the backing table
	// needs it, is hidden behind this call.
	FetchAll(ctx context.Context) ([]Lease, error)

	// ClaimUnheld inserts a fresh lease row for shardID. Fails with
	// ErrLeaseConflict if a row already exists.
	ClaimUnheld(ctx context.Context, shardID, owner string, leaseDuration int64) (Lease, error)

	// TakeOver claims an existing, presumably-expired lease. Requires
	// LeaseCounter == expectedCounter; on success writes
	// LeaseCounter := expectedCounter+1, Owner := owner,
	// ExpiresAt := now+leaseDuration. Fails with ErrLeaseConflict if the
	// counter has moved.
	TakeOver(ctx context.Context, shardID string, expectedCounter int64, owner string, leaseDuration int64) (Lease, error)

	// Renew extends a lease the caller already owns. Same counter
	// increment and precondition as TakeOver; callers that are not the
	// current owner should expect ErrLeaseConflict.
	Renew(ctx context.Context, shardID string, expectedCounter int64, owner string, leaseDuration int64) (Lease, error)

	// MarkFinished sets IsFinished under the same CAS precondition as
	// Renew. A finished row is never reclaimed afterward.
	MarkFinished(ctx context.Context, shardID string, expectedCounter int64, owner string) (Lease, error)
}
