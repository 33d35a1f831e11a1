package types

import "context"

// Hooks defines optional callbacks for coordinator lifecycle events.
//
// All hooks are optional; a nil field is replaced with a no-op. Hooks run
// synchronously on the goroutine that triggers them (the fetch tick, a
// worker's monitor goroutine, or the reset cascade), so a slow hook delays
// that goroutine. Hook errors are logged but never fail the operation that
// triggered them.
type Hooks struct {
	// OnShardAcquired is called after the Allocation Controller decides
	// to acquire a shard and has asked the supervisor to spawn a worker
	// for it.
	OnShardAcquired func(ctx context.Context, shardID string) error

	// OnShardShed is called after the Allocation Controller decides to
	// shed a shard and has asked the supervisor to stop its worker.
	OnShardShed func(ctx context.Context, shardID string) error

	// OnWorkerExit is called whenever a worker handle transitions to
	// EXITED, successful or not.
	OnWorkerExit func(ctx context.Context, shardID string, exitCode int, err error) error

	// OnError is called once with the terminal error when the
	// coordinator's reset cascade runs (e.g. after a bootstrap failure).
	OnError func(ctx context.Context, err error) error
}
