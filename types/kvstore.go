package types

import "context"

// KVEntry is a single KV row as returned by Get.
type KVEntry struct {
	Key      string
	Value    []byte
	Revision uint64
}

// KVStore is the backing strongly-consistent key/value table the lease and
// cluster-member rows are stored in. It is the minimal surface the CAS
// protocol needs: conditional put on absence, conditional update on
// revision equality, unconditional put, full scan, and delete.
//
// github.com/nats-io/nats.go/jetstream.KeyValue does not satisfy this
// interface directly; production code wraps a real JetStream KV bucket in
// internal/kvutil.Store, tests use an in-memory fake, and neither side
// depends on the other.
type KVStore interface {
	// Get returns the current entry for key, or an error satisfying
	// errors.Is(err, ErrKeyNotFound) if absent.
	Get(ctx context.Context, key string) (KVEntry, error)

	// Create inserts key only if it does not already exist. Returns
	// ErrKeyExists if it does.
	Create(ctx context.Context, key string, value []byte) (uint64, error)

	// Update replaces key's value only if its current revision equals
	// expectedRevision. Returns ErrRevisionMismatch otherwise.
	Update(ctx context.Context, key string, value []byte, expectedRevision uint64) (uint64, error)

	// Put unconditionally writes key's value, creating it if absent.
	Put(ctx context.Context, key string, value []byte) (uint64, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every key currently in the store. Returns
	// ErrNoKeysFound (not a fatal error) when the store is empty.
	Keys(ctx context.Context) ([]string, error)
}
