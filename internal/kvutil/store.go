package kvutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/shardkeeper/types"
)

// Store adapts a jetstream.KeyValue bucket to types.KVStore, translating
// NATS-specific sentinel errors into the package-neutral ones the lease and
// cluster-member protocols classify against.
type Store struct {
	kv jetstream.KeyValue
}

var _ types.KVStore = (*Store)(nil)

// NewStore wraps an already-opened JetStream KV bucket.
func NewStore(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Get returns the current entry for key.
func (s *Store) Get(ctx context.Context, key string) (types.KVEntry, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return types.KVEntry{}, types.ErrKeyNotFound
		}

		return types.KVEntry{}, fmt.Errorf("kvutil: get %s: %w", key, err)
	}

	return types.KVEntry{Key: key, Value: entry.Value(), Revision: entry.Revision()}, nil
}

// Create inserts key only if absent.
func (s *Store) Create(ctx context.Context, key string, value []byte) (uint64, error) {
	rev, err := s.kv.Create(ctx, key, value)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return 0, types.ErrKeyExists
		}

		return 0, fmt.Errorf("kvutil: create %s: %w", key, err)
	}

	return rev, nil
}

// Update replaces key's value only if its revision matches.
func (s *Store) Update(ctx context.Context, key string, value []byte, expectedRevision uint64) (uint64, error) {
	rev, err := s.kv.Update(ctx, key, value, expectedRevision)
	if err != nil {
		if isRevisionMismatch(err) {
			return 0, types.ErrRevisionMismatch
		}

		return 0, fmt.Errorf("kvutil: update %s: %w", key, err)
	}

	return rev, nil
}

// Put unconditionally writes key's value.
func (s *Store) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	rev, err := s.kv.Put(ctx, key, value)
	if err != nil {
		return 0, fmt.Errorf("kvutil: put %s: %w", key, err)
	}

	return rev, nil
}

// Delete removes key; deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kvutil: delete %s: %w", key, err)
	}

	return nil
}

// Keys lists every key currently in the bucket.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if types.IsNoKeysFoundError(err) {
			return nil, types.ErrNoKeysFound
		}

		return nil, fmt.Errorf("kvutil: keys: %w", err)
	}

	return keys, nil
}

// isRevisionMismatch checks for NATS's wrapped "wrong last sequence" error,
// which jetstream.KeyValue.Update returns without a dedicated sentinel.
func isRevisionMismatch(err error) bool {
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}

	return false
}
