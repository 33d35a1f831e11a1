package clusterstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/shardkeeper/types"
)

// Store implements types.ClusterStore over a types.KVStore.
type Store struct {
	kv types.KVStore
}

var _ types.ClusterStore = (*Store)(nil)

// New wraps kv as a cluster-member store.
func New(kv types.KVStore) *Store {
	return &Store{kv: kv}
}

// Report is an unconditional upsert of selfID's liveness row.
func (s *Store) Report(ctx context.Context, selfID string, activeConsumers int, memberTTL int64) error {
	member := types.ClusterMember{
		ID:              selfID,
		ActiveConsumers: activeConsumers,
		ExpiresAt:       time.Now().UnixMilli() + memberTTL,
	}

	payload, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("clusterstore: encode %s: %w", selfID, err)
	}

	if _, err := s.kv.Put(ctx, selfID, payload); err != nil {
		return fmt.Errorf("clusterstore: report %s: %w", selfID, err)
	}

	return nil
}

// FetchAll scans every member row, including self.
func (s *Store) FetchAll(ctx context.Context) ([]types.ClusterMember, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if types.IsNoKeysFoundError(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("clusterstore: fetch all: %w", err)
	}

	members := make([]types.ClusterMember, 0, len(keys))
	for _, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, types.ErrKeyNotFound) {
				continue
			}

			return nil, fmt.Errorf("clusterstore: get %s: %w", key, err)
		}

		var member types.ClusterMember
		if err := json.Unmarshal(entry.Value, &member); err != nil {
			return nil, fmt.Errorf("clusterstore: decode %s: %w", key, err)
		}
		member.ID = key
		members = append(members, member)
	}

	return members, nil
}

// GarbageCollect deletes every row whose ExpiresAt has passed and returns
// how many were removed.
func (s *Store) GarbageCollect(ctx context.Context) (int, error) {
	members, err := s.FetchAll(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UnixMilli()
	removed := 0
	for _, member := range members {
		if !member.Expired(now) {
			continue
		}
		if err := s.kv.Delete(ctx, member.ID); err != nil {
			return removed, fmt.Errorf("clusterstore: delete %s: %w", member.ID, err)
		}
		removed++
	}

	return removed, nil
}
