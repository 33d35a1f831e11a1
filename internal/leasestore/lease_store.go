package leasestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/shardkeeper/internal/metrics"
	"github.com/arloliu/shardkeeper/types"
)

// Store implements types.LeaseStore over a types.KVStore.
//
// LeaseCounter doubles as the CAS token: every write carries the KV
// entry's own revision as the Update precondition, so a losing writer's
// Update fails even if it read a stale-but-matching LeaseCounter in the
// narrow window between Get and Update.
type Store struct {
	kv      types.KVStore
	metrics types.LeaseMetrics
}

var _ types.LeaseStore = (*Store)(nil)

type options struct {
	metrics types.LeaseMetrics
}

// Option configures a Store.
type Option func(*options)

// WithMetrics sets the metrics sink for lease takeovers and conflicts.
func WithMetrics(m types.LeaseMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// New wraps kv as a lease store. kv should be a bucket dedicated to lease
// rows: keys are bare shard ids and FetchAll decodes every key in the
// bucket as a lease.
func New(kv types.KVStore, opts ...Option) *Store {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}

	return &Store{kv: kv, metrics: o.metrics}
}

// FetchAll performs a full table scan, hiding any pagination the backing
// store needs.
func (s *Store) FetchAll(ctx context.Context) ([]types.Lease, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if types.IsNoKeysFoundError(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("leasestore: fetch all: %w", err)
	}

	leases := make([]types.Lease, 0, len(keys))
	for _, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, types.ErrKeyNotFound) {
				continue // deleted between Keys() and Get()
			}

			return nil, fmt.Errorf("leasestore: get %s: %w", key, err)
		}

		lease, err := decodeLease(key, entry.Value)
		if err != nil {
			return nil, err
		}
		leases = append(leases, lease)
	}

	return leases, nil
}

// ClaimUnheld conditionally inserts a fresh lease row.
func (s *Store) ClaimUnheld(ctx context.Context, shardID, owner string, leaseDuration int64) (types.Lease, error) {
	lease := types.Lease{
		ShardID:      shardID,
		LeaseCounter: 0,
		Owner:        owner,
		ExpiresAt:    time.Now().UnixMilli() + leaseDuration,
	}

	payload, err := json.Marshal(lease)
	if err != nil {
		return types.Lease{}, fmt.Errorf("leasestore: encode %s: %w", shardID, err)
	}

	_, err = s.kv.Create(ctx, shardID, payload)
	if err != nil {
		if errors.Is(err, types.ErrKeyExists) {
			s.metrics.RecordLeaseConflict(shardID, "claim")

			return types.Lease{}, types.ErrLeaseConflict
		}

		return types.Lease{}, fmt.Errorf("leasestore: claim %s: %w", shardID, err)
	}

	s.metrics.RecordLeaseTakeover(shardID, true)

	return lease, nil
}

// TakeOver conditionally updates a row whose LeaseCounter the caller
// believes is still expectedCounter.
func (s *Store) TakeOver(ctx context.Context, shardID string, expectedCounter int64, owner string, leaseDuration int64) (types.Lease, error) {
	lease, err := s.casWrite(ctx, "takeover", shardID, expectedCounter, func(next *types.Lease) {
		next.Owner = owner
		next.ExpiresAt = time.Now().UnixMilli() + leaseDuration
	})
	if err == nil {
		s.metrics.RecordLeaseTakeover(shardID, false)
	}

	return lease, err
}

// Renew extends a lease the caller already owns. The CAS precondition is
// identical to TakeOver; ownership is asserted by the caller's possession
// of the correct expectedCounter, not separately checked here.
func (s *Store) Renew(ctx context.Context, shardID string, expectedCounter int64, owner string, leaseDuration int64) (types.Lease, error) {
	return s.casWrite(ctx, "renew", shardID, expectedCounter, func(next *types.Lease) {
		next.Owner = owner
		next.ExpiresAt = time.Now().UnixMilli() + leaseDuration
	})
}

// MarkFinished closes a row out permanently under the same CAS
// precondition as Renew.
func (s *Store) MarkFinished(ctx context.Context, shardID string, expectedCounter int64, owner string) (types.Lease, error) {
	return s.casWrite(ctx, "markFinished", shardID, expectedCounter, func(next *types.Lease) {
		next.Owner = owner
		next.IsFinished = true
	})
}

// casWrite reads the current row, verifies LeaseCounter == expectedCounter,
// applies mutate to produce the next value with LeaseCounter incremented,
// and writes it back conditioned on the KV entry's own revision so a
// concurrent winner is still detected even if it leaves LeaseCounter
// looking unchanged to a stale reader. op labels which caller this is for
// RecordLeaseConflict ("takeover", "renew", or "markFinished").
func (s *Store) casWrite(ctx context.Context, op, shardID string, expectedCounter int64, mutate func(*types.Lease)) (types.Lease, error) {
	entry, err := s.kv.Get(ctx, shardID)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			s.metrics.RecordLeaseConflict(shardID, op)

			return types.Lease{}, types.ErrLeaseConflict
		}

		return types.Lease{}, fmt.Errorf("leasestore: get %s: %w", shardID, err)
	}

	current, err := decodeLease(shardID, entry.Value)
	if err != nil {
		return types.Lease{}, err
	}

	if current.LeaseCounter != expectedCounter {
		s.metrics.RecordLeaseConflict(shardID, op)

		return types.Lease{}, types.ErrLeaseConflict
	}

	next := current
	next.LeaseCounter = expectedCounter + 1
	mutate(&next)

	payload, err := json.Marshal(next)
	if err != nil {
		return types.Lease{}, fmt.Errorf("leasestore: encode %s: %w", shardID, err)
	}

	if _, err := s.kv.Update(ctx, shardID, payload, entry.Revision); err != nil {
		if errors.Is(err, types.ErrRevisionMismatch) {
			s.metrics.RecordLeaseConflict(shardID, op)

			return types.Lease{}, types.ErrLeaseConflict
		}

		return types.Lease{}, fmt.Errorf("leasestore: update %s: %w", shardID, err)
	}

	return next, nil
}

func decodeLease(shardID string, value []byte) (types.Lease, error) {
	var lease types.Lease
	if err := json.Unmarshal(value, &lease); err != nil {
		return types.Lease{}, fmt.Errorf("leasestore: decode %s: %w", shardID, err)
	}
	lease.ShardID = shardID

	return lease, nil
}
