package leasestore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/shardkeeper/types"
)

func TestStore_ClaimUnheld(t *testing.T) {
	t.Run("claims a fresh shard", func(t *testing.T) {
		store := New(newFakeKV())

		lease, err := store.ClaimUnheld(context.Background(), "s1", "instance-a", 30000)
		require.NoError(t, err)
		require.Equal(t, "s1", lease.ShardID)
		require.Equal(t, int64(0), lease.LeaseCounter)
		require.Equal(t, "instance-a", lease.Owner)
	})

	t.Run("conflicts on an already-held shard", func(t *testing.T) {
		store := New(newFakeKV())
		ctx := context.Background()

		_, err := store.ClaimUnheld(ctx, "s1", "instance-a", 30000)
		require.NoError(t, err)

		_, err = store.ClaimUnheld(ctx, "s1", "instance-b", 30000)
		require.ErrorIs(t, err, types.ErrLeaseConflict)
	})
}

func TestStore_TakeOver(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds when the counter matches and increments it", func(t *testing.T) {
		store := New(newFakeKV())
		claimed, err := store.ClaimUnheld(ctx, "s1", "instance-a", 30000)
		require.NoError(t, err)

		lease, err := store.TakeOver(ctx, "s1", claimed.LeaseCounter, "instance-b", 30000)
		require.NoError(t, err)
		require.Equal(t, int64(1), lease.LeaseCounter)
		require.Equal(t, "instance-b", lease.Owner)
	})

	t.Run("conflicts when the counter has moved", func(t *testing.T) {
		store := New(newFakeKV())
		claimed, err := store.ClaimUnheld(ctx, "s1", "instance-a", 30000)
		require.NoError(t, err)

		_, err = store.TakeOver(ctx, "s1", claimed.LeaseCounter, "instance-b", 30000)
		require.NoError(t, err)

		_, err = store.TakeOver(ctx, "s1", claimed.LeaseCounter, "instance-c", 30000)
		require.ErrorIs(t, err, types.ErrLeaseConflict)
	})

	t.Run("conflicts on an unclaimed shard", func(t *testing.T) {
		store := New(newFakeKV())

		_, err := store.TakeOver(ctx, "missing", 0, "instance-a", 30000)
		require.ErrorIs(t, err, types.ErrLeaseConflict)
	})
}

// TestStore_RaceSingleOwner is property #1 from the testable-properties
// list: across any sequence of successful TakeOver/ClaimUnheld calls
// against a simulated lease table, exactly one caller observes itself as
// the new owner for a given (shardID, leaseCounter).
func TestStore_RaceSingleOwner(t *testing.T) {
	store := New(newFakeKV())
	ctx := context.Background()

	_, err := store.ClaimUnheld(ctx, "s1", "seed", 30000)
	require.NoError(t, err)

	const racers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := store.TakeOver(ctx, "s1", 0, "racer", 30000)
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, winners, "exactly one racer should win the CAS")
}

// TestStore_CounterMonotonicity is property #2: LeaseCounter observed for a
// given shard across any history is strictly non-decreasing.
func TestStore_CounterMonotonicity(t *testing.T) {
	store := New(newFakeKV())
	ctx := context.Background()

	lease, err := store.ClaimUnheld(ctx, "s1", "instance-a", 30000)
	require.NoError(t, err)

	var last int64 = lease.LeaseCounter
	for i := 0; i < 5; i++ {
		lease, err = store.Renew(ctx, "s1", lease.LeaseCounter, "instance-a", 30000)
		require.NoError(t, err)
		require.GreaterOrEqual(t, lease.LeaseCounter, last)
		last = lease.LeaseCounter
	}
}

func TestStore_MarkFinished(t *testing.T) {
	store := New(newFakeKV())
	ctx := context.Background()

	lease, err := store.ClaimUnheld(ctx, "s1", "instance-a", 30000)
	require.NoError(t, err)

	lease, err = store.MarkFinished(ctx, "s1", lease.LeaseCounter, "instance-a")
	require.NoError(t, err)
	require.True(t, lease.IsFinished)

	all, err := store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].IsFinished)
}

func TestStore_FetchAll_Empty(t *testing.T) {
	store := New(newFakeKV())
	leases, err := store.FetchAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, leases)
}

type fakeLeaseMetrics struct {
	mu        sync.Mutex
	takeovers []bool
	conflicts []string
}

func (f *fakeLeaseMetrics) RecordLeaseTakeover(_ string, fresh bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.takeovers = append(f.takeovers, fresh)
}

func (f *fakeLeaseMetrics) RecordLeaseConflict(_ string, op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflicts = append(f.conflicts, op)
}

func TestStore_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	fm := &fakeLeaseMetrics{}
	store := New(newFakeKV(), WithMetrics(fm))

	lease, err := store.ClaimUnheld(ctx, "s1", "instance-a", 30000)
	require.NoError(t, err)
	require.Equal(t, []bool{true}, fm.takeovers)

	_, err = store.ClaimUnheld(ctx, "s1", "instance-b", 30000)
	require.ErrorIs(t, err, types.ErrLeaseConflict)
	require.Equal(t, []string{"claim"}, fm.conflicts)

	lease, err = store.TakeOver(ctx, "s1", lease.LeaseCounter, "instance-b", 30000)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, fm.takeovers)

	_, err = store.TakeOver(ctx, "s1", 0, "instance-c", 30000)
	require.ErrorIs(t, err, types.ErrLeaseConflict)
	require.Equal(t, []string{"claim", "takeover"}, fm.conflicts)

	lease, err = store.Renew(ctx, "s1", lease.LeaseCounter, "instance-b", 30000)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, fm.takeovers, "renew must not record a takeover")

	_, err = store.MarkFinished(ctx, "s1", lease.LeaseCounter, "instance-b")
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, fm.takeovers, "markFinished must not record a takeover")
}
