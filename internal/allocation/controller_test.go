package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/shardkeeper/internal/supervisor"
	"github.com/arloliu/shardkeeper/types"
)

func nowMS() int64 {
	return time.Now().UnixMilli()
}

type fakeWorker struct {
	spawned  []string
	stopped  []string
	count    int
	handles  []*supervisor.Handle
	spawnErr error
}

func (f *fakeWorker) Spawn(_ context.Context, shardID string, _ *int64, _ types.WorkerOptions) (*supervisor.Handle, error) {
	if f.spawnErr != nil {
		return nil, f.spawnErr
	}
	f.spawned = append(f.spawned, shardID)
	f.count++

	return nil, nil
}

func (f *fakeWorker) Stop(_ context.Context, handle *supervisor.Handle) error {
	f.stopped = append(f.stopped, handle.ShardID)
	f.count--

	return nil
}

func (f *fakeWorker) Count() int { return f.count }

func (f *fakeWorker) Handles() []*supervisor.Handle { return f.handles }

type fakeShardSource struct {
	shards []string
	err    error
}

func (f *fakeShardSource) ListShards(_ context.Context, _ string) ([]string, error) {
	return f.shards, f.err
}

type fakeLeaseStore struct {
	leases []types.Lease
	err    error
}

func (f *fakeLeaseStore) FetchAll(_ context.Context) ([]types.Lease, error) {
	return f.leases, f.err
}

func (f *fakeLeaseStore) ClaimUnheld(_ context.Context, _ string, _ string, _ int64) (types.Lease, error) {
	panic("not used by the allocation controller")
}

func (f *fakeLeaseStore) TakeOver(_ context.Context, _ string, _ int64, _ string, _ int64) (types.Lease, error) {
	panic("not used by the allocation controller")
}

func (f *fakeLeaseStore) Renew(_ context.Context, _ string, _ int64, _ string, _ int64) (types.Lease, error) {
	panic("not used by the allocation controller")
}

func (f *fakeLeaseStore) MarkFinished(_ context.Context, _ string, _ int64, _ string) (types.Lease, error) {
	panic("not used by the allocation controller")
}

func TestController_Peers_ReturnsSnapshotOfLastUpdateNetwork(t *testing.T) {
	worker := &fakeWorker{count: 1}
	shards := &fakeShardSource{}
	leases := &fakeLeaseStore{}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	require.Empty(t, c.Peers())

	c.UpdateNetwork(context.Background(), map[string]int{"peer-a": 3, "peer-b": 1})
	require.Equal(t, map[string]int{"peer-a": 3, "peer-b": 1}, c.Peers())

	c.UpdateNetwork(context.Background(), map[string]int{"peer-c": 0})
	require.Equal(t, map[string]int{"peer-c": 0}, c.Peers())
}

func TestController_Acquire_NoPeers(t *testing.T) {
	worker := &fakeWorker{}
	shards := &fakeShardSource{shards: []string{"shard-1", "shard-2"}}
	leases := &fakeLeaseStore{}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	c.UpdateNetwork(context.Background(), nil)

	require.Equal(t, []string{"shard-1"}, worker.spawned)
}

func TestController_Acquire_WhenBelowMinPeerLoad(t *testing.T) {
	worker := &fakeWorker{count: 1}
	shards := &fakeShardSource{shards: []string{"shard-1", "shard-2"}}
	leases := &fakeLeaseStore{leases: []types.Lease{{ShardID: "shard-1", ExpiresAt: futureMS()}}}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	c.UpdateNetwork(context.Background(), map[string]int{"peer-a": 3})

	require.Equal(t, []string{"shard-2"}, worker.spawned)
}

func TestController_NoAction_WithinBand(t *testing.T) {
	// workerCount sits exactly at minPeerLoad+1: not low enough to
	// acquire, not high enough to shed.
	worker := &fakeWorker{count: 3}
	shards := &fakeShardSource{}
	leases := &fakeLeaseStore{}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	c.UpdateNetwork(context.Background(), map[string]int{"peer-a": 2})

	require.Empty(t, worker.spawned)
	require.Empty(t, worker.stopped)
}

func TestController_Shed_WhenAboveMinPeerLoadPlusOne(t *testing.T) {
	h1 := &supervisor.Handle{ShardID: "shard-old"}
	worker := &fakeWorker{count: 4, handles: []*supervisor.Handle{h1}}
	shards := &fakeShardSource{}
	leases := &fakeLeaseStore{}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	c.UpdateNetwork(context.Background(), map[string]int{"peer-a": 1})

	require.Equal(t, []string{"shard-old"}, worker.stopped)
}

func TestController_IgnoresUpdatesWhileResetting(t *testing.T) {
	worker := &fakeWorker{}
	shards := &fakeShardSource{shards: []string{"shard-1"}}
	leases := &fakeLeaseStore{}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	c.SetResetting(true)
	c.UpdateNetwork(context.Background(), nil)

	require.Empty(t, worker.spawned)
}

func TestController_FetchAvailableShard_PrefersFreshOverExpiredLease(t *testing.T) {
	worker := &fakeWorker{}
	shards := &fakeShardSource{shards: []string{"shard-1", "shard-2"}}
	leases := &fakeLeaseStore{leases: []types.Lease{
		{ShardID: "shard-1", ExpiresAt: pastMS()},
	}}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	shardID, counter, err := c.fetchAvailableShard(context.Background())
	require.NoError(t, err)
	require.Equal(t, "shard-2", shardID)
	require.Nil(t, counter)
}

func TestController_FetchAvailableShard_FallsBackToExpiredLease(t *testing.T) {
	worker := &fakeWorker{}
	shards := &fakeShardSource{shards: []string{"shard-1"}}
	leases := &fakeLeaseStore{leases: []types.Lease{
		{ShardID: "shard-1", LeaseCounter: 5, ExpiresAt: pastMS()},
	}}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	shardID, counter, err := c.fetchAvailableShard(context.Background())
	require.NoError(t, err)
	require.Equal(t, "shard-1", shardID)
	require.NotNil(t, counter)
	require.Equal(t, int64(5), *counter)
}

func TestController_FetchAvailableShard_SkipsFinishedShards(t *testing.T) {
	worker := &fakeWorker{}
	shards := &fakeShardSource{shards: []string{"shard-1"}}
	leases := &fakeLeaseStore{leases: []types.Lease{
		{ShardID: "shard-1", IsFinished: true, ExpiresAt: pastMS()},
	}}

	c := New(worker, shards, leases, "orders", types.WorkerOptions{})
	shardID, _, err := c.fetchAvailableShard(context.Background())
	require.NoError(t, err)
	require.Empty(t, shardID)
}

func futureMS() int64 {
	return nowMS() + 60000
}

func pastMS() int64 {
	return nowMS() - 60000
}
