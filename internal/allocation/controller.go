package allocation

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/shardkeeper/internal/hooks"
	"github.com/arloliu/shardkeeper/internal/logging"
	"github.com/arloliu/shardkeeper/internal/metrics"
	"github.com/arloliu/shardkeeper/internal/supervisor"
	"github.com/arloliu/shardkeeper/types"
)

// Worker is the subset of supervisor.Supervisor the controller needs.
// Kept narrow so tests can substitute a fake.
type Worker interface {
	Spawn(ctx context.Context, shardID string, leaseCounter *int64, worker types.WorkerOptions) (*supervisor.Handle, error)
	Stop(ctx context.Context, handle *supervisor.Handle) error
	Count() int
	Handles() []*supervisor.Handle
}

type options struct {
	logger  types.Logger
	metrics types.AllocationMetrics
	hooks   types.Hooks
}

// Option configures a Controller.
type Option func(*options)

// WithLogger sets the logger used for allocation decisions.
func WithLogger(l types.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink for allocation decisions.
func WithMetrics(m types.AllocationMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHooks sets the embedder hooks invoked on acquire/shed.
func WithHooks(h types.Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// Controller implements the Allocation Controller: it reacts to peer-load
// snapshots from the Membership Loop and decides whether this instance
// should acquire or shed a shard.
type Controller struct {
	worker       Worker
	shardSource  types.ShardSource
	leaseStore   types.LeaseStore
	streamName   string
	workerOpts   types.WorkerOptions
	opts         *options
	hasReset     atomic.Bool
	peers        *xsync.MapOf[string, int]
}

// New creates an allocation Controller. worker, shardSource and
// leaseStore are never nil; streamName is the stream whose shards this
// instance helps consume, and workerOpts is the template of options
// copied into each spawned worker's environment.
func New(worker Worker, shardSource types.ShardSource, leaseStore types.LeaseStore, streamName string, workerOpts types.WorkerOptions, opts ...Option) *Controller {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}
	if o.hooks.OnShardAcquired == nil {
		o.hooks = hooks.NewNop()
	}

	return &Controller{
		worker:      worker,
		shardSource: shardSource,
		leaseStore:  leaseStore,
		streamName:  streamName,
		workerOpts:  workerOpts,
		opts:        o,
		peers:       xsync.NewMapOf[string, int](),
	}
}

// SetResetting latches (or releases) the reset guard. Once latched, every
// subsequent UpdateNetwork call is ignored until released.
func (c *Controller) SetResetting(resetting bool) {
	c.hasReset.Store(resetting)
}

// Peers returns a snapshot of the most recently observed peer load table.
// Safe to call concurrently with UpdateNetwork: the health server's
// /peers handler reads this from an HTTP goroutine while the Membership
// Loop's fetch task writes a fresh snapshot on its own goroutine, which is
// exactly the access pattern peers is a lock-free map for.
func (c *Controller) Peers() map[string]int {
	snapshot := make(map[string]int)
	c.peers.Range(func(id string, count int) bool {
		snapshot[id] = count

		return true
	})

	return snapshot
}

// UpdateNetwork replaces the controller's peer view and runs one
// allocation decision. peers excludes self; its values are each peer's
// reported active-consumer count.
func (c *Controller) UpdateNetwork(ctx context.Context, peers map[string]int) {
	if c.hasReset.Load() {
		return
	}

	c.peers.Clear()
	for id, count := range peers {
		c.peers.Store(id, count)
	}

	minPeerLoad, hasPeers := c.minPeerLoad()
	workerCount := c.worker.Count()

	switch {
	case workerCount == 0 || !hasPeers || workerCount <= minPeerLoad:
		c.opts.metrics.RecordAllocationDecision("acquire")
		c.acquire(ctx)
	case workerCount > minPeerLoad+1:
		c.opts.metrics.RecordAllocationDecision("shed")
		c.shed(ctx)
	default:
		c.opts.metrics.RecordAllocationDecision("none")
	}

	if hasPeers {
		c.opts.metrics.RecordMinPeerLoad(minPeerLoad)
	}
}

func (c *Controller) minPeerLoad() (int, bool) {
	min := 0
	hasPeers := false
	c.peers.Range(func(_ string, count int) bool {
		if !hasPeers || count < min {
			min = count
		}
		hasPeers = true

		return true
	})

	return min, hasPeers
}

// acquire runs fetchAvailableShard and, if a shard is available, hands it
// to the supervisor.
func (c *Controller) acquire(ctx context.Context) {
	shardID, leaseCounter, err := c.fetchAvailableShard(ctx)
	if err != nil {
		c.opts.logger.Warn("fetchAvailableShard failed, skipping this tick", "error", err)

		return
	}
	if shardID == "" {
		return
	}

	worker := c.workerOpts
	worker.StreamName = c.streamName
	if _, err := c.worker.Spawn(ctx, shardID, leaseCounter, worker); err != nil {
		c.opts.logger.Error("failed to spawn worker for acquired shard", "shard_id", shardID, "error", err)

		return
	}

	if err := c.opts.hooks.OnShardAcquired(ctx, shardID); err != nil {
		c.opts.logger.Warn("OnShardAcquired hook failed", "shard_id", shardID, "error", err)
	}
}

// shed stops the oldest live worker, so which worker gets shed is
// deterministic given a fixed set of handles.
func (c *Controller) shed(ctx context.Context) {
	handles := c.worker.Handles()
	if len(handles) == 0 {
		return
	}

	sort.Slice(handles, func(i, j int) bool {
		return handles[i].Started().Before(handles[j].Started())
	})
	oldest := handles[0]

	if err := c.worker.Stop(ctx, oldest); err != nil {
		c.opts.logger.Error("failed to stop worker while shedding", "shard_id", oldest.ShardID, "error", err)

		return
	}

	if err := c.opts.hooks.OnShardShed(ctx, oldest.ShardID); err != nil {
		c.opts.logger.Warn("OnShardShed hook failed", "shard_id", oldest.ShardID, "error", err)
	}
}

// fetchAvailableShard selects the next shard to acquire: prefer a
// never-leased shard, falling back to the first expired,
// unfinished lease in stored order. Returns ("", nil, nil) when nothing
// is acquirable this tick.
func (c *Controller) fetchAvailableShard(ctx context.Context) (string, *int64, error) {
	type shardsResult struct {
		ids []string
		err error
	}
	type leasesResult struct {
		leases []types.Lease
		err    error
	}

	shardsCh := make(chan shardsResult, 1)
	leasesCh := make(chan leasesResult, 1)

	go func() {
		ids, err := c.shardSource.ListShards(ctx, c.streamName)
		shardsCh <- shardsResult{ids: ids, err: err}
	}()
	go func() {
		leases, err := c.leaseStore.FetchAll(ctx)
		leasesCh <- leasesResult{leases: leases, err: err}
	}()

	shards := <-shardsCh
	leases := <-leasesCh

	if shards.err != nil {
		return "", nil, fmt.Errorf("allocation: list shards: %w", shards.err)
	}
	if leases.err != nil {
		return "", nil, fmt.Errorf("allocation: fetch leases: %w", leases.err)
	}

	leased := make(map[string]struct{}, len(leases.leases))
	for _, lease := range leases.leases {
		if !lease.IsFinished {
			leased[lease.ShardID] = struct{}{}
		}
	}

	finished := make(map[string]struct{})
	for _, lease := range leases.leases {
		if lease.IsFinished {
			finished[lease.ShardID] = struct{}{}
		}
	}

	for _, shardID := range shards.ids {
		if _, done := finished[shardID]; done {
			continue
		}
		if _, taken := leased[shardID]; taken {
			continue
		}

		return shardID, nil, nil
	}

	now := time.Now().UnixMilli()
	for _, lease := range leases.leases {
		if lease.IsFinished {
			continue
		}
		if lease.ExpiresAt < now {
			counter := lease.LeaseCounter

			return lease.ShardID, &counter, nil
		}
	}

	return "", nil, nil
}
