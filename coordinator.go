package shardkeeper

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nuid"

	"github.com/arloliu/shardkeeper/internal/allocation"
	"github.com/arloliu/shardkeeper/internal/clusterstore"
	"github.com/arloliu/shardkeeper/internal/healthserver"
	"github.com/arloliu/shardkeeper/internal/hooks"
	"github.com/arloliu/shardkeeper/internal/kvutil"
	"github.com/arloliu/shardkeeper/internal/leasestore"
	"github.com/arloliu/shardkeeper/internal/logging"
	"github.com/arloliu/shardkeeper/internal/membership"
	"github.com/arloliu/shardkeeper/internal/metrics"
	"github.com/arloliu/shardkeeper/internal/shardsource"
	"github.com/arloliu/shardkeeper/internal/supervisor"
	"github.com/arloliu/shardkeeper/types"
)

// Coordinator is a single running instance of the shard-consumer
// coordinator. It ensures the backing KV buckets exist,
// then wires the Membership Loop to the Allocation Controller so that
// every membership fetch tick drives one acquire/shed decision, which in
// turn spawns or stops a worker process via the Worker Supervisor.
//
// Thread safety: Start and Stop are safe for concurrent use; both take
// the same internal lock. The dispatch path inside the Membership Loop
// and Allocation Controller serializes itself and needs no
// additional locking here.
type Coordinator struct {
	cfg    Config
	conn   *nats.Conn
	selfID string

	logger  types.Logger
	metrics types.MetricsCollector
	hooks   types.Hooks

	shardSource types.ShardSource
	workerOpts  types.WorkerOptions
	supervisor  *supervisor.Supervisor

	leaseStore   types.LeaseStore
	clusterStore types.ClusterStore
	controller   *allocation.Controller
	membership   *membership.Loop
	health       *healthserver.Server

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc

	resetOnce sync.Once
	resetErr  error
}

// New creates a Coordinator. conn must already be connected; New does not
// take ownership of it and never closes it.
func New(conn *nats.Conn, cfg Config, opts ...Option) (*Coordinator, error) {
	if conn == nil {
		return nil, ErrNATSConnectionRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &coordinatorOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg.ValidateWithWarnings(logger)

	metricsCollector := o.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	h := o.hooks
	nop := hooks.NewNop()
	if h.OnShardAcquired == nil {
		h.OnShardAcquired = nop.OnShardAcquired
	}
	if h.OnShardShed == nil {
		h.OnShardShed = nop.OnShardShed
	}
	if h.OnWorkerExit == nil {
		h.OnWorkerExit = nop.OnWorkerExit
	}
	if h.OnError == nil {
		h.OnError = nop.OnError
	}

	selfID := o.selfID
	if selfID == "" {
		selfID = cfg.SelfID
	}
	if selfID == "" {
		selfID = nuid.Next()
	}

	var source types.ShardSource
	if o.shardSource != nil {
		source = o.shardSource
	} else {
		js, err := jetstream.New(conn)
		if err != nil {
			return nil, fmt.Errorf("shardkeeper: create jetstream context: %w", err)
		}
		source = shardsource.NewStream(js)
	}

	sup := supervisor.New(cfg.WorkerCommand,
		supervisor.WithGraceTimeout(cfg.GraceTimeout),
		supervisor.WithLogger(logger),
		supervisor.WithMetrics(metricsCollector),
		supervisor.WithHooks(h),
	)

	c := &Coordinator{
		cfg:         cfg,
		conn:        conn,
		selfID:      selfID,
		logger:      logger,
		metrics:     metricsCollector,
		hooks:       h,
		shardSource: source,
		workerOpts: types.WorkerOptions{
			StreamName:          cfg.StreamName,
			TableName:           cfg.KVBuckets.LeaseBucket,
			OwnerID:             selfID,
			LeaseDurationMillis: cfg.LeaseDuration.Milliseconds(),
		},
		supervisor: sup,
	}

	return c, nil
}

// Start ensures the backing KV buckets exist, wires the
// lease and cluster stores, then starts the Allocation Controller, the
// Membership Loop, and, optionally, the HTTP health server.
//
// Failure to create or reach the backing table is fatal: Start
// calls killAllConsumers and returns an error wrapping ErrBootstrapFailed.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()

		return ErrAlreadyStarted
	}

	bootstrapCtx, cancelBootstrap := context.WithTimeout(ctx, c.cfg.BootstrapTimeout)
	defer cancelBootstrap()

	leaseStore, clusterStore, err := c.ensureBuckets(bootstrapCtx)
	if err != nil {
		c.mu.Unlock()
		_ = c.killAllConsumers(context.Background(), fmt.Errorf("%w: %w", ErrBootstrapFailed, err))

		return fmt.Errorf("%w: %w", ErrBootstrapFailed, err)
	}

	c.leaseStore = leaseStore
	c.clusterStore = clusterStore

	c.controller = allocation.New(c.supervisor, c.shardSource, c.leaseStore, c.cfg.StreamName, c.workerOpts,
		allocation.WithLogger(c.logger),
		allocation.WithMetrics(c.metrics),
		allocation.WithHooks(c.hooks),
	)

	c.membership = membership.New(c.clusterStore, c.selfID, c.cfg.MemberTTL(), c.supervisor, c.controller,
		membership.WithReportPeriod(c.cfg.ReportPeriod),
		membership.WithFetchPeriod(c.cfg.FetchPeriod),
		membership.WithGCInterval(c.cfg.GCInterval),
		membership.WithLogger(c.logger),
		membership.WithMetrics(c.metrics),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.membership.Start(runCtx)

	if c.cfg.HealthAddr != "" {
		health := healthserver.New(c.supervisor, healthserver.WithLogger(c.logger), healthserver.WithPeers(c.controller))
		if err := health.Start(c.cfg.HealthAddr); err != nil {
			c.membership.Stop()
			cancel()
			c.mu.Unlock()

			return fmt.Errorf("%w: start health server: %w", ErrBootstrapFailed, err)
		}
		c.health = health
	}

	c.started = true
	c.mu.Unlock()

	c.logger.Info("coordinator started", "self_id", c.selfID, "stream_name", c.cfg.StreamName)

	return nil
}

// Stop stops the Membership Loop, the health server if running, and
// every live worker, in that order.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()

		return ErrNotStarted
	}
	c.started = false
	c.mu.Unlock()

	c.membership.Stop()
	c.cancel()

	var stopErr error
	if c.health != nil {
		if err := c.health.Stop(ctx); err != nil {
			stopErr = fmt.Errorf("stop health server: %w", err)
		}
	}

	if err := c.supervisor.StopAll(ctx); err != nil && stopErr == nil {
		stopErr = fmt.Errorf("stop workers: %w", err)
	}

	c.logger.Info("coordinator stopped", "self_id", c.selfID)

	return stopErr
}

// SelfID returns this instance's member id.
func (c *Coordinator) SelfID() string {
	return c.selfID
}

// WorkerCount returns the number of workers this instance currently runs.
func (c *Coordinator) WorkerCount() int {
	return c.supervisor.Count()
}

// killAllConsumers is the one-shot reset path: latch the Allocation
// Controller so no new worker is spawned, stop every live worker, and
// surface the terminal error exactly once via the OnError hook rather
// than crashing the process. Safe to call concurrently with in-flight
// ticks.
func (c *Coordinator) killAllConsumers(ctx context.Context, cause error) error {
	c.resetOnce.Do(func() {
		if c.controller != nil {
			c.controller.SetResetting(true)
		}
		c.logger.Error("reset cascade triggered, stopping all workers", "cause", cause)

		stopErr := c.supervisor.StopAll(ctx)

		c.resetErr = cause
		if stopErr != nil {
			c.resetErr = fmt.Errorf("%w (stopAll also failed: %w)", cause, stopErr)
		}

		if err := c.hooks.OnError(ctx, c.resetErr); err != nil {
			c.logger.Warn("OnError hook failed during reset cascade", "error", err)
		}
	})

	return c.resetErr
}

// ensureBuckets probes the two backing KV buckets, creating each with
// retry if absent, and wraps them as the Lease and Cluster
// stores.
func (c *Coordinator) ensureBuckets(ctx context.Context) (types.LeaseStore, types.ClusterStore, error) {
	js, err := jetstream.New(c.conn)
	if err != nil {
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}

	const maxRetries = 5

	leaseKV, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:  c.cfg.KVBuckets.LeaseBucket,
		History: 1,
	}, maxRetries, c.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("ensure lease bucket %q: %w", c.cfg.KVBuckets.LeaseBucket, err)
	}

	clusterKV, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:  c.cfg.KVBuckets.ClusterBucket,
		History: 1,
	}, maxRetries, c.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("ensure cluster bucket %q: %w", c.cfg.KVBuckets.ClusterBucket, err)
	}

	return leasestore.New(kvutil.NewStore(leaseKV), leasestore.WithMetrics(c.metrics)), clusterstore.New(kvutil.NewStore(clusterKV)), nil
}
