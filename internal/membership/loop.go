package membership

import (
	"context"
	"sync"
	"time"

	"github.com/arloliu/shardkeeper/internal/logging"
	"github.com/arloliu/shardkeeper/internal/metrics"
	"github.com/arloliu/shardkeeper/types"
)

// DefaultReportPeriod is how often this instance refreshes its own
// liveness row.
const DefaultReportPeriod = 1 * time.Second

// DefaultFetchPeriod is how often this instance rebuilds its peer view.
const DefaultFetchPeriod = 5 * time.Second

// DefaultGCInterval is the minimum spacing between peer garbage
// collection sweeps, independent of the fetch task's own cadence.
const DefaultGCInterval = 1 * time.Minute

// WorkerCounter reports how many workers this instance currently runs.
type WorkerCounter interface {
	Count() int
}

// NetworkUpdater receives the peer view built by the fetch task.
type NetworkUpdater interface {
	UpdateNetwork(ctx context.Context, peers map[string]int)
}

type options struct {
	reportPeriod time.Duration
	fetchPeriod  time.Duration
	gcInterval   time.Duration
	logger       types.Logger
	metrics      types.ClusterMetrics
}

// Option configures a Loop.
type Option func(*options)

// WithReportPeriod overrides the report task's tick interval.
func WithReportPeriod(d time.Duration) Option {
	return func(o *options) { o.reportPeriod = d }
}

// WithFetchPeriod overrides the fetch task's tick interval.
func WithFetchPeriod(d time.Duration) Option {
	return func(o *options) { o.fetchPeriod = d }
}

// WithGCInterval overrides the minimum spacing between GC sweeps.
func WithGCInterval(d time.Duration) Option {
	return func(o *options) { o.gcInterval = d }
}

// WithLogger sets the logger used for membership task errors.
func WithLogger(l types.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink for membership task outcomes.
func WithMetrics(m types.ClusterMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// Loop runs the report and fetch tasks. Both survive individual errors;
// neither ever terminates the process on its own.
type Loop struct {
	store    types.ClusterStore
	selfID   string
	memberTTL int64
	workers  WorkerCounter
	network  NetworkUpdater
	opts     *options

	mu     sync.Mutex
	lastGC time.Time

	stopCh chan struct{}
	doneWg sync.WaitGroup
}

// New creates a membership Loop. memberTTLMillis is how long this
// instance's liveness row stays valid after a report before a peer
// considers it expired.
func New(store types.ClusterStore, selfID string, memberTTLMillis int64, workers WorkerCounter, network NetworkUpdater, opts ...Option) *Loop {
	o := &options{
		reportPeriod: DefaultReportPeriod,
		fetchPeriod:  DefaultFetchPeriod,
		gcInterval:   DefaultGCInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}

	return &Loop{
		store:     store,
		selfID:    selfID,
		memberTTL: memberTTLMillis,
		workers:   workers,
		network:   network,
		opts:      o,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the report and fetch tasks in background goroutines.
func (l *Loop) Start(ctx context.Context) {
	l.doneWg.Add(2)
	go l.runReportTask(ctx)
	go l.runFetchTask(ctx)
}

// Stop signals both tasks to exit and waits for them to return.
func (l *Loop) Stop() {
	close(l.stopCh)
	l.doneWg.Wait()
}

func (l *Loop) runReportTask(ctx context.Context) {
	defer l.doneWg.Done()

	ticker := time.NewTicker(l.opts.reportPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.report(ctx)
		}
	}
}

func (l *Loop) report(ctx context.Context) {
	err := l.store.Report(ctx, l.selfID, l.workers.Count(), l.memberTTL)
	l.opts.metrics.RecordReport(err == nil)
	if err != nil {
		l.opts.logger.Warn("membership report failed", "error", err)
	}
}

func (l *Loop) runFetchTask(ctx context.Context) {
	defer l.doneWg.Done()

	ticker := time.NewTicker(l.opts.fetchPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.fetch(ctx)
			l.maybeGarbageCollect(ctx)
		}
	}
}

func (l *Loop) fetch(ctx context.Context) {
	members, err := l.store.FetchAll(ctx)
	if err != nil {
		l.opts.metrics.RecordFetch(false, 0)
		l.opts.logger.Warn("membership fetch failed", "error", err)

		return
	}

	peers := make(map[string]int, len(members))
	for _, m := range members {
		if m.ID == l.selfID {
			continue
		}
		peers[m.ID] = m.ActiveConsumers
	}

	l.opts.metrics.RecordFetch(true, len(peers))
	l.network.UpdateNetwork(ctx, peers)
}

// maybeGarbageCollect runs a GC sweep unless one has already run within
// gcInterval.
func (l *Loop) maybeGarbageCollect(ctx context.Context) {
	l.mu.Lock()
	due := time.Since(l.lastGC) >= l.opts.gcInterval
	if due {
		l.lastGC = time.Now()
	}
	l.mu.Unlock()

	if !due {
		return
	}

	removed, err := l.store.GarbageCollect(ctx)
	if err != nil {
		l.opts.logger.Warn("membership garbage collection failed", "error", err)

		return
	}
	if removed > 0 {
		l.opts.metrics.RecordMemberGC(removed)
		l.opts.logger.Debug("removed expired cluster members", "count", removed)
	}
}
