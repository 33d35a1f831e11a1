package shardkeeper

import "github.com/arloliu/shardkeeper/types"

// Option configures a Coordinator with optional dependencies.
type Option func(*coordinatorOptions)

// coordinatorOptions holds optional Coordinator configuration.
type coordinatorOptions struct {
	hooks       types.Hooks
	metrics     types.MetricsCollector
	logger      types.Logger
	shardSource types.ShardSource
	selfID      string
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for New
//
// Example:
//
//	hooks := shardkeeper.Hooks{
//	    OnShardAcquired: func(ctx context.Context, shardID string) error {
//	        return startMetricsLabel(shardID)
//	    },
//	}
//	coord, err := shardkeeper.New(nc, cfg, shardkeeper.WithHooks(hooks))
func WithHooks(hooks types.Hooks) Option {
	return func(o *coordinatorOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for New
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *coordinatorOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation
//
// Returns:
//   - Option: Functional option for New
func WithLogger(logger types.Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

// WithShardSource overrides the default stream-backed ShardSource, e.g.
// to wire a fixed/static shard list in tests without a live JetStream
// stream.
//
// Parameters:
//   - source: ShardSource implementation
//
// Returns:
//   - Option: Functional option for New
func WithShardSource(source types.ShardSource) Option {
	return func(o *coordinatorOptions) {
		o.shardSource = source
	}
}

// WithSelfID overrides the generated instance identifier. Mostly useful
// in tests that need a deterministic id.
//
// Parameters:
//   - id: instance identifier
//
// Returns:
//   - Option: Functional option for New
func WithSelfID(id string) Option {
	return func(o *coordinatorOptions) {
		o.selfID = id
	}
}
