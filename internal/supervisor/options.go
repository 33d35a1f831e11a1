package supervisor

import (
	"time"

	"github.com/arloliu/shardkeeper/types"
)

// DefaultGraceTimeout is the fixed grace period between a shutdown
// message and a forced SIGKILL, per the supervisor contract.
const DefaultGraceTimeout = 40 * time.Second

type options struct {
	graceTimeout time.Duration
	args         []string
	logger       types.Logger
	metrics      types.SupervisorMetrics
	hooks        types.Hooks
}

// Option configures a Supervisor.
type Option func(*options)

// WithGraceTimeout overrides the grace window between the shutdown
// message and SIGKILL.
func WithGraceTimeout(d time.Duration) Option {
	return func(o *options) { o.graceTimeout = d }
}

// WithArgs sets fixed arguments passed to every spawned worker command,
// ahead of its per-process environment.
func WithArgs(args ...string) Option {
	return func(o *options) { o.args = args }
}

// WithLogger sets the logger used for process lifecycle events.
func WithLogger(l types.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink for worker lifecycle events.
func WithMetrics(m types.SupervisorMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHooks sets the embedder hooks invoked on worker exit.
func WithHooks(h types.Hooks) Option {
	return func(o *options) { o.hooks = h }
}

func defaultOptions() *options {
	return &options{
		graceTimeout: DefaultGraceTimeout,
	}
}
