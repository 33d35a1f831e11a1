package shardkeeper

import (
	"fmt"
	"time"

	"github.com/arloliu/shardkeeper/types"
)

// configError wraps ErrInvalidConfig with a specific reason.
func configError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, reason)
}

// ============================================================================
// Timing Configuration Model
// ============================================================================
//
// shardkeeper uses three independent cadences, matching the three periodic
// activities a running instance performs:
//
//   - LeaseDuration: how long a claimed or renewed lease stays valid before
//     a peer may consider it abandoned and take over.
//   - ReportPeriod / FetchPeriod: the Membership Loop's two tasks. Report
//     publishes this instance's load; Fetch rebuilds the peer view that
//     drives allocation decisions.
//   - GCInterval: the minimum spacing between peer-table garbage-collection
//     sweeps, independent of FetchPeriod's own cadence.
//
// MemberTTL (ReportPeriod * MemberTTLFactor) must be long enough to survive
// one missed report without a peer wrongly garbage-collecting this
// instance; MemberTTL should be at least 2 * ReportPeriod.
//
// ============================================================================

// KVBucketConfig configures NATS JetStream KV bucket names backing the two
// rows of the data model: leases and cluster members.
type KVBucketConfig struct {
	// LeaseBucket is the bucket name for per-shard lease rows.
	LeaseBucket string `yaml:"leaseBucket"`

	// ClusterBucket is the bucket name for per-instance liveness rows.
	ClusterBucket string `yaml:"clusterBucket"`
}

// Config is the configuration for the Coordinator.
//
// All duration fields accept standard Go duration strings like "30s", "5m".
type Config struct {
	// SelfID is this instance's member id. Generated (random) if empty.
	SelfID string `yaml:"selfId"`

	// StreamName is the stream whose shards this fleet of instances
	// divides among themselves.
	StreamName string `yaml:"streamName"`

	// WorkerCommand is the path to the worker binary the supervisor
	// executes for each acquired shard.
	WorkerCommand string `yaml:"workerCommand"`

	// LeaseDuration is how long a claimed or renewed lease remains valid.
	// Must be at least 3x ReportPeriod; below 5x ReportPeriod a warning
	// is logged.
	LeaseDuration time.Duration `yaml:"leaseDuration"`

	// ReportPeriod is how often this instance refreshes its own liveness
	// row. Recommended: 1 second.
	ReportPeriod time.Duration `yaml:"reportPeriod"`

	// FetchPeriod is how often this instance rebuilds its peer view and
	// re-evaluates its allocation decision. Recommended: 5 seconds.
	FetchPeriod time.Duration `yaml:"fetchPeriod"`

	// MemberTTLFactor sets MemberTTL = ReportPeriod * MemberTTLFactor.
	// Must be >= 2 to survive one missed report. Recommended: 3.
	MemberTTLFactor int64 `yaml:"memberTtlFactor"`

	// GCInterval is the minimum spacing between peer garbage-collection
	// sweeps. Recommended: 1 minute.
	GCInterval time.Duration `yaml:"gcInterval"`

	// GraceTimeout is how long a worker has to exit cleanly after
	// receiving the shutdown message before the supervisor force-kills
	// it. Recommended: 40 seconds.
	GraceTimeout time.Duration `yaml:"graceTimeout"`

	// OperationTimeout is the timeout for individual KV and stream
	// operations. Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// BootstrapTimeout is the maximum time to wait for the backing
	// buckets to be probed/created at startup.
	BootstrapTimeout time.Duration `yaml:"bootstrapTimeout"`

	// HealthAddr, if non-empty, starts the HTTP health server on this
	// address (e.g. ":8080"). Empty disables it.
	HealthAddr string `yaml:"healthAddr"`

	// KVBuckets controls NATS JetStream KV bucket configuration.
	KVBuckets KVBucketConfig `yaml:"kvBuckets"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LeaseDuration:    30 * time.Second,
		ReportPeriod:     1 * time.Second,
		FetchPeriod:      5 * time.Second,
		MemberTTLFactor:  3,
		GCInterval:       1 * time.Minute,
		GraceTimeout:     40 * time.Second,
		OperationTimeout: 10 * time.Second,
		BootstrapTimeout: 30 * time.Second,
		KVBuckets: KVBucketConfig{
			LeaseBucket:   "shardkeeper-leases",
			ClusterBucket: "shardkeeper-cluster",
		},
	}
}

// SetDefaults fills in missing configuration values with production
// defaults, in place.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.LeaseDuration == 0 {
		cfg.LeaseDuration = defaults.LeaseDuration
	}
	if cfg.ReportPeriod == 0 {
		cfg.ReportPeriod = defaults.ReportPeriod
	}
	if cfg.FetchPeriod == 0 {
		cfg.FetchPeriod = defaults.FetchPeriod
	}
	if cfg.MemberTTLFactor == 0 {
		cfg.MemberTTLFactor = defaults.MemberTTLFactor
	}
	if cfg.GCInterval == 0 {
		cfg.GCInterval = defaults.GCInterval
	}
	if cfg.GraceTimeout == 0 {
		cfg.GraceTimeout = defaults.GraceTimeout
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.BootstrapTimeout == 0 {
		cfg.BootstrapTimeout = defaults.BootstrapTimeout
	}
	if cfg.KVBuckets.LeaseBucket == "" {
		cfg.KVBuckets.LeaseBucket = defaults.KVBuckets.LeaseBucket
	}
	if cfg.KVBuckets.ClusterBucket == "" {
		cfg.KVBuckets.ClusterBucket = defaults.KVBuckets.ClusterBucket
	}
}

// MemberTTL returns ReportPeriod * MemberTTLFactor in milliseconds, the
// liveness window a peer grants this instance's cluster-member row.
func (cfg *Config) MemberTTL() int64 {
	return cfg.ReportPeriod.Milliseconds() * cfg.MemberTTLFactor
}

// Validate checks configuration constraints and returns an error
// satisfying errors.Is(err, ErrInvalidConfig) for any violation.
//
// Hard validation rules:
//   - StreamName and WorkerCommand must be set.
//   - LeaseDuration >= 3 * ReportPeriod (lease must outlive a few reports).
//   - MemberTTLFactor >= 2 (survive one missed report).
//   - GCInterval > 0.
func (cfg *Config) Validate() error {
	if cfg.StreamName == "" {
		return configError("streamName is required")
	}
	if cfg.WorkerCommand == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrWorkerCommandRequired)
	}
	if cfg.LeaseDuration < 3*cfg.ReportPeriod {
		return configError(fmt.Sprintf("leaseDuration (%v) must be >= 3*reportPeriod (%v)",
			cfg.LeaseDuration, cfg.ReportPeriod))
	}
	if cfg.MemberTTLFactor < 2 {
		return configError(fmt.Sprintf("memberTtlFactor (%d) must be >= 2 to survive one missed report",
			cfg.MemberTTLFactor))
	}
	if cfg.GCInterval <= 0 {
		return configError("gcInterval must be > 0")
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for
// non-recommended values. Called after Validate() in New() to provide
// operator guidance without failing startup.
func (cfg *Config) ValidateWithWarnings(logger types.Logger) {
	if cfg.LeaseDuration < 5*cfg.ReportPeriod {
		logger.Warn(
			"leaseDuration is below the recommended minimum",
			"leaseDuration", cfg.LeaseDuration,
			"reportPeriod", cfg.ReportPeriod,
			"recommended", 5*cfg.ReportPeriod,
		)
	}
	if cfg.GCInterval < cfg.FetchPeriod {
		logger.Warn(
			"gcInterval is shorter than fetchPeriod, every fetch tick will attempt GC",
			"gcInterval", cfg.GCInterval,
			"fetchPeriod", cfg.FetchPeriod,
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are an order of magnitude faster than production defaults
// so tests converge quickly without sacrificing coverage. Use
// DefaultConfig() for production deployments.
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.ReportPeriod = 20 * time.Millisecond
	cfg.FetchPeriod = 50 * time.Millisecond
	cfg.GCInterval = 200 * time.Millisecond
	cfg.LeaseDuration = 500 * time.Millisecond
	cfg.GraceTimeout = 200 * time.Millisecond
	cfg.OperationTimeout = 2 * time.Second
	cfg.BootstrapTimeout = 5 * time.Second

	return cfg
}
