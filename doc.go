// Package shardkeeper coordinates per-shard consumer workers across a
// fleet of independent instances over NATS JetStream.
//
// Each instance runs a Coordinator that claims a roughly-even share of a
// stream's shards, spawns an isolated worker process per acquired shard,
// and relinquishes shards when a peer is underloaded relative to it. No
// instance is ever elected leader: every instance runs the same
// Allocation Controller logic against a shared lease table and a shared
// cluster-membership table, and a compare-and-swap protocol on the lease
// table's counter resolves any race between two instances claiming the
// same shard.
//
// # Quick Start
//
//	cfg := shardkeeper.DefaultConfig()
//	cfg.StreamName = "orders"
//	cfg.WorkerCommand = "/usr/local/bin/orders-worker"
//
//	coord, err := shardkeeper.New(natsConn, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := coord.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer coord.Stop(context.Background())
//
// # Architecture
//
// Bootstrap ensures the backing lease and cluster-member KV buckets
// exist, then starts the Membership Loop's two independent periodic
// tasks: Report publishes this instance's worker count, and Fetch
// rebuilds the peer view and feeds it to the Allocation Controller. Each
// Allocation Controller tick computes whether this instance should
// acquire another shard or shed one it holds, based on its worker count
// relative to the minimum reported by its peers. An acquired shard's
// worker performs its own lease compare-and-swap on first contact with
// the lease table; a worker that loses the race exits non-zero and the
// Worker Supervisor prunes its handle.
//
// See the cmd/coordinator and cmd/worker packages for a runnable example
// of the two halves of the system: the coordinator binary that embeds
// this package, and the worker binary the supervisor spawns.
package shardkeeper
