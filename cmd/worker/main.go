// Command worker is the process the supervisor spawns for a single
// shard. It decodes its options from the environment, performs its own
// lease compare-and-swap against the shared lease table, then runs a
// consume loop until its shard's lease can no longer be held or a
// shutdown message arrives on stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/shardkeeper/internal/kvutil"
	"github.com/arloliu/shardkeeper/internal/leasestore"
	"github.com/arloliu/shardkeeper/types"
)

func main() {
	opts, err := decodeOptions()
	if err != nil {
		log.Fatalf("decode worker options: %v", err)
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Fatalf("connect to NATS: %v", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		log.Fatalf("create jetstream context: %v", err)
	}

	kv, err := js.KeyValue(context.Background(), opts.TableName)
	if err != nil {
		log.Fatalf("open lease bucket %q: %v", opts.TableName, err)
	}

	leases := leasestore.New(kvutil.NewStore(kv))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lease, err := claimOrTakeOver(ctx, leases, opts)
	if err != nil {
		log.Fatalf("acquire lease for shard %s: %v", opts.ShardID, err)
	}

	log.Printf("worker holding shard %s at lease_counter=%d", opts.ShardID, lease.LeaseCounter)

	shutdown := make(chan struct{})
	go watchStdin(shutdown)

	renewTicker := time.NewTicker(time.Duration(opts.LeaseDurationMillis/2) * time.Millisecond)
	defer renewTicker.Stop()

	counter := lease.LeaseCounter
	for {
		select {
		case <-shutdown:
			log.Printf("worker for shard %s received shutdown message", opts.ShardID)

			return
		case <-renewTicker.C:
			renewed, err := leases.Renew(ctx, opts.ShardID, counter, opts.OwnerID, opts.LeaseDurationMillis)
			if err != nil {
				log.Fatalf("renew lease for shard %s: %v", opts.ShardID, err)
			}
			counter = renewed.LeaseCounter
		}
	}
}

// decodeOptions reads the supervisor's JSON payload from the
// environment variable it writes before starting this process.
func decodeOptions() (types.WorkerOptions, error) {
	raw := os.Getenv("SHARDKEEPER_WORKER_OPTIONS")
	if raw == "" {
		return types.WorkerOptions{}, fmt.Errorf("missing SHARDKEEPER_WORKER_OPTIONS")
	}

	var opts types.WorkerOptions
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return types.WorkerOptions{}, fmt.Errorf("unmarshal worker options: %w", err)
	}

	return opts, nil
}

// claimOrTakeOver performs the worker's half of the CAS protocol: a
// fresh shard is claimed, a previously-leased one is taken over at the
// counter the supervisor observed when it spawned this process.
func claimOrTakeOver(ctx context.Context, leases *leasestore.Store, opts types.WorkerOptions) (types.Lease, error) {
	if opts.InitialLeaseCounter == nil {
		return leases.ClaimUnheld(ctx, opts.ShardID, opts.OwnerID, opts.LeaseDurationMillis)
	}

	return leases.TakeOver(ctx, opts.ShardID, *opts.InitialLeaseCounter, opts.OwnerID, opts.LeaseDurationMillis)
}

// watchStdin blocks until the supervisor writes a shutdown message (or
// closes stdin), then closes shutdown.
func watchStdin(shutdown chan struct{}) {
	defer close(shutdown)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var msg types.ShutdownMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Type == types.ShutdownMessageType {
			return
		}
	}
}
