// Package kvutil adapts NATS JetStream KeyValue buckets to the
// package-neutral types.KVStore interface the lease and cluster-member
// stores are built on.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/shardkeeper/internal/logging"
	"github.com/arloliu/shardkeeper/types"
)

// EnsureKVBucketWithRetry creates the bucket described by config, or opens
// it if another instance won the create race first. Bootstrap runs this
// once per bucket per Start call, so a handful of coordinator instances
// racing to create the same lease or cluster-member bucket is the
// expected case, not a failure.
//
// logger receives a Warn on every attempt after the first; pass nil to
// discard them. maxRetries <= 0 defaults to 3.
func EnsureKVBucketWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	maxRetries int,
	logger types.Logger,
) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		kv, err := js.CreateKeyValue(ctx, config)
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err := js.KeyValue(ctx, config.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during KV bucket creation: %w", ctx.Err())
		}

		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries, no overflow risk
			logger.Warn("retrying KV bucket creation", "bucket", config.Bucket, "attempt", attempt+1, "backoff", backoff, "error", lastErr)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w",
		config.Bucket, maxRetries, lastErr)
}
