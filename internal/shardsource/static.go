package shardsource

import (
	"context"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/shardkeeper/types"
)

// Static implements types.ShardSource with a fixed list of shard ids.
// Useful for testing and for deployments where shards are known upfront
// rather than derived from a stream's consumers.
type Static struct {
	mu     sync.RWMutex
	shards map[string][]string // streamName -> shard ids
}

var _ types.ShardSource = (*Static)(nil)

// NewStatic creates a static shard source from an initial streamName ->
// shard id list mapping.
func NewStatic(shards map[string][]string) *Static {
	s := &Static{shards: make(map[string][]string, len(shards))}
	for stream, ids := range shards {
		s.shards[stream] = stableOrder(ids)
	}

	return s
}

// ListShards returns the fixed shard list for streamName, stably ordered
// by hashing each id so repeated calls within a test produce the same
// sequence without relying on map iteration order.
func (s *Static) ListShards(_ context.Context, streamName string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, len(s.shards[streamName]))
	copy(result, s.shards[streamName])

	return result, nil
}

// Update replaces the shard list for streamName, simulating a stream
// topology change for tests that exercise allocation convergence.
func (s *Static) Update(streamName string, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shards[streamName] = stableOrder(ids)
}

func stableOrder(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool {
		return xxhash.Sum64String(out[i]) < xxhash.Sum64String(out[j])
	})

	return out
}
