package shardsource

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/shardkeeper/types"
)

// Stream implements types.ShardSource by treating each durable consumer
// of a JetStream stream as one shard identity. It is the production
// counterpart to Static: shard topology is whatever consumers already
// exist on the stream, discovered rather than declared.
type Stream struct {
	js jetstream.JetStream
}

var _ types.ShardSource = (*Stream)(nil)

// NewStream wraps js as a stream-backed shard source.
func NewStream(js jetstream.JetStream) *Stream {
	return &Stream{js: js}
}

// ListShards drains the stream's consumer name lister. Any error from the
// lister propagates unchanged; callers treat it as "skip this tick".
func (s *Stream) ListShards(ctx context.Context, streamName string) ([]string, error) {
	stream, err := s.js.Stream(ctx, streamName)
	if err != nil {
		return nil, fmt.Errorf("shardsource: get stream %s: %w", streamName, err)
	}

	lister := stream.ConsumerNames(ctx)

	var shardIDs []string
	for name := range lister.Name() {
		shardIDs = append(shardIDs, name)
	}

	if err := lister.Err(); err != nil {
		return nil, fmt.Errorf("shardsource: list consumers of %s: %w", streamName, err)
	}

	return shardIDs, nil
}
