package shardsource

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	skptest "github.com/arloliu/shardkeeper/testing"
)

func TestStream_ListShards(t *testing.T) {
	_, nc := skptest.StartEmbeddedNATS(t)
	ctx := context.Background()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     "ORDERS",
		Subjects: []string{"orders.>"},
		Storage:  jetstream.MemoryStorage,
	})
	require.NoError(t, err)

	for _, durable := range []string{"shard-1", "shard-2"} {
		_, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
			Durable:   durable,
			AckPolicy: jetstream.AckExplicitPolicy,
		})
		require.NoError(t, err)
	}

	src := NewStream(js)
	shardIDs, err := src.ListShards(ctx, "ORDERS")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"shard-1", "shard-2"}, shardIDs)
}

func TestStream_ListShards_NoConsumers(t *testing.T) {
	_, nc := skptest.StartEmbeddedNATS(t)
	ctx := context.Background()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     "EMPTY",
		Subjects: []string{"empty.>"},
		Storage:  jetstream.MemoryStorage,
	})
	require.NoError(t, err)

	src := NewStream(js)
	shardIDs, err := src.ListShards(ctx, "EMPTY")
	require.NoError(t, err)
	require.Empty(t, shardIDs)
}

func TestStream_ListShards_UnknownStream(t *testing.T) {
	_, nc := skptest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	src := NewStream(js)
	_, err = src.ListShards(context.Background(), "missing")
	require.Error(t, err)
}
