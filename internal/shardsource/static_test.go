package shardsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatic_ListShards(t *testing.T) {
	src := NewStatic(map[string][]string{
		"orders": {"shard-1", "shard-2", "shard-3"},
	})

	shards, err := src.ListShards(context.Background(), "orders")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"shard-1", "shard-2", "shard-3"}, shards)
}

func TestStatic_ListShards_UnknownStream(t *testing.T) {
	src := NewStatic(nil)

	shards, err := src.ListShards(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, shards)
}

func TestStatic_ListShards_StableOrder(t *testing.T) {
	src := NewStatic(map[string][]string{"orders": {"a", "b", "c"}})

	first, err := src.ListShards(context.Background(), "orders")
	require.NoError(t, err)
	second, err := src.ListShards(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestStatic_Update(t *testing.T) {
	src := NewStatic(map[string][]string{"orders": {"a"}})
	src.Update("orders", []string{"a", "b"})

	shards, err := src.ListShards(context.Background(), "orders")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, shards)
}
