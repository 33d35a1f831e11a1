package hooks

import (
	"context"

	"github.com/arloliu/shardkeeper/types"
)

// NopHooks implements the Hooks callbacks as no-ops.
//
// This is the default used when the embedder supplies none, eliminating
// nil checks throughout the codebase.
type NopHooks struct{}

// NewNop creates a types.Hooks with every field set to a no-op.
func NewNop() types.Hooks {
	h := &NopHooks{}

	return types.Hooks{
		OnShardAcquired: h.OnShardAcquired,
		OnShardShed:     h.OnShardShed,
		OnWorkerExit:    h.OnWorkerExit,
		OnError:         h.OnError,
	}
}

func (h *NopHooks) OnShardAcquired(_ context.Context, _ string) error {
	return nil
}

func (h *NopHooks) OnShardShed(_ context.Context, _ string) error {
	return nil
}

func (h *NopHooks) OnWorkerExit(_ context.Context, _ string, _ int, _ error) error {
	return nil
}

func (h *NopHooks) OnError(_ context.Context, _ error) error {
	return nil
}
