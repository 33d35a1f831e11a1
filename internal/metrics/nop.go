package metrics

import "github.com/arloliu/shardkeeper/types"

// NopMetrics discards every metric. It is the coordinator's default
// collector when the embedder does not supply one.
type NopMetrics struct{}

var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (n *NopMetrics) RecordLeaseTakeover(_ string, _ bool)     {}
func (n *NopMetrics) RecordLeaseConflict(_ string, _ string)   {}
func (n *NopMetrics) RecordReport(_ bool)                      {}
func (n *NopMetrics) RecordFetch(_ bool, _ int)                {}
func (n *NopMetrics) RecordMemberGC(_ int)                     {}
func (n *NopMetrics) RecordWorkerSpawn(_ string)               {}
func (n *NopMetrics) RecordWorkerExit(_ string, _ int, _ bool) {}
func (n *NopMetrics) SetActiveWorkers(_ int)                   {}
func (n *NopMetrics) RecordAllocationDecision(_ string)        {}
func (n *NopMetrics) RecordMinPeerLoad(_ int)                  {}
