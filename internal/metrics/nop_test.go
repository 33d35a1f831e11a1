package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNop(t *testing.T) {
	m := NewNop()

	require.NotNil(t, m)
	require.IsType(t, &NopMetrics{}, m)
}

func TestNopMetrics_DoesNotPanic(t *testing.T) {
	m := NewNop()

	require.NotPanics(t, func() {
		m.RecordLeaseTakeover("shard-0", true)
		m.RecordLeaseConflict("shard-0", "takeover")
		m.RecordReport(true)
		m.RecordFetch(false, 0)
		m.RecordMemberGC(3)
		m.RecordWorkerSpawn("shard-0")
		m.RecordWorkerExit("shard-0", 1, true)
		m.SetActiveWorkers(2)
		m.RecordAllocationDecision("acquire")
		m.RecordMinPeerLoad(1)
	})
}

func BenchmarkNopMetrics_RecordLeaseTakeover(b *testing.B) {
	m := NewNop()
	for b.Loop() {
		m.RecordLeaseTakeover("shard-0", true)
	}
}

func BenchmarkNopMetrics_RecordAllocationDecision(b *testing.B) {
	m := NewNop()
	for b.Loop() {
		m.RecordAllocationDecision("acquire")
	}
}
