package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/shardkeeper/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
// Instruments are registered lazily on first use, so a collector built but
// never exercised by a component never touches the registry.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	leaseTakeovers   *prometheus.CounterVec
	leaseConflicts   *prometheus.CounterVec
	reportResults    *prometheus.CounterVec
	fetchResults     *prometheus.CounterVec
	peerCount        prometheus.Gauge
	memberGCRemoved  prometheus.Counter
	workerSpawns     *prometheus.CounterVec
	workerExits      *prometheus.CounterVec
	activeWorkers    prometheus.Gauge
	allocDecisions   *prometheus.CounterVec
	minPeerLoadGauge prometheus.Gauge
}

var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed metrics collector. reg defaults
// to prometheus.DefaultRegisterer and namespace to "shardkeeper" when zero.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "shardkeeper"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.leaseTakeovers = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "lease",
			Name:      "takeovers_total",
			Help:      "Total successful lease claims or takeovers by shard.",
		}, []string{"shard_id", "fresh"})

		p.leaseConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "lease",
			Name:      "conflicts_total",
			Help:      "Total lease CAS conflicts by shard and operation.",
		}, []string{"shard_id", "op"})

		p.reportResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "report_total",
			Help:      "Total membership report task outcomes (success/failure).",
		}, []string{"result"})

		p.fetchResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "fetch_total",
			Help:      "Total membership fetch task outcomes (success/failure).",
		}, []string{"result"})

		p.peerCount = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "peer_count",
			Help:      "Peer count observed on the most recent successful fetch.",
		})

		p.memberGCRemoved = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "gc_removed_total",
			Help:      "Total expired cluster-member rows removed across all sweeps.",
		})

		p.workerSpawns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "supervisor",
			Name:      "worker_spawns_total",
			Help:      "Total worker processes spawned by shard.",
		}, []string{"shard_id"})

		p.workerExits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "supervisor",
			Name:      "worker_exits_total",
			Help:      "Total worker process exits by shard and whether they were force-killed.",
		}, []string{"shard_id", "forced"})

		p.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "supervisor",
			Name:      "active_workers",
			Help:      "Current live worker process count.",
		})

		p.allocDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "decisions_total",
			Help:      "Total allocation decisions by kind (acquire/shed/none).",
		}, []string{"decision"})

		p.minPeerLoadGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "min_peer_load",
			Help:      "minPeerLoad value used in the most recent allocation decision.",
		})

		p.reg.MustRegister(
			p.leaseTakeovers,
			p.leaseConflicts,
			p.reportResults,
			p.fetchResults,
			p.peerCount,
			p.memberGCRemoved,
			p.workerSpawns,
			p.workerExits,
			p.activeWorkers,
			p.allocDecisions,
			p.minPeerLoadGauge,
		)
	})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}

	return "false"
}

func (p *PrometheusCollector) RecordLeaseTakeover(shardID string, fresh bool) {
	p.ensureRegistered()
	p.leaseTakeovers.WithLabelValues(shardID, boolLabel(fresh)).Inc()
}

func (p *PrometheusCollector) RecordLeaseConflict(shardID, op string) {
	p.ensureRegistered()
	p.leaseConflicts.WithLabelValues(shardID, op).Inc()
}

func (p *PrometheusCollector) RecordReport(success bool) {
	p.ensureRegistered()
	p.reportResults.WithLabelValues(boolLabel(success)).Inc()
}

func (p *PrometheusCollector) RecordFetch(success bool, peerCount int) {
	p.ensureRegistered()
	p.fetchResults.WithLabelValues(boolLabel(success)).Inc()
	if success {
		p.peerCount.Set(float64(peerCount))
	}
}

func (p *PrometheusCollector) RecordMemberGC(removed int) {
	p.ensureRegistered()
	p.memberGCRemoved.Add(float64(removed))
}

func (p *PrometheusCollector) RecordWorkerSpawn(shardID string) {
	p.ensureRegistered()
	p.workerSpawns.WithLabelValues(shardID).Inc()
}

func (p *PrometheusCollector) RecordWorkerExit(shardID string, _ int, forced bool) {
	p.ensureRegistered()
	p.workerExits.WithLabelValues(shardID, boolLabel(forced)).Inc()
}

func (p *PrometheusCollector) SetActiveWorkers(count int) {
	p.ensureRegistered()
	p.activeWorkers.Set(float64(count))
}

func (p *PrometheusCollector) RecordAllocationDecision(decision string) {
	p.ensureRegistered()
	p.allocDecisions.WithLabelValues(decision).Inc()
}

func (p *PrometheusCollector) RecordMinPeerLoad(load int) {
	p.ensureRegistered()
	p.minPeerLoadGauge.Set(float64(load))
}
