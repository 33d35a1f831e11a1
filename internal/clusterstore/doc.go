// Package clusterstore implements the cluster-member liveness table: each
// coordinator instance periodically upserts its own row, reads the others
// to build a peer view, and sweeps out rows whose TTL has lapsed.
//
// Unlike leasestore, writes here are unconditional — a member report is a
// refresh, not a contested acquisition, so there is no CAS and no
// conflict outcome to report.
package clusterstore
