// Package allocation implements the Allocation Controller: on every
// updateNetwork event it decides whether this instance should acquire
// one more shard, shed one, or do nothing, based on its own worker count
// relative to the minimum observed across peers.
//
// The controller never performs the lease CAS itself; it only decides
// which shard to hand to the supervisor. The spawned worker process
// claims or takes over the lease on its own, so a race between two
// instances acquiring the same shard resolves in the lease store, not
// here.
package allocation
