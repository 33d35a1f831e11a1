// Package membership implements the Membership Loop: two independently
// ticking background tasks that keep this instance's liveness row fresh
// and keep its view of peer load current.
//
// The report task and fetch task never share a tick; either can stall or
// error without affecting the other. Peer garbage collection rides on
// the fetch task's cadence but is throttled to at most once per GC
// interval (one minute by default).
package membership
