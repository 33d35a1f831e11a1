// Package supervisor implements the Worker Supervisor: each shard's
// consumer runs in its own OS process so that a crash there cannot
// corrupt the coordinator's own state. The supervisor starts, signals,
// and waits on those processes; it never interprets consumer logic.
package supervisor
