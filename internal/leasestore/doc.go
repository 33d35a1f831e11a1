// Package leasestore implements the CAS protocol over the per-shard lease
// table.
//
// Every ownership change is a conditional write keyed on LeaseCounter:
// ClaimUnheld inserts a fresh row, TakeOver and Renew require the caller's
// view of LeaseCounter to still be current, and MarkFinished closes a row
// out for good. Conflict is a normal, frequent outcome — two instances
// racing for the same expired shard will see exactly one of these calls
// succeed — so it is reported as types.ErrLeaseConflict rather than logged
// as an error.
package leasestore
