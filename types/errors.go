package types

import (
	"errors"
	"strings"
)

// Sentinel errors for the backing-table protocol layer (KVStore,
// LeaseStore, ClusterStore).
//
// Components use errors.Is for classification per the error policy table:
// CAS conflicts are a normal outcome and never logged above debug.
// Coordinator lifecycle errors (invalid config, already started, bootstrap
// failed, ...) live in the root package, not here, since nothing under
// types/ or internal/ returns them.
var (
	// ErrLeaseConflict is returned by LeaseStore operations when a CAS
	// precondition failed. This is a normal, expected outcome, not a bug:
	// the caller re-reads and re-decides.
	ErrLeaseConflict = errors.New("lease CAS conflict")

	// ErrKeyNotFound is returned by KVStore.Get for an absent key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists is returned by KVStore.Create when the key is already present.
	ErrKeyExists = errors.New("key already exists")

	// ErrRevisionMismatch is returned by KVStore.Update when the expected
	// revision no longer matches.
	ErrRevisionMismatch = errors.New("revision mismatch")

	// ErrNoKeysFound is returned by KVStore.Keys when the store is empty.
	// Treated as an expected condition, not an error.
	ErrNoKeysFound = errors.New("no keys found")
)

// IsNoKeysFoundError checks if err indicates the KV store returned no keys.
//
// Handles both the direct sentinel and NATS's own "no keys found" message,
// which may arrive wrapped.
func IsNoKeysFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoKeysFound) {
		return true
	}

	return strings.Contains(err.Error(), "no keys found")
}
