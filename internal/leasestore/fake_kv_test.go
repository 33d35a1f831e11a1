package leasestore

import (
	"context"
	"sync"

	"github.com/arloliu/shardkeeper/types"
)

// fakeKV is a deterministic, in-memory types.KVStore used to exercise the
// CAS protocol without a real broker. It enforces the same revision
// semantics NATS JetStream KV does: revisions start at 1 and increment by
// exactly one per successful write to a key.
type fakeKV struct {
	mu   sync.Mutex
	rows map[string]fakeRow
}

type fakeRow struct {
	value    []byte
	revision uint64
}

func newFakeKV() *fakeKV {
	return &fakeKV{rows: make(map[string]fakeRow)}
}

func (f *fakeKV) Get(_ context.Context, key string) (types.KVEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[key]
	if !ok {
		return types.KVEntry{}, types.ErrKeyNotFound
	}

	return types.KVEntry{Key: key, Value: row.value, Revision: row.revision}, nil
}

func (f *fakeKV) Create(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.rows[key]; ok {
		return 0, types.ErrKeyExists
	}

	f.rows[key] = fakeRow{value: value, revision: 1}

	return 1, nil
}

func (f *fakeKV) Update(_ context.Context, key string, value []byte, expectedRevision uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[key]
	if !ok || row.revision != expectedRevision {
		return 0, types.ErrRevisionMismatch
	}

	next := row.revision + 1
	f.rows[key] = fakeRow{value: value, revision: next}

	return next, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.rows[key].revision + 1
	f.rows[key] = fakeRow{value: value, revision: next}

	return next, nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.rows, key)

	return nil
}

func (f *fakeKV) Keys(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.rows) == 0 {
		return nil, types.ErrNoKeysFound
	}

	keys := make([]string, 0, len(f.rows))
	for k := range f.rows {
		keys = append(keys, k)
	}

	return keys, nil
}
