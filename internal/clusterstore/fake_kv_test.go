package clusterstore

import (
	"context"
	"sync"

	"github.com/arloliu/shardkeeper/types"
)

// fakeKV is a minimal in-memory types.KVStore. clusterstore never relies on
// CAS semantics, so unlike leasestore's fake, revisions here are cosmetic.
type fakeKV struct {
	mu   sync.Mutex
	rows map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{rows: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) (types.KVEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.rows[key]
	if !ok {
		return types.KVEntry{}, types.ErrKeyNotFound
	}

	return types.KVEntry{Key: key, Value: value, Revision: 1}, nil
}

func (f *fakeKV) Create(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.rows[key]; ok {
		return 0, types.ErrKeyExists
	}
	f.rows[key] = value

	return 1, nil
}

func (f *fakeKV) Update(_ context.Context, key string, value []byte, _ uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.rows[key]; !ok {
		return 0, types.ErrRevisionMismatch
	}
	f.rows[key] = value

	return 1, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rows[key] = value

	return 1, nil
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
