package cache

import (
	"context"
	"sync"

	"github.com/dev69/decs/internal/store"
)

// fakeStore is an in-memory store.Client stand-in for engine tests, so
// cache logic is exercised without a real backend connection.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]string
	puts    []string // keys, in call order, for assertions on write-back
	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Put(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return store.ErrTransport
	}
	f.data[key] = value
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeStore) Fetch(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return store.ErrNotFound
	}
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Close() error { return nil }
