package backendstore

import (
	"context"
	"sync"
)

// Fake is an in-memory Backend for exercising the backend dispatcher and
// the full frontend+backend pipeline without a live PostgreSQL instance.
type Fake struct {
	mu   sync.Mutex
	data map[string]string
}

// NewFake returns an empty in-memory backend.
func NewFake() *Fake {
	return &Fake{data: make(map[string]string)}
}

func (f *Fake) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *Fake) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *Fake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return ErrNotFound
	}
	delete(f.data, key)
	return nil
}

func (f *Fake) Close() {}
