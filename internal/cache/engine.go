// Package cache implements the frontend's bounded write-back LRU cache:
// an entry table and access list composed under a single mutex, with
// LRU replacement and eviction-triggered flush to the persistent store.
//
// Structure:
//   - Entries live in a flat arena addressed by stable integer index;
//     the access list links them with prev/next index fields between
//     sentinel head and tail slots
//   - The entry table maps key -> arena index for O(1) lookup;
//     move-to-front and tail eviction are O(1) pointer swaps
//   - Freed slots are recycled through a free list instead of growing
//     the arena unboundedly
//
// Concurrency:
//   - One coarse mutex serializes every cache mutation
//   - The mutex is never held across a backend round trip: the GET
//     miss path releases it before the fetch and re-checks the table
//     after re-acquiring, tolerating a concurrent populator
//   - Counters are atomic and may be read without the mutex
//
// Durability:
//   - SET is write-back: dirty entries reach the store only at
//     eviction, at DELETE, or at the shutdown flush-all
//   - Read-through populations enter clean and are never flushed
package cache

import (
	"context"
	"sync"

	"github.com/dev69/decs/internal/metrics"
	"github.com/dev69/decs/internal/store"
)

// Engine composes the entry table and access list under a single mutex
// and implements SET/GET/DELETE with LRU replacement and write-back.
// The mutex is never held across a backend round trip on the GET miss
// path.
type Engine struct {
	mu       sync.Mutex
	list     *list
	table    map[string]int
	capacity int
	store    store.Client
	metrics  *metrics.Counters
}

// NewEngine creates an empty engine bounded at capacity entries,
// delegating to storeClient on miss/eviction.
func NewEngine(capacity int, storeClient store.Client, m *metrics.Counters) *Engine {
	return &Engine{
		list:     newList(),
		table:    make(map[string]int),
		capacity: capacity,
		store:    storeClient,
		metrics:  m,
	}
}

// evictIfFull evicts the least-recently-used entry when the cache is at
// capacity, flushing it first if dirty. Must be called with e.mu held.
// The victim is removed whether or not the write-back succeeded; the
// write-back error, if any, is returned for the caller to surface.
func (e *Engine) evictIfFull(ctx context.Context) error {
	if len(e.table) < e.capacity {
		return nil
	}

	idx := e.list.back()
	if idx == nilIdx {
		return nil
	}

	victim := e.list.at(idx)
	var writeErr error
	if victim.dirty {
		writeErr = e.store.Put(ctx, victim.key, victim.value)
	}

	delete(e.table, victim.key)
	e.list.detach(idx)
	e.list.release(idx)

	return writeErr
}

// Set updates in place and moves to front on hit, evicts then inserts
// dirty on miss. It always succeeds locally; a non-nil return means the
// eviction write-back (of a possibly unrelated key) failed, which the
// connection handler surfaces as the response status while the body
// still reports the SET as applied.
func (e *Engine) Set(ctx context.Context, key, value string) error {
	e.metrics.RecordAccess()
	// A SET always lands in the cache, so it always counts as a hit,
	// whether it updated an existing entry or inserted a fresh one.
	e.metrics.RecordHit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if idx, ok := e.table[key]; ok {
		en := e.list.at(idx)
		en.value = value
		en.dirty = true
		e.list.moveToFront(idx)
		return nil
	}

	evictErr := e.evictIfFull(ctx)

	idx := e.list.alloc(key, value, true)
	e.list.attachFront(idx)
	e.table[key] = idx

	return evictErr
}

// Get returns the cached value on a local hit, moving it to the front.
// On a local miss it releases the engine mutex, asks the persistent
// store, and on a backend hit re-acquires the mutex to populate the
// cache. If a concurrent populator won the race while the mutex was
// released, its value is returned as-is without re-inserting.
func (e *Engine) Get(ctx context.Context, key string) (string, error) {
	e.metrics.RecordAccess()

	e.mu.Lock()
	if idx, ok := e.table[key]; ok {
		e.metrics.RecordHit()
		e.list.moveToFront(idx)
		value := e.list.at(idx).value
		e.mu.Unlock()
		return value, nil
	}
	e.mu.Unlock()

	value, err := e.store.Fetch(ctx, key)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if idx, ok := e.table[key]; ok {
		return e.list.at(idx).value, nil
	}

	// Eviction write-back failures are surfaced on SET only, not on a
	// read-through population.
	_ = e.evictIfFull(ctx)

	idx := e.list.alloc(key, value, false)
	e.list.attachFront(idx)
	e.table[key] = idx

	return value, nil
}

// Delete detaches and frees the local entry if present (a local miss is
// not an error), then always contacts the backend: a key absent from
// the cache may still have a durable row.
func (e *Engine) Delete(ctx context.Context, key string) error {
	e.metrics.RecordAccess()

	e.mu.Lock()
	if idx, ok := e.table[key]; ok {
		e.metrics.RecordHit()
		delete(e.table, key)
		e.list.detach(idx)
		e.list.release(idx)
	}
	e.mu.Unlock()

	return e.store.Remove(ctx, key)
}

// FlushAll writes every dirty entry through to the store, front to back,
// clearing the dirty bit on each success. Intended to run once at
// shutdown, after every worker has joined, so nothing else mutates the
// engine concurrently.
func (e *Engine) FlushAll(ctx context.Context) (flushed int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	e.list.frontToBack(func(idx int) {
		en := e.list.at(idx)
		if !en.dirty {
			return
		}
		if perr := e.store.Put(ctx, en.key, en.value); perr != nil {
			if firstErr == nil {
				firstErr = perr
			}
			return
		}
		en.dirty = false
		flushed++
	})

	return flushed, firstErr
}

// Size reports the current live-entry count.
func (e *Engine) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.table)
}

// FrontKey returns the key currently at the front of the access list and
// true, or ("", false) if the cache is empty. Exists for tests asserting
// recency order.
func (e *Engine) FrontKey() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.list.arena[e.list.head].next
	if idx == e.list.tail {
		return "", false
	}
	return e.list.at(idx).key, true
}
