// Package metrics tracks the two monotonic counters the frontend reports
// at shutdown: total accesses and cache hits.
package metrics

import "sync/atomic"

// Counters holds the process-wide access/hit counters. Updated with
// atomic arithmetic; read once at shutdown for the summary report.
type Counters struct {
	totalAccess atomic.Int64
	cacheHits   atomic.Int64
}

// RecordAccess increments total_access. Called once at the start of every
// public cache-engine operation (SET, GET, DELETE), regardless of outcome.
func (c *Counters) RecordAccess() {
	c.totalAccess.Add(1)
}

// RecordHit increments cache_hits. Called on every SET (the key is in
// the cache once the SET lands, update or insert alike) and whenever a
// GET or DELETE finds the key already resident.
func (c *Counters) RecordHit() {
	c.cacheHits.Add(1)
}

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	TotalAccess int64
	CacheHits   int64
	HitRatio    float64 // percentage, 0 when TotalAccess is 0
}

// Snapshot reads both counters and derives the hit ratio.
func (c *Counters) Snapshot() Snapshot {
	total := c.totalAccess.Load()
	hits := c.cacheHits.Load()

	var ratio float64
	if total > 0 {
		ratio = float64(hits) / float64(total) * 100
	}

	return Snapshot{TotalAccess: total, CacheHits: hits, HitRatio: ratio}
}
