// Package admission bounds the number of in-flight renders per process.
package admission

import "sync/atomic"

// Gate is a bounded counter of admission tickets. The count is process-wide
// state with no persistence; it resets on restart together with the
// in-flight work it tracks.
type Gate struct {
	limit  int64
	active atomic.Int64
}

// New creates a gate with the given ceiling. Ceilings below one are clamped.
func New(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{limit: int64(limit)}
}

// TryAcquire claims one ticket. It never blocks; false means the gate is at
// its ceiling.
func (g *Gate) TryAcquire() bool {
	for {
		cur := g.active.Load()
		if cur >= g.limit {
			return false
		}
		if g.active.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Release returns one ticket. Safe to call from a deferred path; a release
// without a matching acquire is clamped at zero instead of going negative.
func (g *Gate) Release() {
	for {
		cur := g.active.Load()
		if cur <= 0 {
			return
		}
		if g.active.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Active reports the current number of claimed tickets.
func (g *Gate) Active() int {
	return int(g.active.Load())
}

// Limit reports the ceiling.
func (g *Gate) Limit() int {
	return int(g.limit)
}
