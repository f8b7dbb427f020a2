// Package loop provides the continuation queue that pins deferred work to the
// engine's single-threaded tick boundary.
package loop

import (
	"sync"
)

// Continuation is one unit of deferred work.
type Continuation func()

// Queue collects continuations from any goroutine and releases them, in
// submission order, to the single consumer that drains once per tick. It is
// the only bridge structure designed for cross-thread handoff.
type Queue struct {
	mu    sync.Mutex
	items []Continuation
}

func NewQueue() *Queue {
	return &Queue{}
}

// Schedule appends fn to the tail of the queue. Safe from any goroutine and
// never blocks beyond the append.
func (q *Queue) Schedule(fn Continuation) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
}

// Len returns the number of pending continuations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain runs every queued continuation in submission order and returns how
// many ran. The queue is snapshotted and reset under the lock, then executed
// outside it, so work scheduled during a drain lands on the next tick.
// Drain must only be called from the engine's tick hook.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.items
	q.items = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}
