// Package timer schedules future call-backs against an injectable
// clock, so simulated delays (e.g. the ringing->established Δans
// window) never block the I/O task and tests never sleep wall-clock
// time. Adapted from the TTLStore cleanup-goroutine pattern: instead of
// a periodic sweep evicting expired cache entries, each scheduled event
// gets its own goroutine waiting on the clock and firing exactly once
// or being cancelled.
package timer

import (
	"sync"
	"time"

	"github.com/arimoto/sipcore/internal/clock"
)

// Queue is a set of pending (fire_at, key, callback) timer events.
type Queue struct {
	clk clock.Clock

	mu      sync.Mutex
	cancels map[string]chan struct{}
}

// New creates a Queue driven by clk.
func New(clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Queue{clk: clk, cancels: make(map[string]chan struct{})}
}

// Schedule arranges for fn to run after delay elapses on the queue's
// clock, tagged under key. Scheduling a new event under a key already
// pending cancels the old one first — a dialog only ever has one
// pending transition timer at a time.
func (q *Queue) Schedule(key string, delay time.Duration, fn func()) {
	q.Cancel(key)

	cancelCh := make(chan struct{})
	q.mu.Lock()
	q.cancels[key] = cancelCh
	q.mu.Unlock()

	go func() {
		select {
		case <-q.clk.After(delay):
			q.mu.Lock()
			current, ok := q.cancels[key]
			if ok && current == cancelCh {
				delete(q.cancels, key)
			}
			q.mu.Unlock()
			if ok && current == cancelCh {
				fn()
			}
		case <-cancelCh:
		}
	}()
}

// Cancel stops key's pending timer, if any, before it fires. Returns
// whether a pending timer was found.
func (q *Queue) Cancel(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.cancels[key]
	if !ok {
		return false
	}
	delete(q.cancels, key)
	close(ch)
	return true
}

// Pending reports how many timers are currently scheduled. Intended for
// tests.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cancels)
}
