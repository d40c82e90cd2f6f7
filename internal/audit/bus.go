package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCapacity is the bus depth when config doesn't override it.
const DefaultCapacity = 1024

// Bus is a bounded, ordered, multi-producer multi-consumer stream of
// audit events. Producers never block longer than the time it takes to
// append to a slice: a subscriber that falls behind has its oldest
// undelivered events evicted and replaced with a synthetic
// AUDIT_OVERFLOW event the next time it's read, instead of applying
// backpressure to the producer.
type Bus struct {
	capacity int

	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buf      []Event
	dropped  int
	closed   bool
}

// New creates a Bus with the given bounded capacity per subscriber. A
// capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		subs:     make(map[int]*subscriber),
	}
}

// Publish enqueues e to every current subscriber. It never blocks on a
// slow consumer: a full subscriber buffer evicts its oldest entry first.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.push(e)
	}
}

func (s *subscriber) push(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if len(s.buf) >= s.capacity {
		s.buf = append(s.buf[:0], s.buf[1:]...)
		s.dropped++
	}
	s.buf = append(s.buf, e)
	s.cond.Signal()
}

// Subscription is a consumer handle on the bus.
type Subscription struct {
	bus *Bus
	id  int
	sub *subscriber
}

// Subscribe registers a new consumer. Events published before Subscribe
// is called are not visible to it.
func (b *Bus) Subscribe() *Subscription {
	s := &subscriber{capacity: b.capacity, buf: make([]Event, 0, b.capacity)}
	s.cond = sync.NewCond(&s.mu)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = s
	b.mu.Unlock()

	return &Subscription{bus: b, id: id, sub: s}
}

// Next blocks until an event is available, ctx is cancelled, or the
// subscription is closed. An evicted backlog is surfaced first, as a
// single AUDIT_OVERFLOW event carrying the cumulative drop count.
func (sub *Subscription) Next(ctx context.Context) (Event, bool) {
	stop := context.AfterFunc(ctx, func() {
		sub.sub.mu.Lock()
		sub.sub.cond.Broadcast()
		sub.sub.mu.Unlock()
	})
	defer stop()

	sub.sub.mu.Lock()
	defer sub.sub.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return Event{}, false
		}
		if sub.sub.dropped > 0 {
			n := sub.sub.dropped
			sub.sub.dropped = 0
			return New(nowFn(), StepAuditOverflow, map[string]string{"evicted": fmt.Sprint(n)}), true
		}
		if len(sub.sub.buf) > 0 {
			e := sub.sub.buf[0]
			sub.sub.buf = sub.sub.buf[1:]
			return e, true
		}
		if sub.sub.closed {
			return Event{}, false
		}
		sub.sub.cond.Wait()
	}
}

// Close detaches the subscription from the bus and wakes any blocked
// Next call.
func (sub *Subscription) Close() {
	sub.bus.mu.Lock()
	delete(sub.bus.subs, sub.id)
	sub.bus.mu.Unlock()

	sub.sub.mu.Lock()
	sub.sub.closed = true
	sub.sub.cond.Broadcast()
	sub.sub.mu.Unlock()
}

// nowFn is overridable by tests that need deterministic overflow-event
// timestamps; production code leaves it at the package default.
var nowFn = time.Now
