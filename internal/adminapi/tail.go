package adminapi

import (
	"strconv"
	"sync"

	"github.com/arimoto/sipcore/internal/audit"
)

// tailBuffer is a fixed-capacity ring of the most recent audit events,
// independent of the bounded per-subscriber queue in package audit —
// this one exists purely to answer "what just happened" over HTTP.
type tailBuffer struct {
	mu       sync.Mutex
	events   []audit.Event
	capacity int
}

func newTailBuffer(capacity int) *tailBuffer {
	return &tailBuffer{capacity: capacity}
}

func (t *tailBuffer) push(e audit.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	if len(t.events) > t.capacity {
		t.events = t.events[len(t.events)-t.capacity:]
	}
}

func (t *tailBuffer) last(n int) []audit.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || n > len(t.events) {
		n = len(t.events)
	}
	out := make([]audit.Event, n)
	copy(out, t.events[len(t.events)-n:])
	return out
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}
