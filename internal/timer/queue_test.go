package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/arimoto/sipcore/internal/clock"
)

func TestScheduleFiresAfterClockAdvance(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	q := New(clk)

	var mu sync.Mutex
	fired := false
	q.Schedule("call-1", 2*time.Second, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	waitForWaiters(t, clk, 1)
	clk.Advance(2 * time.Second)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		f := fired
		mu.Unlock()
		if f {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("callback never fired")
}

func TestScheduleZeroDelayFiresImmediately(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	q := New(clk)

	done := make(chan struct{})
	q.Schedule("call-1", 0, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero-delay callback never fired")
	}
}

func TestCancelPreventsLaterFire(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	q := New(clk)

	fired := make(chan struct{})
	q.Schedule("call-1", time.Second, func() { close(fired) })

	if !q.Cancel("call-1") {
		t.Fatal("expected Cancel to find a pending timer")
	}
	clk.Advance(2 * time.Second)

	select {
	case <-fired:
		t.Fatal("callback fired despite cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReschedulingSameKeyCancelsPrevious(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	q := New(clk)

	var calls int
	var mu sync.Mutex
	q.Schedule("call-1", time.Second, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	q.Schedule("call-1", time.Second, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	waitForWaiters(t, clk, 1)
	clk.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func waitForWaiters(t *testing.T, clk *clock.Fake, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if clk.WaiterCount() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("clock never reached %d pending waiters", n)
}
