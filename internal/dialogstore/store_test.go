package dialogstore

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/clock"
)

func addr(t *testing.T) net.Addr {
	t.Helper()
	a, err := net.ResolveUDPAddr("udp", "127.0.0.1:5060")
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestHappyPathTransitionsInOrder(t *testing.T) {
	s := New(nil, nil)
	peer := addr(t)

	s.Create("call-1", "200", "201", peer)

	if _, err := s.Transition("call-1", StateTrying); err != nil {
		t.Fatalf("idle->trying: %v", err)
	}
	if _, err := s.Transition("call-1", StateRinging); err != nil {
		t.Fatalf("trying->ringing: %v", err)
	}
	d, err := s.Transition("call-1", StateEstablished)
	if err != nil {
		t.Fatalf("ringing->established: %v", err)
	}
	if d.AnsweredAt.IsZero() {
		t.Error("expected AnsweredAt to be stamped")
	}
	if d.NegotiatedCodec != "PCMU/8000" {
		t.Errorf("codec = %q", d.NegotiatedCodec)
	}

	// idempotent re-ACK
	d2, err := s.Transition("call-1", StateEstablished)
	if err != nil {
		t.Fatalf("established->established: %v", err)
	}
	if d2.AnsweredAt != d.AnsweredAt {
		t.Error("AnsweredAt should not change on idempotent re-entry")
	}

	if _, err := s.Transition("call-1", StateTerminating); err != nil {
		t.Fatalf("established->terminating: %v", err)
	}
	final, err := s.Transition("call-1", StateTerminated)
	if err != nil {
		t.Fatalf("terminating->terminated: %v", err)
	}
	if final.EndedAt.IsZero() {
		t.Error("expected EndedAt to be stamped")
	}
}

func TestIllegalTransitionLeavesDialogUntouched(t *testing.T) {
	s := New(nil, nil)
	s.Create("call-1", "200", "201", addr(t))
	s.Transition("call-1", StateTrying)

	_, err := s.Transition("call-1", StateEstablished)
	if err == nil {
		t.Fatal("expected illegal transition error")
	}

	d, _ := s.Lookup("call-1")
	if d.State != StateTrying {
		t.Errorf("state = %q, want unchanged trying", d.State)
	}
}

func TestBYEBeforeEstablishedCancelsDirectly(t *testing.T) {
	s := New(nil, nil)
	s.Create("call-1", "200", "201", addr(t))
	s.Transition("call-1", StateTrying)

	d, err := s.Transition("call-1", StateTerminated)
	if err != nil {
		t.Fatalf("trying->terminated: %v", err)
	}
	if d.State != StateTerminated {
		t.Errorf("state = %q", d.State)
	}
}

func TestTransitionOnUnknownCallIDFails(t *testing.T) {
	s := New(nil, nil)
	if _, err := s.Transition("nope", StateTrying); err == nil {
		t.Fatal("expected ErrUnknownCallID")
	}
}

func TestMarkACKReceivedFirstOnlyOnce(t *testing.T) {
	s := New(nil, nil)
	s.Create("call-1", "200", "201", addr(t))

	first, err := s.MarkACKReceived("call-1")
	if err != nil || !first {
		t.Fatalf("first=%v err=%v, want true,nil", first, err)
	}
	second, err := s.MarkACKReceived("call-1")
	if err != nil || second {
		t.Fatalf("second=%v err=%v, want false,nil", second, err)
	}
}

func TestIterActiveSkipsTerminated(t *testing.T) {
	s := New(nil, nil)
	s.Create("call-1", "200", "201", addr(t))
	s.Create("call-2", "200", "202", addr(t))
	s.Transition("call-2", StateTrying)
	s.Transition("call-2", StateTerminated)

	var seen []string
	s.IterActive(func(d Dialog) { seen = append(seen, d.CallID) })

	if len(seen) != 1 || seen[0] != "call-1" {
		t.Fatalf("IterActive = %v, want [call-1]", seen)
	}
}

func TestTransitionEmitsAuditEvents(t *testing.T) {
	bus := audit.New(8)
	sub := bus.Subscribe()
	defer sub.Close()

	clk := clock.NewFake(time.Unix(1000, 0))
	s := New(bus, clk)
	s.Create("call-1", "200", "201", addr(t))
	s.Transition("call-1", StateTrying)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, ok := sub.Next(ctx)
	if !ok || e.StepName != audit.StepDialogIdleToTrying {
		t.Fatalf("got %+v ok=%v", e, ok)
	}
}
