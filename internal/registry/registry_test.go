package registry

import (
	"context"
	"testing"
	"time"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/clock"
)

func TestRegisterAssignsAddressAndPort(t *testing.T) {
	r := New(nil, nil)

	u1, err := r.Register("1001")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u1.InternalAddress != "192.168.100.10" {
		t.Errorf("address = %q, want 192.168.100.10", u1.InternalAddress)
	}
	if u1.SIPPort != 5060 {
		t.Errorf("port = %d, want 5060", u1.SIPPort)
	}

	u2, err := r.Register("1002")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u2.InternalAddress != "192.168.100.11" {
		t.Errorf("address = %q, want 192.168.100.11", u2.InternalAddress)
	}
	if u2.SIPPort != 5061 {
		t.Errorf("port = %d, want 5061", u2.SIPPort)
	}
}

func TestRegisterRejectsInvalidExtension(t *testing.T) {
	r := New(nil, nil)
	if _, err := r.Register("ab"); err == nil {
		t.Fatal("expected error for non-numeric extension")
	}
	if _, err := r.Register("12"); err == nil {
		t.Fatal("expected error for too-short extension")
	}
}

func TestRegisterIsIdempotentForSameExtension(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	r := New(nil, clk)

	first, _ := r.Register("1001")
	clk.Advance(5 * time.Second)
	second, _ := r.Register("1001")

	if first.InternalAddress != second.InternalAddress {
		t.Errorf("address reassigned: %q -> %q", first.InternalAddress, second.InternalAddress)
	}
	if !second.LastHeartbeat.After(first.LastHeartbeat) {
		t.Errorf("expected LastHeartbeat to advance on re-register")
	}
}

func TestAddressPoolWrapsAndSkipsAssigned(t *testing.T) {
	r := New(nil, nil)
	r.nextAddr = addressPoolLast // force a wrap on next allocation

	u, _ := r.Register("1001")
	if u.InternalAddress != "192.168.100.254" {
		t.Fatalf("address = %q, want 192.168.100.254", u.InternalAddress)
	}
	u2, _ := r.Register("1002")
	if u2.InternalAddress != "192.168.100.1" {
		t.Fatalf("address = %q, want 192.168.100.1 after wrap", u2.InternalAddress)
	}

	r.nextAddr = addressPoolLast // .254 and .1 are both held now
	u3, _ := r.Register("1003")
	if u3.InternalAddress != "192.168.100.2" {
		t.Fatalf("address = %q, want 192.168.100.2 after skipping assigned", u3.InternalAddress)
	}
}

func TestHeartbeatUnknownExtensionReturnsFalse(t *testing.T) {
	r := New(nil, nil)
	if r.Heartbeat("9999") {
		t.Fatal("expected false for unregistered extension")
	}
}

func TestActiveFlipsStaleUsersOfflineOnce(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	bus := audit.New(8)
	sub := bus.Subscribe()
	defer sub.Close()

	r := New(bus, clk)
	r.Register("1001")

	clk.Advance(31 * time.Second)

	active := r.Active(30)
	if len(active) != 0 {
		t.Fatalf("expected no active users, got %d", len(active))
	}

	u, ok := r.Get("1001")
	if !ok || u.Status != StatusOffline {
		t.Fatalf("expected user flipped offline, got %+v ok=%v", u, ok)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, ok := sub.Next(ctx)
	if !ok || e.StepName != audit.StepUserTimedOut {
		t.Fatalf("expected USER_TIMED_OUT event, got %+v ok=%v", e, ok)
	}

	// second poll must not re-fire the timeout event
	r.Active(30)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	if _, ok := sub.Next(ctx2); ok {
		t.Fatal("expected no second USER_TIMED_OUT event")
	}
}

func TestActiveReincludesUserAfterHeartbeat(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	r := New(nil, clk)
	r.Register("1001")

	clk.Advance(31 * time.Second)
	r.Active(30)

	r.Heartbeat("1001")
	active := r.Active(30)
	if len(active) != 1 {
		t.Fatalf("expected user active again after heartbeat, got %d", len(active))
	}
}

func TestInitiateCallValidatesBothParties(t *testing.T) {
	r := New(nil, nil)
	r.Register("1001")

	if err := r.InitiateCall("1001", "2002"); err == nil {
		t.Fatal("expected error for unregistered callee")
	}
	if err := r.InitiateCall("3003", "1001"); err == nil {
		t.Fatal("expected error for unregistered caller")
	}

	r.Register("2002")
	if err := r.InitiateCall("1001", "2002"); err != nil {
		t.Fatalf("InitiateCall: %v", err)
	}
}

func TestAllReturnsEveryUserRegardlessOfStatus(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	r := New(nil, clk)
	r.Register("1001")
	clk.Advance(31 * time.Second)
	r.Active(30)

	all := r.All()
	if len(all) != 1 {
		t.Fatalf("expected All to include offline user, got %d", len(all))
	}
}
