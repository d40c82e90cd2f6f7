package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/clock"
)

// addressPoolFirst and addressPoolLast bound the synthetic
// 192.168.100.<n> address pool. Per spec.md §9's design notes, this
// spec adopts the [10, 254] range found in one variant of the source's
// duplicated user_manager.py, not the [1, 254] range found in the other.
const (
	addressPoolFirst = 10
	addressPoolLast  = 254
)

// Registry is the atomic-per-operation in-memory user store. Every
// exported method reads or mutates the user map under the single mutex,
// so a register/heartbeat/reaper-tick is observed as one logical mutation —
// the same coarse-lock discipline the teacher's location.Store uses
// around its TTLStore.
type Registry struct {
	mu    sync.Mutex
	users map[string]*User
	bus   *audit.Bus
	clk   clock.Clock

	nextAddr     int
	usedAddrs    map[string]bool
	offlineFired map[string]bool // debounces USER_TIMED_OUT per transition
}

// New creates an empty registry. bus may be nil, in which case audit
// events are simply not emitted (used by tests that don't care).
func New(bus *audit.Bus, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Registry{
		users:        make(map[string]*User),
		bus:          bus,
		clk:          clk,
		nextAddr:     addressPoolFirst,
		usedAddrs:    make(map[string]bool),
		offlineFired: make(map[string]bool),
	}
}

func (r *Registry) emit(step string, details map[string]string) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(audit.New(r.clk.Now(), step, details))
}

// Register creates a new user on first contact, or refreshes the
// heartbeat (and flips status back online) for an existing one. The
// returned User is a value copy, safe to use outside the lock.
func (r *Registry) Register(extension string) (User, error) {
	if !ValidExtension(extension) {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidExtension, extension)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[extension]; ok {
		existing.LastHeartbeat = r.clk.Now()
		existing.Status = StatusOnline
		delete(r.offlineFired, extension)
		return existing.Clone(), nil
	}

	addr := r.allocateAddress()
	now := r.clk.Now()
	u := &User{
		Extension:       extension,
		InternalAddress: addr,
		SIPPort:         5060 + len(r.users),
		RegisteredAt:    now,
		LastHeartbeat:   now,
		Status:          StatusOnline,
	}
	r.users[extension] = u

	slog.Info("[REGISTRY] Registered", "extension", extension, "address", addr, "port", u.SIPPort)
	return u.Clone(), nil
}

// allocateAddress returns the next free 192.168.100.<n> address, wrapping
// from 254 back to 1 (per spec.md's design note, the wrap target is 1,
// distinct from the pool's first-issued value of 10) and skipping
// addresses already held by a live user. Must be called with mu held.
func (r *Registry) allocateAddress() string {
	for {
		addr := fmt.Sprintf("192.168.100.%d", r.nextAddr)
		r.nextAddr++
		if r.nextAddr > addressPoolLast {
			r.nextAddr = 1
		}
		if !r.usedAddrs[addr] {
			r.usedAddrs[addr] = true
			return addr
		}
	}
}

// Heartbeat refreshes last_heartbeat for extension if it is registered.
// Returns whether a user was found.
func (r *Registry) Heartbeat(extension string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[extension]
	if !ok {
		return false
	}
	old := u.LastHeartbeat
	u.LastHeartbeat = r.clk.Now()
	u.Status = StatusOnline
	delete(r.offlineFired, extension)

	r.emit(audit.StepHeartbeatRcvd, map[string]string{
		"extension": extension,
		"old":       old.Format(time.RFC3339Nano),
		"new":       u.LastHeartbeat.Format(time.RFC3339Nano),
	})
	return true
}

// Active returns a snapshot of users whose heartbeat is within
// timeoutSec. Users exceeding the threshold are flipped to offline as a
// side effect; USER_TIMED_OUT fires at most once per transition so a
// poller calling Active repeatedly doesn't spam the audit log.
func (r *Registry) Active(timeoutSec int) []User {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clk.Now()
	timeout := time.Duration(timeoutSec) * time.Second

	active := make([]User, 0, len(r.users))
	for ext, u := range r.users {
		if now.Sub(u.LastHeartbeat) > timeout {
			if u.Status != StatusOffline {
				u.Status = StatusOffline
				if !r.offlineFired[ext] {
					r.offlineFired[ext] = true
					r.emit(audit.StepUserTimedOut, map[string]string{
						"extension":      ext,
						"last_heartbeat": u.LastHeartbeat.Format(time.RFC3339Nano),
						"timeout_sec":    fmt.Sprint(timeoutSec),
					})
				}
			}
			continue
		}
		active = append(active, u.Clone())
	}
	return active
}

// Get returns a user by extension.
func (r *Registry) Get(extension string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[extension]
	if !ok {
		return User{}, false
	}
	return u.Clone(), true
}

// All returns every known user, active or offline.
func (r *Registry) All() []User {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u.Clone())
	}
	return all
}

// SetBusy marks extension as busy (called by the engine on a dialog's
// first ACK) or clears it back to online (called by the engine on BYE).
func (r *Registry) SetBusy(extension string, busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[extension]
	if !ok {
		return
	}
	if busy {
		u.Status = StatusBusy
		return
	}
	if u.Status == StatusBusy {
		u.Status = StatusOnline
	}
}

// InitiateCall is pure bookkeeping for spec.md §6's initiate_call
// collaborator operation: it validates both parties and emits an audit
// event, but never synthesizes SIP traffic itself.
func (r *Registry) InitiateCall(caller, callee string) error {
	r.mu.Lock()
	_, callerOK := r.users[caller]
	_, calleeOK := r.users[callee]
	r.mu.Unlock()

	if !callerOK {
		return fmt.Errorf("registry: caller %q is not registered", caller)
	}
	if !calleeOK {
		return fmt.Errorf("registry: callee %q is not registered", callee)
	}

	r.emit(audit.StepCallInitiated, map[string]string{
		"caller": caller,
		"callee": callee,
	})
	return nil
}
