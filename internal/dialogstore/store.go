package dialogstore

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/clock"
)

// Store is the coarse-locked, in-memory dialog table. Every public
// method is atomic with respect to every other, matching the registry's
// single-logical-lock discipline.
type Store struct {
	mu      sync.Mutex
	dialogs map[string]*Dialog
	bus     *audit.Bus
	clk     clock.Clock
}

// New creates an empty dialog store. bus may be nil for tests that
// don't inspect audit output.
func New(bus *audit.Bus, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Store{dialogs: make(map[string]*Dialog), bus: bus, clk: clk}
}

func (s *Store) emit(step string, details map[string]string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(audit.New(s.clk.Now(), step, details))
}

// Create inserts a new dialog at StateIdle and returns a copy. It is
// the caller's job to immediately Transition it to StateTrying — Create
// itself performs no state-machine move so its caller controls exactly
// when the idle->trying audit event fires.
func (s *Store) Create(callID, callerExt, calleeExt string, peerAddr net.Addr) Dialog {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &Dialog{
		CallID:    callID,
		CallerExt: callerExt,
		CalleeExt: calleeExt,
		PeerAddr:  peerAddr,
		State:     StateIdle,
		StartedAt: s.clk.Now(),
	}
	s.dialogs[callID] = d
	return d.Clone()
}

// Lookup returns a dialog's current snapshot.
func (s *Store) Lookup(callID string) (Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dialogs[callID]
	if !ok {
		return Dialog{}, fmt.Errorf("%w: %s", ErrUnknownCallID, callID)
	}
	return d.Clone(), nil
}

// Transition attempts to move callID's dialog from its current state to
// to. An illegal edge leaves the dialog untouched, emits
// ILLEGAL_DIALOG_TRANSITION, and returns ErrIllegalTransition. On
// success it stamps AnsweredAt/EndedAt as required by the state reached
// and emits the transition's audit event.
func (s *Store) Transition(callID string, to State) (Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogs[callID]
	if !ok {
		return Dialog{}, fmt.Errorf("%w: %s", ErrUnknownCallID, callID)
	}

	from := d.State
	if !CanTransitionTo(from, to) {
		s.emit(audit.StepIllegalTransition, map[string]string{
			"call_id": callID,
			"from":    string(from),
			"to":      string(to),
		})
		return d.Clone(), fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	now := s.clk.Now()
	switch to {
	case StateEstablished:
		if d.AnsweredAt.IsZero() {
			d.AnsweredAt = now
			d.NegotiatedCodec = "PCMU/8000"
		}
	case StateTerminated:
		d.EndedAt = now
	}
	d.State = to

	s.emit(transitionStepName(from, to), map[string]string{
		"call_id": callID,
		"from":    string(from),
		"to":      string(to),
	})
	return d.Clone(), nil
}

// MarkACKReceived records that the dialog has seen at least one ACK,
// returning whether this was the first (so the engine knows whether to
// also emit RTP_SESSION_STARTED).
func (s *Store) MarkACKReceived(callID string) (first bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dialogs[callID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCallID, callID)
	}
	first = !d.ackReceived
	d.ackReceived = true
	return first, nil
}

// Remove deletes callID's dialog. The engine calls it only once a dialog
// has reached StateTerminated, in the same Ingest call that returns the
// final response to the transport.
func (s *Store) Remove(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dialogs, callID)
}

// IterActive calls fn for every dialog not yet StateTerminated. fn must
// not call back into the store.
func (s *Store) IterActive(fn func(Dialog)) {
	s.mu.Lock()
	snapshot := make([]Dialog, 0, len(s.dialogs))
	for _, d := range s.dialogs {
		if d.State != StateTerminated {
			snapshot = append(snapshot, d.Clone())
		}
	}
	s.mu.Unlock()

	for _, d := range snapshot {
		fn(d)
	}
}

// transitionStepName resolves the audit step name for a from->to edge.
// The forward happy-path edges have dedicated constants; the early-exit
// cancel/timeout edges that skip straight to terminated are named
// generically from the states involved.
func transitionStepName(from, to State) string {
	switch {
	case from == StateIdle && to == StateTrying:
		return audit.StepDialogIdleToTrying
	case from == StateTrying && to == StateRinging:
		return audit.StepDialogTryingToRinging
	case from == StateRinging && to == StateEstablished:
		return audit.StepDialogRingingToEstab
	case from == StateEstablished && to == StateEstablished:
		return audit.StepAckReceived
	case from == StateEstablished && to == StateTerminating:
		return audit.StepDialogEstabToTerminat
	case from == StateTerminating && to == StateTerminated:
		return audit.StepDialogTerminatingToEnd
	default:
		return fmt.Sprintf("DIALOG_%s_TO_%s", strings.ToUpper(string(from)), strings.ToUpper(string(to)))
	}
}
