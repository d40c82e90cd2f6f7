package dialogstore

// State is a call's position in the dialog state machine. Names follow
// the specification's own vocabulary rather than a SIP-transaction
// vocabulary (no "early"/"confirmed" here).
type State string

const (
	StateIdle        State = "idle"
	StateTrying      State = "trying"
	StateRinging     State = "ringing"
	StateEstablished State = "established"
	StateTerminating State = "terminating"
	StateTerminated  State = "terminated"
)

// validTransitions enumerates every forward move, plus the two
// same-state and early-exit moves the dialog's lifecycle allows:
// established->established (idempotent ACK) and a BYE arriving before
// the call answered, which cancels straight to terminated, bypassing
// terminating.
var validTransitions = map[State]map[State]bool{
	StateIdle: {
		StateTrying: true,
	},
	StateTrying: {
		StateRinging:    true,
		StateTerminated: true, // BYE/timeout cancels before ringing
	},
	StateRinging: {
		StateEstablished: true,
		StateTerminated:  true, // BYE/timeout cancels before answer
	},
	StateEstablished: {
		StateEstablished: true, // idempotent re-ACK
		StateTerminating: true,
		StateTerminated:  true, // timeout with no BYE
	},
	StateTerminating: {
		StateTerminated: true,
	},
	StateTerminated: {},
}

// CanTransitionTo reports whether moving from to is a legal edge.
func CanTransitionTo(from, to State) bool {
	edges, ok := validTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}
