package dialogstore

import (
	"net"
	"time"
)

// Dialog is a single call's record, keyed by its Call-ID. Fields beyond
// CallID are mutated only through Store.Transition and
// Store.MarkACKReceived; callers never write to a Dialog obtained from
// Lookup.
type Dialog struct {
	CallID    string
	CallerExt string
	CalleeExt string
	PeerAddr  net.Addr

	State State

	StartedAt  time.Time
	AnsweredAt time.Time
	EndedAt    time.Time

	NegotiatedCodec string

	// ackReceived is internal bookkeeping, read through MarkACKReceived,
	// that lets the engine fire RTP_SESSION_STARTED only once; it is
	// unexported, so callers holding a Clone cannot read it.
	ackReceived bool
}

// Clone returns a value copy safe to read without holding the store's
// lock.
func (d *Dialog) Clone() Dialog {
	return *d
}
