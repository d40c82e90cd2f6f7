package audit

import (
	"time"

	"github.com/google/uuid"
)

// Step names emitted by the registry, dialog store and engine. Naming
// mirrors the teacher's SCREAMING_SNAKE event-subject convention.
const (
	StepRegisterRequest  = "REGISTER_REQUEST"
	StepRegisterResponse = "REGISTER_RESPONSE"
	StepHeartbeatRcvd    = "HEARTBEAT_RECEIVED"
	StepUserTimedOut     = "USER_TIMED_OUT"
	StepCallInitiated    = "CALL_INITIATED"

	StepDialogIdleToTrying     = "DIALOG_IDLE_TO_TRYING"
	StepDialogTryingToRinging  = "DIALOG_TRYING_TO_RINGING"
	StepDialogRingingToEstab   = "DIALOG_RINGING_TO_ESTABLISHED"
	StepDialogEstabToTerminat  = "DIALOG_ESTABLISHED_TO_TERMINATING"
	StepDialogTerminatingToEnd = "DIALOG_TERMINATING_TO_TERMINATED"
	StepDialogTimeout          = "DIALOG_TIMEOUT"
	StepAckReceived            = "ACK_RECEIVED"
	StepRTPSessionStarted      = "RTP_SESSION_STARTED"
	StepSpuriousAck            = "SPURIOUS_ACK"
	StepIllegalTransition      = "ILLEGAL_DIALOG_TRANSITION"

	StepUnknownCallID   = "UNKNOWN_CALL_ID"
	StepDatagramDropped = "DATAGRAM_DROPPED"
	StepAuditOverflow   = "AUDIT_OVERFLOW"
	StepShutdown        = "SHUTDOWN"
)

// Event is an immutable, timestamped step record. Once constructed via
// New, its fields are never mutated — consumers may hold onto a pointer
// without a copy.
type Event struct {
	EventID   string
	Timestamp time.Time
	StepName  string
	Details   map[string]string
}

// New builds an Event stamped with now and a fresh event ID. details may
// be nil; a nil map is normalized to an empty one so consumers can range
// over it unconditionally.
func New(now time.Time, step string, details map[string]string) Event {
	if details == nil {
		details = map[string]string{}
	}
	return Event{
		EventID:   uuid.New().String(),
		Timestamp: now,
		StepName:  step,
		Details:   details,
	}
}
