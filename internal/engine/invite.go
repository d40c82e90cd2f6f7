package engine

import (
	"net"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/dialogstore"
	"github.com/arimoto/sipcore/internal/sipmsg"
)

func (e *Engine) handleInvite(peerAddr net.Addr, req *sipmsg.Message) []Datagram {
	callID := extractCallID(req)
	callerExt := userPartFromURI(req.Headers.Get("From"))
	calleeExt := userPartFromURI(req.Headers.Get("To"))

	e.dialogs.Create(callID, callerExt, calleeExt, peerAddr)

	sdp := sipmsg.ParseSDP(req.Body)
	e.emit(audit.StepDialogIdleToTrying, map[string]string{
		"call_id": callID,
		"codecs":  joinCodecs(sdp.Codecs),
	})

	var out []Datagram

	if _, err := e.dialogs.Transition(callID, dialogstore.StateTrying); err != nil {
		return nil
	}
	out = append(out, Datagram{Addr: peerAddr, Data: sipmsg.Serialize(buildResponse(req, 100, "Trying"))})

	if _, err := e.dialogs.Transition(callID, dialogstore.StateRinging); err != nil {
		return out
	}
	out = append(out, Datagram{Addr: peerAddr, Data: sipmsg.Serialize(buildResponse(req, 180, "Ringing"))})

	if e.cfg.RingDelay <= 0 {
		out = append(out, e.establishCall(callID, peerAddr, req)...)
		return out
	}

	e.timers.Schedule(callID, e.cfg.RingDelay, func() {
		for _, d := range e.establishCall(callID, peerAddr, req) {
			e.output(d)
		}
	})
	return out
}

// establishCall performs the ringing->established transition and
// builds the 200 OK carrying the synthetic SDP answer. Used both
// synchronously (ring_delay_ms == 0) and from the ring-delay timer.
func (e *Engine) establishCall(callID string, peerAddr net.Addr, req *sipmsg.Message) []Datagram {
	if _, err := e.dialogs.Transition(callID, dialogstore.StateEstablished); err != nil {
		return nil
	}
	resp := buildResponse(req, 200, "OK")
	resp.Headers.Set("Content-Type", "application/sdp")
	resp.Body = sipmsg.BuildAnswerSDP(e.cfg.BindAddr)
	return []Datagram{{Addr: peerAddr, Data: sipmsg.Serialize(resp)}}
}

func (e *Engine) handleACK(peerAddr net.Addr, req *sipmsg.Message) []Datagram {
	callID := extractCallID(req)
	d, err := e.dialogs.Lookup(callID)
	if err != nil {
		e.emit(audit.StepUnknownCallID, map[string]string{"call_id": callID, "method": "ACK"})
		return nil
	}

	if d.State != dialogstore.StateEstablished {
		e.emit(audit.StepSpuriousAck, map[string]string{"call_id": callID, "state": string(d.State)})
		return nil
	}

	// This re-enters established->established and itself emits
	// ACK_RECEIVED (see transitionStepName).
	e.dialogs.Transition(callID, dialogstore.StateEstablished)

	first, _ := e.dialogs.MarkACKReceived(callID)
	if first {
		e.reg.SetBusy(d.CallerExt, true)
		e.reg.SetBusy(d.CalleeExt, true)
		e.emit(audit.StepRTPSessionStarted, map[string]string{
			"call_id": callID,
			"codec":   "PCMU/8000",
			"port":    "8000",
		})
	}
	return nil
}

func (e *Engine) handleBYE(peerAddr net.Addr, req *sipmsg.Message) []Datagram {
	callID := extractCallID(req)
	d, err := e.dialogs.Lookup(callID)
	if err != nil {
		e.emit(audit.StepUnknownCallID, map[string]string{"call_id": callID, "method": "BYE"})
		return nil
	}

	e.timers.Cancel(callID)

	if d.State == dialogstore.StateEstablished {
		e.dialogs.Transition(callID, dialogstore.StateTerminating)
	}
	if _, err := e.dialogs.Transition(callID, dialogstore.StateTerminated); err != nil {
		return nil
	}

	e.reg.SetBusy(d.CallerExt, false)
	e.reg.SetBusy(d.CalleeExt, false)
	e.dialogs.Remove(callID)

	resp := buildResponse(req, 200, "OK")
	return []Datagram{{Addr: peerAddr, Data: sipmsg.Serialize(resp)}}
}

func joinCodecs(codecs []string) string {
	if len(codecs) == 0 {
		return ""
	}
	out := codecs[0]
	for _, c := range codecs[1:] {
		out += "," + c
	}
	return out
}
