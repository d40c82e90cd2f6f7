package engine

import (
	"net"

	"github.com/arimoto/sipcore/internal/sipmsg"
)

func (e *Engine) handleOptions(peerAddr net.Addr, req *sipmsg.Message) []Datagram {
	resp := buildResponse(req, 200, "OK")
	resp.Headers.Set("Allow", "INVITE, ACK, BYE, CANCEL, OPTIONS, REGISTER")
	resp.Headers.Set("Accept", "application/sdp")
	return []Datagram{{Addr: peerAddr, Data: sipmsg.Serialize(resp)}}
}
