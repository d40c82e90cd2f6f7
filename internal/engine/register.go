package engine

import (
	"net"
	"strconv"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/registry"
	"github.com/arimoto/sipcore/internal/sipmsg"
)

func (e *Engine) handleRegister(peerAddr net.Addr, req *sipmsg.Message) []Datagram {
	callID := extractCallID(req)
	e.emit(audit.StepRegisterRequest, map[string]string{
		"peer":    addrString(peerAddr),
		"call_id": callID,
	})

	ext := userPartFromURI(req.Headers.Get("From"))
	if ext == "" {
		return e.finishRegister(peerAddr, req, badRequest(req))
	}
	if !registry.ValidExtension(ext) {
		return e.finishRegister(peerAddr, req, badRequest(req))
	}

	if _, err := e.reg.Register(ext); err != nil {
		return e.finishRegister(peerAddr, req, badRequest(req))
	}

	resp := buildResponse(req, 200, "OK")
	sipmsg.CopyHeader(resp.Headers, req.Headers, "Contact")
	resp.Headers.Set("Expires", "3600")
	return e.finishRegister(peerAddr, req, resp)
}

func badRequest(req *sipmsg.Message) *sipmsg.Message {
	return buildResponse(req, 400, "Bad Request")
}

func (e *Engine) finishRegister(peerAddr net.Addr, req *sipmsg.Message, resp *sipmsg.Message) []Datagram {
	out := sipmsg.Serialize(resp)
	e.emit(audit.StepRegisterResponse, map[string]string{
		"peer":    addrString(peerAddr),
		"call_id": extractCallID(req),
		"status":  strconv.Itoa(resp.StartLine.StatusCode),
	})
	return []Datagram{{Addr: peerAddr, Data: out}}
}
