// Package engine implements the SIP signaling state machine: parsing
// inbound datagrams, mutating the registry and dialog store, and
// producing outbound datagrams. It holds no socket of its own — the
// transport adapter owns I/O and calls Ingest for every inbound
// datagram.
package engine

import (
	"net"
	"time"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/clock"
	"github.com/arimoto/sipcore/internal/dialogstore"
	"github.com/arimoto/sipcore/internal/registry"
	"github.com/arimoto/sipcore/internal/sipmsg"
	"github.com/arimoto/sipcore/internal/timer"
)

// Datagram pairs an outbound payload with its destination.
type Datagram struct {
	Addr net.Addr
	Data []byte
}

// OutputFunc delivers a datagram produced outside of a direct Ingest
// call — specifically, the 200 OK that fires when a ring-delay timer
// expires. The transport adapter supplies this so the engine never
// needs to know how datagrams are actually written to the wire.
type OutputFunc func(Datagram)

// Config carries the subset of the options table that shapes engine
// behavior.
type Config struct {
	BindAddr  string
	RingDelay time.Duration
}

// Engine is the deterministic core described in the specification:
// given its inputs and the clock, its outputs (responses, registry and
// dialog mutations, audit events) are fully determined.
type Engine struct {
	reg     *registry.Registry
	dialogs *dialogstore.Store
	bus     *audit.Bus
	clk     clock.Clock
	timers  *timer.Queue
	cfg     Config
	output  OutputFunc
}

// New builds an Engine. output may be nil in tests that only exercise
// Ingest's direct return value and never trigger a timer-driven
// transition.
func New(reg *registry.Registry, dialogs *dialogstore.Store, bus *audit.Bus, clk clock.Clock, timers *timer.Queue, cfg Config, output OutputFunc) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	if output == nil {
		output = func(Datagram) {}
	}
	return &Engine{reg: reg, dialogs: dialogs, bus: bus, clk: clk, timers: timers, cfg: cfg, output: output}
}

func (e *Engine) emit(step string, details map[string]string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(audit.New(e.clk.Now(), step, details))
}

// Ingest parses and handles one inbound datagram, returning every
// outbound datagram produced as a direct consequence. A malformed
// datagram yields no responses and a DATAGRAM_DROPPED audit event.
func (e *Engine) Ingest(peerAddr net.Addr, datagram []byte) []Datagram {
	msg, err := sipmsg.Parse(datagram)
	if err != nil {
		e.emit(audit.StepDatagramDropped, map[string]string{
			"peer":  addrString(peerAddr),
			"error": err.Error(),
		})
		return nil
	}

	if !msg.StartLine.IsRequest {
		// The engine only ever initiates requests it tracks itself
		// (none, in this scope); unsolicited responses are dropped.
		e.emit(audit.StepDatagramDropped, map[string]string{
			"peer":   addrString(peerAddr),
			"reason": "unexpected response",
		})
		return nil
	}

	switch msg.StartLine.Method {
	case "REGISTER":
		return e.handleRegister(peerAddr, msg)
	case "INVITE":
		return e.handleInvite(peerAddr, msg)
	case "ACK":
		return e.handleACK(peerAddr, msg)
	case "BYE":
		return e.handleBYE(peerAddr, msg)
	case "OPTIONS":
		return e.handleOptions(peerAddr, msg)
	default:
		e.emit(audit.StepDatagramDropped, map[string]string{
			"peer":   addrString(peerAddr),
			"reason": "unsupported method " + msg.StartLine.Method,
		})
		return nil
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
