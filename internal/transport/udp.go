// Package transport owns the UDP socket and drives the engine. It is
// the only component that touches the network; everything else in the
// server is pure given its inputs and the clock.
package transport

import (
	"context"
	"log/slog"
	"net"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/clock"
	"github.com/arimoto/sipcore/internal/engine"
)

// Ingester is the subset of *engine.Engine the adapter depends on.
type Ingester interface {
	Ingest(peerAddr net.Addr, datagram []byte) []engine.Datagram
}

// Server binds a single UDP socket and pumps datagrams through an
// Ingester. Responses returned by Ingest are written from the read loop
// before the next read; datagrams passed to Deliver are written on the
// caller's goroutine.
type Server struct {
	conn             *net.UDPConn
	eng              Ingester
	bus              *audit.Bus
	clk              clock.Clock
	maxDatagramBytes int
}

// NewServer binds bindAddr and returns a Server ready to Run. bus may
// be nil in tests that don't inspect DATAGRAM_DROPPED/SHUTDOWN events.
func NewServer(bindAddr string, eng Ingester, bus *audit.Bus, clk clock.Clock, maxDatagramBytes int) (*Server, error) {
	if clk == nil {
		clk = clock.Real{}
	}
	if maxDatagramBytes <= 0 {
		maxDatagramBytes = 2048
	}
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{conn: conn, eng: eng, bus: bus, clk: clk, maxDatagramBytes: maxDatagramBytes}, nil
}

// LocalAddr returns the bound address, useful when bindAddr used a
// wildcard or ephemeral port.
func (s *Server) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Server) emit(step string, details map[string]string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(audit.New(s.clk.Now(), step, details))
}

// Run reads datagrams until ctx is cancelled, handing each to the
// engine and writing back whatever it returns. On cancellation it
// closes the socket, emits a final SHUTDOWN audit event, and returns.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		s.emit(audit.StepShutdown, nil)
		s.conn.Close()
	}()

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, s.maxDatagramBytes)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("[TRANSPORT] read error", "error", err)
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		if n >= s.maxDatagramBytes {
			s.emit(audit.StepDatagramDropped, map[string]string{
				"peer":   peer.String(),
				"reason": "oversize, truncated to max_datagram_bytes",
			})
		}

		outs := s.eng.Ingest(peer, datagram)
		for _, out := range outs {
			s.write(out)
		}
	}
}

// Deliver writes a datagram produced outside the read loop — the
// ring-delay timer's deferred 200 OK is the only current source. Safe
// to call concurrently with Run.
func (s *Server) Deliver(d engine.Datagram) {
	s.write(d)
}

func (s *Server) write(d engine.Datagram) {
	udpAddr, ok := d.Addr.(*net.UDPAddr)
	if !ok {
		return
	}
	if _, err := s.conn.WriteToUDP(d.Data, udpAddr); err != nil {
		slog.Warn("[TRANSPORT] write error, retrying once", "peer", udpAddr.String(), "error", err)
		if _, err := s.conn.WriteToUDP(d.Data, udpAddr); err != nil {
			s.emit(audit.StepDatagramDropped, map[string]string{
				"peer":   udpAddr.String(),
				"reason": "write failed after retry: " + err.Error(),
			})
		}
	}
}
