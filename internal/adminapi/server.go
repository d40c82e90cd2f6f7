// Package adminapi provides a thin, headless HTTP surface over the
// registry, dialog store and audit bus so the external collaborator
// described by the specification's Registry/admin interface has
// something to call. It never touches SIP traffic itself.
package adminapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/dialogstore"
	"github.com/arimoto/sipcore/internal/registry"
	"github.com/arimoto/sipcore/internal/sipid"
)

// RegistryProvider is the subset of *registry.Registry the API reads.
type RegistryProvider interface {
	All() []registry.User
	Get(extension string) (registry.User, bool)
}

// DialogProvider is the subset of *dialogstore.Store the API reads.
type DialogProvider interface {
	IterActive(fn func(dialogstore.Dialog))
}

// Server is a headless JSON API; it owns no business logic, only
// read views and a tail of recent audit events.
type Server struct {
	addr      string
	http      *http.Server
	reg       RegistryProvider
	dialogs   DialogProvider
	bus       *audit.Bus
	tail      *tailBuffer
	startTime time.Time
}

// NewServer wires handlers for health, users, dialogs and an audit
// tail. If bus is non-nil, a background subscription feeds the tail
// buffer so /api/v1/audit/tail never blocks a live Next() call.
func NewServer(addr string, reg RegistryProvider, dialogs DialogProvider, bus *audit.Bus) *Server {
	s := &Server{
		addr:      addr,
		reg:       reg,
		dialogs:   dialogs,
		bus:       bus,
		tail:      newTailBuffer(200),
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/users", s.handleUsers)
	mux.HandleFunc("/api/v1/users/", s.handleUserByExtension)
	mux.HandleFunc("/api/v1/dialogs", s.handleDialogs)
	mux.HandleFunc("/api/v1/audit/tail", s.handleAuditTail)

	s.http = &http.Server{Addr: addr, Handler: withRequestID(mux)}
	return s
}

// withRequestID stamps every response with a fresh correlation ID so a
// request can be traced through logs even though this API is otherwise
// stateless.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", sipid.NewCorrelationID())
		next.ServeHTTP(w, r)
	})
}

// Run starts the background audit tail and the HTTP listener, blocking
// until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.bus != nil {
		go s.tailAudit(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[ADMINAPI] listening", "addr", s.addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.http.Close()
	case err := <-errCh:
		return err
	}
}

func (s *Server) tailAudit(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer sub.Close()
	for {
		e, ok := sub.Next(ctx)
		if !ok {
			return
		}
		s.tail.push(e)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.reg.All())
}

func (s *Server) handleUserByExtension(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ext := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	if ext == "" {
		http.Error(w, "extension required", http.StatusBadRequest)
		return
	}
	u, ok := s.reg.Get(ext)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, u)
}

func (s *Server) handleDialogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	active := make([]dialogstore.Dialog, 0)
	s.dialogs.IterActive(func(d dialogstore.Dialog) { active = append(active, d) })
	writeJSON(w, active)
}

func (s *Server) handleAuditTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := 50
	if q := r.URL.Query().Get("n"); q != "" {
		if parsed, err := parsePositiveInt(q); err == nil {
			n = parsed
		}
	}
	writeJSON(w, s.tail.last(n))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[ADMINAPI] encode failed", "error", err)
	}
}
