package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/arimoto/sipcore/internal/clock"
)

// DefaultTickInterval and DefaultTimeoutSeconds mirror the original
// source's hardcoded 30-second liveness window; the tick rate itself
// isn't specified there, so 5s is chosen to keep offline detection
// responsive without polling excessively.
const (
	DefaultTickInterval   = 5 * time.Second
	DefaultTimeoutSeconds = 30
)

// Reaper periodically calls Registry.Active to flip stale users
// offline; the USER_TIMED_OUT audit events are emitted by Active as a
// side effect. It owns no state of its own beyond
// its schedule.
type Reaper struct {
	reg      *Registry
	clk      clock.Clock
	interval time.Duration
	timeout  int
}

// NewReaper builds a reaper that ticks at interval and considers a
// user stale after timeoutSec seconds without a heartbeat.
func NewReaper(reg *Registry, clk clock.Clock, interval time.Duration, timeoutSec int) *Reaper {
	if clk == nil {
		clk = clock.Real{}
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if timeoutSec <= 0 {
		timeoutSec = DefaultTimeoutSeconds
	}
	return &Reaper{reg: reg, clk: clk, interval: interval, timeout: timeoutSec}
}

// Run blocks, ticking until ctx is cancelled. Intended to be launched
// in its own goroutine by the caller.
func (rp *Reaper) Run(ctx context.Context) {
	slog.Info("[REAPER] starting", "interval", rp.interval, "timeout_sec", rp.timeout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("[REAPER] stopping")
			return
		case <-rp.clk.After(rp.interval):
			rp.reg.Active(rp.timeout)
		}
	}
}
