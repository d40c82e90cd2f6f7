// Package registry implements the in-memory user registry: extension ->
// synthetic endpoint mapping, heartbeat-driven liveness, and the offline
// reaper. Adapted from the teacher's internal/signaling/location.Store,
// replacing its multi-binding TTL-eviction model (bindings expire and are
// removed) with spec's never-remove, status-flips-to-offline model.
package registry

import (
	"errors"
	"regexp"
	"time"
)

// Status is the materialized liveness/call-membership state of a User.
type Status string

const (
	StatusOnline  Status = "online"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
)

// ErrInvalidExtension is returned when an extension fails the
// ^[0-9]{3,}$ shape required by spec.md §4.2.
var ErrInvalidExtension = errors.New("registry: invalid extension")

var extensionPattern = regexp.MustCompile(`^[0-9]{3,}$`)

// ValidExtension reports whether ext matches the required shape.
func ValidExtension(ext string) bool {
	return extensionPattern.MatchString(ext)
}

// User is a registered SIP endpoint. InternalAddress and SIPPort are
// assigned once, at first registration, and never reassigned while the
// record exists.
type User struct {
	Extension       string
	InternalAddress string
	SIPPort         int
	RegisteredAt    time.Time
	LastHeartbeat   time.Time
	Status          Status
}

// Clone returns a value copy safe to hand to callers outside the lock.
func (u *User) Clone() User {
	return *u
}
