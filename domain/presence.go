package domain

import (
	"fmt"

	"chatd/errors"
)

// OnlineStatus is a user's availability as shown to other users.
type OnlineStatus int

const (
	// StatusOnline is the default state once a user's first connection
	// authenticates.
	StatusOnline OnlineStatus = iota
	// StatusAfk marks the user as away from keyboard.
	StatusAfk
	// StatusDnd suppresses client notifications.
	StatusDnd
	// StatusAppearOffline shows the user as offline while connected.
	StatusAppearOffline
	// StatusOffline is derived: it is the answer for any user without a live
	// connection and can never be requested by a client. On the wire it is
	// rendered identically to StatusAppearOffline, so other users cannot
	// tell "really offline" from "appearing offline". That asymmetry is
	// intentional.
	StatusOffline
)

// ParseOnlineStatus decodes a client-supplied status string. OFFLINE is not
// in the accepted set: a client that wants to look offline must send
// APPEAR_AS_OFFLINE.
func ParseOnlineStatus(s string) (OnlineStatus, error) {
	switch s {
	case "ONLINE":
		return StatusOnline, nil
	case "AFK":
		return StatusAfk, nil
	case "DND":
		return StatusDnd, nil
	case "APPEAR_AS_OFFLINE":
		return StatusAppearOffline, nil
	default:
		return StatusOffline, fmt.Errorf("%w: unknown online status %q", errors.ErrBadRequest, s)
	}
}

// String renders the status the way it appears on the wire. StatusOffline
// and StatusAppearOffline are indistinguishable here on purpose.
func (s OnlineStatus) String() string {
	switch s {
	case StatusOnline:
		return "ONLINE"
	case StatusAfk:
		return "AFK"
	case StatusDnd:
		return "DND"
	default:
		return "OFFLINE"
	}
}
