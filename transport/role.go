// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Role is a peer's seat in a room, fixed when the session is built.
// The room's creator is the host; the joiner is the guest.
type Role int

const (
	RoleHost Role = iota + 1
	RoleGuest
)

// Polite reports whether this peer yields when both peers offer at
// once. Exactly one side of a pair is polite: the guest.
func (r Role) Polite() bool { return r == RoleGuest }

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Valid reports whether r is one of the two roles.
func (r Role) Valid() bool { return r == RoleHost || r == RoleGuest }

// ConnectionState is the lifecycle of one peer connection.
type ConnectionState string

const (
	StateNew          ConnectionState = "new"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateFailed       ConnectionState = "failed"
	StateClosed       ConnectionState = "closed"
)

// Terminal reports whether no further transition can leave s.
func (s ConnectionState) Terminal() bool { return s == StateFailed || s == StateClosed }

// connectionStateFromPion maps pion's aggregate peer connection state.
// Unknown maps to new.
func connectionStateFromPion(state webrtc.PeerConnectionState) ConnectionState {
	switch state {
	case webrtc.PeerConnectionStateConnecting:
		return StateConnecting
	case webrtc.PeerConnectionStateConnected:
		return StateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return StateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return StateFailed
	case webrtc.PeerConnectionStateClosed:
		return StateClosed
	default:
		return StateNew
	}
}
