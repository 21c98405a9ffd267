// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"
)

// Event names a frame's payload type.
type Event string

const (
	EventCreateRoom           Event = "create-room"
	EventRoomCreated          Event = "room-created"
	EventJoinRoom             Event = "join-room"
	EventRoomJoined           Event = "room-joined"
	EventGuestJoined          Event = "guest-joined"
	EventOffer                Event = "offer"
	EventAnswer               Event = "answer"
	EventICECandidate         Event = "ice-candidate"
	EventGameInit             Event = "game-init"
	EventRequestGameInit      Event = "request-game-init"
	EventOpponentDisconnected Event = "opponent-disconnected"
	EventError                Event = "error"
	EventGetRooms             Event = "get-rooms"
	EventRoomList             Event = "room-list"
)

// CreateRoom asks the relay for a new room hosted by the sender.
type CreateRoom struct {
	UserID string `json:"userId"`
}

// RoomCreated answers CreateRoom.
type RoomCreated struct {
	RoomID string `json:"roomId"`
}

// JoinRoom asks to take the guest seat of a room.
type JoinRoom struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// RoomJoined tells the guest its JoinRoom succeeded.
type RoomJoined struct{}

// GuestJoined tells the host a guest took the seat.
type GuestJoined struct {
	GuestID string `json:"guestId"`
}

// Offer carries a session description offer to the other member of
// a room.
type Offer struct {
	RoomID string                    `json:"roomId"`
	Offer  webrtc.SessionDescription `json:"offer"`
}

// Answer carries a session description answer.
type Answer struct {
	RoomID string                    `json:"roomId"`
	Answer webrtc.SessionDescription `json:"answer"`
}

// ICECandidate carries one trickled ICE candidate.
type ICECandidate struct {
	RoomID    string                  `json:"roomId"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// GameInit carries the host's opening game state. State is opaque to
// the relay.
type GameInit struct {
	RoomID string          `json:"roomId"`
	State  json.RawMessage `json:"state"`
}

// RequestGameInit asks the host to resend GameInit.
type RequestGameInit struct {
	RoomID    string `json:"roomId"`
	Requester string `json:"requester"`
	Retry     bool   `json:"retry,omitempty"`
}

// OpponentDisconnected tells a room member the other member left.
type OpponentDisconnected struct{}

// GetRooms asks for the rooms waiting for a guest.
type GetRooms struct{}

// RoomList answers GetRooms.
type RoomList struct {
	Rooms []RoomInfo `json:"rooms"`
}

// RoomInfo describes a room waiting for a guest.
type RoomInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Error is the payload of an error frame: the relay refused a
// request. It is also returned as a Go error by callers that surface
// it.
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string { return "signaling: " + e.Message }
