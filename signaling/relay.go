// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/peerduel/peerduel/lib/clock"
)

// Deliver sends one frame to a connected client. It must not block
// for long and must not call back into the relay.
type Deliver func(Frame)

// MemoryRelay is an in-memory signaling relay. Each room has a host,
// the client that created it, and at most one guest. Negotiation
// frames from one member are forwarded unchanged to the other.
//
// The relay is transport-agnostic: a transport calls Attach when a
// client connects, Handle for each frame it receives, and Detach when
// the client goes away.
type MemoryRelay struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]Deliver
	rooms   map[string]*relayRoom
}

type relayRoom struct {
	info      RoomInfo
	host      string // client ID
	guest     string // client ID, empty while waiting
	guestUser string
}

// partner returns the other member of the room, if clientID is one.
func (r *relayRoom) partner(clientID string) (string, bool) {
	if clientID == "" {
		return "", false
	}
	switch clientID {
	case r.host:
		return r.guest, true
	case r.guest:
		return r.host, true
	}
	return "", false
}

// delivery is a frame addressed to a client, queued while the relay
// lock is held and sent after it is released.
type delivery struct {
	deliver Deliver
	frame   Frame
}

// NewMemoryRelay creates an empty relay.
func NewMemoryRelay(clk clock.Clock, logger *slog.Logger) *MemoryRelay {
	return &MemoryRelay{
		clock:   clk,
		logger:  logger,
		clients: make(map[string]Deliver),
		rooms:   make(map[string]*relayRoom),
	}
}

// Attach registers a connected client. Reattaching an ID replaces its
// delivery function.
func (r *MemoryRelay) Attach(clientID string, deliver Deliver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[clientID] = deliver
	r.logger.Debug("client attached", "client", clientID)
}

// Detach removes a client. Rooms it hosted are closed and rooms it
// was a guest in reopen; either way the partner receives
// opponent-disconnected.
func (r *MemoryRelay) Detach(clientID string) {
	var out []delivery

	r.mu.Lock()
	delete(r.clients, clientID)
	for id, room := range r.rooms {
		partner, member := room.partner(clientID)
		if !member {
			continue
		}
		if partner != "" {
			out = r.queue(out, partner, EventOpponentDisconnected, OpponentDisconnected{})
		}
		if clientID == room.host {
			delete(r.rooms, id)
			r.logger.Info("room closed", "room", id)
		} else {
			room.guest, room.guestUser = "", ""
			r.logger.Info("guest left room", "room", id)
		}
	}
	r.mu.Unlock()

	r.flush(out)
	r.logger.Debug("client detached", "client", clientID)
}

// Handle processes one frame from clientID.
func (r *MemoryRelay) Handle(clientID string, frame Frame) {
	var out []delivery

	r.mu.Lock()
	if _, attached := r.clients[clientID]; !attached {
		r.mu.Unlock()
		r.logger.Warn("frame from unattached client", "client", clientID, "event", frame.Event)
		return
	}
	out = r.handleLocked(out, clientID, frame)
	r.mu.Unlock()

	r.flush(out)
}

func (r *MemoryRelay) handleLocked(out []delivery, clientID string, frame Frame) []delivery {
	switch frame.Event {
	case EventCreateRoom:
		request, err := Decode[CreateRoom](frame.Data)
		if err != nil {
			return r.queueError(out, clientID, "malformed create-room")
		}
		room := &relayRoom{
			info: RoomInfo{ID: uuid.NewString(), CreatedAt: r.clock.Now().UTC()},
			host: clientID,
		}
		r.rooms[room.info.ID] = room
		r.logger.Info("room created", "room", room.info.ID, "user", request.UserID)
		return r.queue(out, clientID, EventRoomCreated, RoomCreated{RoomID: room.info.ID})

	case EventJoinRoom:
		request, err := Decode[JoinRoom](frame.Data)
		if err != nil {
			return r.queueError(out, clientID, "malformed join-room")
		}
		room, exists := r.rooms[request.RoomID]
		switch {
		case !exists:
			return r.queueError(out, clientID, "room not found")
		case room.host == clientID:
			return r.queueError(out, clientID, "cannot join your own room")
		case room.guest != "":
			return r.queueError(out, clientID, "room is full")
		}
		room.guest, room.guestUser = clientID, request.UserID
		r.logger.Info("guest joined room", "room", room.info.ID, "user", request.UserID)
		out = r.queue(out, clientID, EventRoomJoined, RoomJoined{})
		return r.queue(out, room.host, EventGuestJoined, GuestJoined{GuestID: request.UserID})

	case EventGetRooms:
		return r.queue(out, clientID, EventRoomList, RoomList{Rooms: r.waitingLocked()})

	case EventOffer, EventAnswer, EventICECandidate, EventGameInit, EventRequestGameInit:
		addressed, err := Decode[struct {
			RoomID string `json:"roomId"`
		}](frame.Data)
		if err != nil {
			return r.queueError(out, clientID, "malformed "+string(frame.Event))
		}
		room, exists := r.rooms[addressed.RoomID]
		if !exists {
			return r.queueError(out, clientID, "room not found")
		}
		partner, member := room.partner(clientID)
		if !member {
			return r.queueError(out, clientID, "not a member of this room")
		}
		if partner == "" {
			// Nobody to forward to yet. The host re-sends game-init
			// when a guest joins, and negotiation waits for the guest.
			r.logger.Debug("dropping frame for empty seat", "room", room.info.ID, "event", frame.Event)
			return out
		}
		if deliver, ok := r.clients[partner]; ok {
			out = append(out, delivery{deliver: deliver, frame: frame})
		}
		return out

	default:
		r.logger.Warn("unknown signaling event", "client", clientID, "event", frame.Event)
		return r.queueError(out, clientID, "unknown event "+string(frame.Event))
	}
}

// Rooms returns the rooms waiting for a guest, oldest first.
func (r *MemoryRelay) Rooms() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waitingLocked()
}

func (r *MemoryRelay) waitingLocked() []RoomInfo {
	rooms := []RoomInfo{}
	for _, room := range r.rooms {
		if room.guest == "" {
			rooms = append(rooms, room.info)
		}
	}
	slices.SortFunc(rooms, func(a, b RoomInfo) int {
		if byTime := a.CreatedAt.Compare(b.CreatedAt); byTime != 0 {
			return byTime
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return rooms
}

func (r *MemoryRelay) queue(out []delivery, clientID string, event Event, payload any) []delivery {
	deliver, ok := r.clients[clientID]
	if !ok {
		return out
	}
	frame, err := NewFrame(event, payload)
	if err != nil {
		r.logger.Error("encoding relay frame", "event", event, "error", err)
		return out
	}
	return append(out, delivery{deliver: deliver, frame: frame})
}

func (r *MemoryRelay) queueError(out []delivery, clientID, message string) []delivery {
	return r.queue(out, clientID, EventError, Error{Message: message})
}

func (r *MemoryRelay) flush(out []delivery) {
	for _, d := range out {
		d.deliver(d.frame)
	}
}
