// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/peerduel/peerduel/signaling"
	"github.com/peerduel/peerduel/transport"
)

// subscribe registers a handler for every relay event the session
// consumes. Handlers run on the signaler's goroutine and only post to
// the event loop.
func (s *Session) subscribe() {
	handlers := map[signaling.Event]func(json.RawMessage){
		signaling.EventRoomCreated:          s.replyHandler(signaling.EventRoomCreated),
		signaling.EventRoomJoined:           s.replyHandler(signaling.EventRoomJoined),
		signaling.EventRoomList:             s.replyHandler(signaling.EventRoomList),
		signaling.EventError:                s.handleRelayError,
		signaling.EventGuestJoined:          s.handleGuestJoined,
		signaling.EventOffer:                s.handleOffer,
		signaling.EventAnswer:               s.handleAnswer,
		signaling.EventICECandidate:         s.handleCandidate,
		signaling.EventGameInit:             s.handleGameInit,
		signaling.EventRequestGameInit:      s.handleRequestGameInit,
		signaling.EventOpponentDisconnected: s.handleOpponentDisconnected,
	}
	for event, handle := range handlers {
		s.signaler.OnEvent(event, func(data json.RawMessage) {
			s.loop.Post(func() {
				if !s.closed {
					handle(data)
				}
			})
		})
	}
}

func (s *Session) replyHandler(event signaling.Event) func(json.RawMessage) {
	return func(data json.RawMessage) {
		w := s.takeWaiter(func(w *waiter) bool { return w.expect == event })
		if w == nil {
			s.logger.Debug("unsolicited relay reply", "event", event)
			return
		}
		w.done <- w.accept(data)
	}
}

// handleRelayError fails a pending room request, or reports the error
// to the observer if none is waiting. Only create-room and join-room
// are refused by the relay; errors for forwarded events such as
// request-game-init never belong to a waiter.
func (s *Session) handleRelayError(data json.RawMessage) {
	payload, err := signaling.Decode[signaling.Error](data)
	if err != nil {
		s.logger.Warn("malformed relay error", "error", err)
		return
	}
	relayErr := &payload
	if w := s.takeWaiter(isRoomRequest); w != nil {
		w.done <- relayErr
		return
	}
	s.logger.Warn("relay error", "error", relayErr)
	s.reportError(relayErr)
}

func isRoomRequest(w *waiter) bool {
	return w.expect == signaling.EventRoomCreated || w.expect == signaling.EventRoomJoined
}

func (s *Session) handleGuestJoined(data json.RawMessage) {
	if s.role != transport.RoleHost {
		return
	}
	joined, err := signaling.Decode[signaling.GuestJoined](data)
	if err != nil {
		s.logger.Warn("malformed guest-joined", "error", err)
		return
	}
	s.logger.Info("guest joined", "guest", joined.GuestID)
	s.peerPresent = true
	if s.negotiator == nil || s.negotiator.State().Terminal() {
		s.rebuild("guest joined")
	} else {
		s.negotiator.PeerJoined()
	}
	s.sendGameInit("guest joined")
}

func (s *Session) handleOffer(data json.RawMessage) {
	offer, err := signaling.Decode[signaling.Offer](data)
	if err != nil {
		s.logger.Warn("malformed offer", "error", err)
		return
	}
	if s.negotiator == nil {
		s.logger.Debug("offer outside a negotiation")
		return
	}
	// The host rebuilt its side of a dropped connection and is
	// offering again. Meet it with a fresh peer rather than waiting
	// for the local reconnect timer.
	if s.role == transport.RoleGuest && s.negotiator.State() == transport.StateDisconnected {
		s.rebuild("host offered a new connection")
		if s.negotiator == nil {
			return
		}
	}
	if err := s.negotiator.HandleRemoteOffer(offer.Offer); err != nil {
		s.logger.Warn("handling offer", "error", err)
	}
}

func (s *Session) handleAnswer(data json.RawMessage) {
	answer, err := signaling.Decode[signaling.Answer](data)
	if err != nil {
		s.logger.Warn("malformed answer", "error", err)
		return
	}
	if s.negotiator == nil {
		return
	}
	if err := s.negotiator.HandleRemoteAnswer(answer.Answer); err != nil {
		s.logger.Warn("handling answer", "error", err)
	}
}

func (s *Session) handleCandidate(data json.RawMessage) {
	candidate, err := signaling.Decode[signaling.ICECandidate](data)
	if err != nil {
		s.logger.Warn("malformed ice candidate", "error", err)
		return
	}
	if s.negotiator == nil {
		return
	}
	if err := s.negotiator.HandleRemoteCandidate(candidate.Candidate); err != nil {
		s.logger.Warn("handling ice candidate", "error", err)
	}
}

func (s *Session) handleOpponentDisconnected(json.RawMessage) {
	if !s.role.Valid() {
		return
	}
	s.logger.Info("opponent disconnected")
	switch s.role {
	case transport.RoleHost:
		// Keep the room open for the next guest, who starts from the
		// current state.
		s.peerPresent = false
		if state, ok := s.replica.State(); ok {
			s.initState = state
		}
		if dropped := s.channel.Reset(); dropped > 0 {
			s.logger.Info("dropped envelopes for the departed guest", "count", dropped)
		}
		s.rebuild("guest left")
	case transport.RoleGuest:
		// The relay closed the room with the host.
		s.supervisor.Stop()
		if s.negotiator != nil {
			s.negotiator.Close()
		}
	}
	if s.observer.OnOpponentLeft != nil {
		s.observer.OnOpponentLeft()
	}
}

// connect builds a negotiator around a new peer and starts it in the
// session's role.
func (s *Session) connect() error {
	peer, err := s.newPeer(s.role)
	if err != nil {
		return fmt.Errorf("creating peer connection: %w", err)
	}

	var negotiator *transport.Negotiator
	current := func() bool { return s.negotiator != nil && s.negotiator == negotiator }
	negotiator, err = transport.NewNegotiator(transport.NegotiatorOptions{
		Role: s.role,
		Peer: peer,
		Post: s.loop.Post,
		Callbacks: transport.NegotiatorCallbacks{
			OnLocalDescription: func(desc webrtc.SessionDescription) {
				if current() {
					s.sendDescription(desc)
				}
			},
			OnLocalCandidate: func(candidate webrtc.ICECandidateInit) {
				if current() {
					s.emit(signaling.EventICECandidate, signaling.ICECandidate{RoomID: s.roomID, Candidate: candidate})
				}
			},
			OnConnectionStateChange: func(state transport.ConnectionState) {
				if current() {
					s.handleConnectionState(state)
				}
			},
			OnDataChannel: func(dataChannel transport.DataChannel) {
				if current() {
					s.channel.Attach(dataChannel)
				}
			},
		},
		Logger: s.logger,
	})
	if err != nil {
		peer.Close()
		return fmt.Errorf("creating negotiator: %w", err)
	}
	s.negotiator = negotiator

	if s.role == transport.RoleGuest {
		return negotiator.StartAsResponder()
	}
	if err := negotiator.StartAsInitiator(); err != nil {
		return err
	}
	if s.peerPresent {
		negotiator.PeerJoined()
	}
	return nil
}

// rebuild tears down the current negotiator and builds a new one with
// the same role. The channel and its queue carry over.
func (s *Session) rebuild(reason string) {
	if s.closed || !s.role.Valid() {
		return
	}
	s.logger.Info("rebuilding peer connection", "reason", reason)
	s.supervisor.Stop()
	s.channel.Detach()
	if previous := s.negotiator; previous != nil {
		s.negotiator = nil
		previous.Close()
	}
	s.setConnection(transport.StateNew)
	if err := s.connect(); err != nil {
		s.reportError(err)
	}
}

func (s *Session) sendDescription(desc webrtc.SessionDescription) {
	switch desc.Type {
	case webrtc.SDPTypeOffer:
		s.emit(signaling.EventOffer, signaling.Offer{RoomID: s.roomID, Offer: desc})
	case webrtc.SDPTypeAnswer:
		s.emit(signaling.EventAnswer, signaling.Answer{RoomID: s.roomID, Answer: desc})
	default:
		s.logger.Warn("not relaying session description", "type", desc.Type.String())
	}
}

// handleConnectionState feeds the supervisor before publishing, so a
// published disconnected state always has its rebuild armed.
func (s *Session) handleConnectionState(state transport.ConnectionState) {
	s.supervisor.Observe(state)
	s.setConnection(state)
	if state != transport.StateConnected {
		return
	}
	switch s.role {
	case transport.RoleHost:
		s.sendGameInit("connected")
	case transport.RoleGuest:
		s.after(s.settings.InitRetryDelay, func() { s.requestGameInit(true) })
	}
}

func (s *Session) setConnection(state transport.ConnectionState) {
	if s.connection == state {
		return
	}
	s.connection = state
	s.publish()
	if s.observer.OnConnectionState != nil {
		s.observer.OnConnectionState(state)
	}
}
