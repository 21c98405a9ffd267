// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pion/webrtc/v4"
)

// NegotiationError wraps a failed session description or candidate
// operation. A Negotiator that returns one has moved to StateFailed.
type NegotiationError struct {
	// Op names the failed step, e.g. "create offer".
	Op  string
	Err error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation: %s: %v", e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// ErrNegotiatorClosed is returned by operations on a closed
// Negotiator.
var ErrNegotiatorClosed = errors.New("negotiator closed")

// NegotiatorCallbacks are the Negotiator's outbound events. All are
// invoked on the Negotiator's event loop. Nil callbacks are skipped.
type NegotiatorCallbacks struct {
	// OnLocalDescription is called with each offer or answer to relay
	// to the remote peer.
	OnLocalDescription func(desc webrtc.SessionDescription)

	// OnLocalCandidate is called with each gathered ICE candidate.
	OnLocalCandidate func(candidate webrtc.ICECandidateInit)

	// OnConnectionStateChange is called on every state transition.
	OnConnectionStateChange func(state ConnectionState)

	// OnDataChannel is called with the game data channel: the one
	// created by StartAsInitiator, or the one the remote peer opened.
	OnDataChannel func(channel DataChannel)
}

// NegotiatorOptions configures NewNegotiator.
type NegotiatorOptions struct {
	Role Role
	Peer Peer

	// Post runs fn on the event loop that owns the Negotiator. Peer
	// callbacks arrive on pion goroutines and are posted through it.
	Post func(fn func()) bool

	Callbacks NegotiatorCallbacks
	Logger    *slog.Logger
}

// Negotiator runs offer/answer/candidate exchange for one peer
// connection with the perfect negotiation collision rule: when both
// sides offer at once, the polite side rolls its offer back and
// answers, and the impolite side ignores the inbound offer.
//
// All methods must be called on the event loop passed in
// NegotiatorOptions.Post. A Negotiator is single use: once failed or
// closed, build a new one around a new Peer.
type Negotiator struct {
	role      Role
	peer      Peer
	post      func(func()) bool
	callbacks NegotiatorCallbacks
	logger    *slog.Logger

	state ConnectionState

	// peerPresent is set once the remote peer is known to be in the
	// room. No offer is made before then.
	peerPresent bool

	// wantOffer records an offer that could not be made yet: armed by
	// StartAsInitiator or requested by the peer's negotiation-needed
	// signal.
	wantOffer bool

	// makingOffer is true between creating an offer and installing it.
	makingOffer bool

	// ignoreOffer is true while the last inbound offer was discarded
	// as the losing side of a collision. Candidate failures for that
	// offer are expected and not fatal.
	ignoreOffer bool

	// pending holds remote candidates that arrived before any remote
	// description, in arrival order.
	pending []webrtc.ICECandidateInit
}

// NewNegotiator wires the Peer's callbacks onto the event loop.
func NewNegotiator(options NegotiatorOptions) (*Negotiator, error) {
	if !options.Role.Valid() {
		return nil, fmt.Errorf("negotiator: invalid role %v", options.Role)
	}
	if options.Peer == nil {
		return nil, errors.New("negotiator: peer is required")
	}
	if options.Post == nil {
		return nil, errors.New("negotiator: post function is required")
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	n := &Negotiator{
		role:      options.Role,
		peer:      options.Peer,
		post:      options.Post,
		callbacks: options.Callbacks,
		logger:    options.Logger.With("role", options.Role.String()),
		state:     StateNew,
	}

	n.peer.OnLocalCandidate(func(candidate webrtc.ICECandidateInit) {
		n.post(func() { n.handleLocalCandidate(candidate) })
	})
	n.peer.OnConnectionStateChange(func(state ConnectionState) {
		n.post(func() { n.setState(state) })
	})
	n.peer.OnNegotiationNeeded(func() {
		n.post(n.handleNegotiationNeeded)
	})
	n.peer.OnDataChannel(func(channel DataChannel) {
		n.post(func() { n.handleRemoteDataChannel(channel) })
	})
	return n, nil
}

// Role returns the role fixed at construction.
func (n *Negotiator) Role() Role { return n.role }

// State returns the current connection state.
func (n *Negotiator) State() ConnectionState { return n.state }

// PendingCandidates returns the number of remote candidates waiting
// for a remote description.
func (n *Negotiator) PendingCandidates() int { return len(n.pending) }

// StartAsInitiator creates the game data channel and arms an offer.
// The offer is made once PeerJoined reports the remote peer. Only the
// host initiates.
func (n *Negotiator) StartAsInitiator() error {
	if n.state.Terminal() {
		return ErrNegotiatorClosed
	}
	if n.role != RoleHost {
		return fmt.Errorf("negotiator: the %s cannot initiate", n.role)
	}

	channel, err := n.peer.CreateDataChannel(GameDataLabel)
	if err != nil {
		return n.fail("create data channel", err)
	}
	if n.callbacks.OnDataChannel != nil {
		n.callbacks.OnDataChannel(channel)
	}

	n.wantOffer = true
	n.maybeOffer()
	return nil
}

// StartAsResponder waits for the remote peer's offer. The remote peer
// is present by definition: it is the one offering.
func (n *Negotiator) StartAsResponder() error {
	if n.state.Terminal() {
		return ErrNegotiatorClosed
	}
	n.peerPresent = true
	return nil
}

// PeerJoined marks the remote peer present and makes any offer that
// was waiting for it.
func (n *Negotiator) PeerJoined() {
	if n.state.Terminal() {
		return
	}
	n.peerPresent = true
	n.maybeOffer()
}

// HandleRemoteOffer applies the collision rule to an inbound offer
// and, if it is accepted, answers it.
func (n *Negotiator) HandleRemoteOffer(desc webrtc.SessionDescription) error {
	if n.state.Terminal() {
		return ErrNegotiatorClosed
	}
	if desc.Type != webrtc.SDPTypeOffer {
		return fmt.Errorf("negotiator: expected an offer, got %s", desc.Type)
	}
	n.peerPresent = true

	collision := n.makingOffer || n.peer.SignalingState() != webrtc.SignalingStateStable
	n.ignoreOffer = collision && !n.role.Polite()
	if n.ignoreOffer {
		n.logger.Info("ignoring colliding offer")
		return nil
	}

	if collision {
		n.logger.Info("rolling back local offer for colliding remote offer")
		if err := n.peer.SetLocalDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeRollback}); err != nil {
			return n.fail("roll back local offer", err)
		}
	}

	if err := n.peer.SetRemoteDescription(desc); err != nil {
		return n.fail("set remote offer", err)
	}
	if err := n.drainCandidates(); err != nil {
		return err
	}

	answer, err := n.peer.CreateAnswer()
	if err != nil {
		return n.fail("create answer", err)
	}
	if err := n.peer.SetLocalDescription(answer); err != nil {
		return n.fail("set local answer", err)
	}
	n.logger.Debug("answering remote offer")
	if n.callbacks.OnLocalDescription != nil {
		n.callbacks.OnLocalDescription(answer)
	}

	n.maybeOffer()
	return nil
}

// HandleRemoteAnswer installs the answer to an outstanding local
// offer. An answer with no offer outstanding is stale and dropped.
func (n *Negotiator) HandleRemoteAnswer(desc webrtc.SessionDescription) error {
	if n.state.Terminal() {
		return ErrNegotiatorClosed
	}
	if desc.Type != webrtc.SDPTypeAnswer {
		return fmt.Errorf("negotiator: expected an answer, got %s", desc.Type)
	}
	if state := n.peer.SignalingState(); state != webrtc.SignalingStateHaveLocalOffer {
		n.logger.Warn("dropping answer with no outstanding offer", "signaling_state", state.String())
		return nil
	}

	if err := n.peer.SetRemoteDescription(desc); err != nil {
		return n.fail("set remote answer", err)
	}
	if err := n.drainCandidates(); err != nil {
		return err
	}

	// Back to stable: make any offer that was deferred while this
	// round was in flight.
	n.maybeOffer()
	return nil
}

// HandleRemoteCandidate applies a remote candidate, or queues it until
// a remote description is installed.
func (n *Negotiator) HandleRemoteCandidate(candidate webrtc.ICECandidateInit) error {
	if n.state.Terminal() {
		return ErrNegotiatorClosed
	}
	if !n.peer.HasRemoteDescription() {
		n.pending = append(n.pending, candidate)
		return nil
	}
	return n.addCandidate(candidate)
}

// Close tears down the peer connection. It is idempotent.
func (n *Negotiator) Close() error {
	if n.state == StateClosed {
		return nil
	}
	n.pending = nil
	err := n.peer.Close()
	n.setState(StateClosed)
	return err
}

// maybeOffer makes a deferred offer if the remote peer is present and
// no negotiation is in flight.
func (n *Negotiator) maybeOffer() {
	if n.state.Terminal() || !n.wantOffer || !n.peerPresent || n.makingOffer {
		return
	}
	if n.peer.SignalingState() != webrtc.SignalingStateStable {
		return
	}

	n.wantOffer = false
	n.makingOffer = true
	defer func() { n.makingOffer = false }()

	offer, err := n.peer.CreateOffer()
	if err != nil {
		n.fail("create offer", err)
		return
	}
	if err := n.peer.SetLocalDescription(offer); err != nil {
		n.fail("set local offer", err)
		return
	}
	n.logger.Debug("sending offer")
	if n.callbacks.OnLocalDescription != nil {
		n.callbacks.OnLocalDescription(offer)
	}
}

func (n *Negotiator) drainCandidates() error {
	pending := n.pending
	n.pending = nil
	for _, candidate := range pending {
		if err := n.addCandidate(candidate); err != nil {
			return err
		}
	}
	return nil
}

func (n *Negotiator) addCandidate(candidate webrtc.ICECandidateInit) error {
	err := n.peer.AddICECandidate(candidate)
	if err == nil {
		return nil
	}
	if n.ignoreOffer {
		n.logger.Debug("dropping candidate for ignored offer", "error", err)
		return nil
	}
	return n.fail("add candidate", err)
}

func (n *Negotiator) handleNegotiationNeeded() {
	if n.state.Terminal() {
		return
	}
	n.wantOffer = true
	n.maybeOffer()
}

func (n *Negotiator) handleLocalCandidate(candidate webrtc.ICECandidateInit) {
	if n.state.Terminal() {
		return
	}
	if n.callbacks.OnLocalCandidate != nil {
		n.callbacks.OnLocalCandidate(candidate)
	}
}

func (n *Negotiator) handleRemoteDataChannel(channel DataChannel) {
	if n.state.Terminal() {
		return
	}
	if channel.Label() != GameDataLabel {
		n.logger.Warn("closing unexpected data channel", "label", channel.Label())
		channel.Close()
		return
	}
	if n.callbacks.OnDataChannel != nil {
		n.callbacks.OnDataChannel(channel)
	}
}

// setState records a transition. Failed and closed are final, except
// that Close may follow failed.
func (n *Negotiator) setState(state ConnectionState) {
	if state == n.state {
		return
	}
	if n.state == StateClosed || (n.state == StateFailed && state != StateClosed) {
		return
	}
	n.logger.Info("connection state changed", "from", string(n.state), "state", string(state))
	n.state = state
	if n.callbacks.OnConnectionStateChange != nil {
		n.callbacks.OnConnectionStateChange(state)
	}
}

// fail wraps err, logs it and moves to StateFailed.
func (n *Negotiator) fail(op string, err error) error {
	negotiationErr := &NegotiationError{Op: op, Err: err}
	n.logger.Error("negotiation failed", "error", negotiationErr)
	n.setState(StateFailed)
	return negotiationErr
}
