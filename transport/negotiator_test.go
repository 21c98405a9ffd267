// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"slices"
	"testing"

	"github.com/pion/webrtc/v4"
)

// negotiatorEvents records a Negotiator's outbound callbacks.
type negotiatorEvents struct {
	descriptions []webrtc.SessionDescription
	candidates   []webrtc.ICECandidateInit
	states       []ConnectionState
	channels     []DataChannel
}

func (e *negotiatorEvents) callbacks() NegotiatorCallbacks {
	return NegotiatorCallbacks{
		OnLocalDescription:      func(desc webrtc.SessionDescription) { e.descriptions = append(e.descriptions, desc) },
		OnLocalCandidate:        func(candidate webrtc.ICECandidateInit) { e.candidates = append(e.candidates, candidate) },
		OnConnectionStateChange: func(state ConnectionState) { e.states = append(e.states, state) },
		OnDataChannel:           func(channel DataChannel) { e.channels = append(e.channels, channel) },
	}
}

func newTestNegotiator(t *testing.T, role Role) (*Negotiator, *fakePeer, *negotiatorEvents) {
	t.Helper()
	peer := newFakePeer(role.String())
	events := &negotiatorEvents{}
	negotiator, err := NewNegotiator(NegotiatorOptions{
		Role:      role,
		Peer:      peer,
		Post:      syncPost,
		Callbacks: events.callbacks(),
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewNegotiator: %v", err)
	}
	return negotiator, peer, events
}

func remoteOffer(sdp string) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
}

func remoteAnswer(sdp string) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
}

func candidate(line string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: line}
}

func TestRolePoliteness(t *testing.T) {
	if RoleHost.Polite() {
		t.Error("host is polite")
	}
	if !RoleGuest.Polite() {
		t.Error("guest is impolite")
	}
	if Role(0).Valid() {
		t.Error("zero role is valid")
	}
}

func TestNewNegotiatorRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		options NegotiatorOptions
	}{
		{"no role", NegotiatorOptions{Peer: newFakePeer("host"), Post: syncPost}},
		{"no peer", NegotiatorOptions{Role: RoleHost, Post: syncPost}},
		{"no post", NegotiatorOptions{Role: RoleHost, Peer: newFakePeer("host")}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewNegotiator(test.options); err == nil {
				t.Fatal("NewNegotiator succeeded")
			}
		})
	}
}

func TestInitiatorDefersOfferUntilPeerJoined(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleHost)

	if err := negotiator.StartAsInitiator(); err != nil {
		t.Fatalf("StartAsInitiator: %v", err)
	}
	if len(events.channels) != 1 || events.channels[0].Label() != GameDataLabel {
		t.Fatalf("data channels = %v, want one %q", events.channels, GameDataLabel)
	}
	if len(events.descriptions) != 0 {
		t.Fatalf("offer made before the peer joined: %v", events.descriptions)
	}

	// The data channel's negotiation-needed signal must not offer
	// into an empty room either.
	peer.onNegotiationNeeded()
	if len(events.descriptions) != 0 {
		t.Fatalf("offer made on negotiation-needed before the peer joined")
	}

	negotiator.PeerJoined()
	if len(events.descriptions) != 1 || events.descriptions[0].Type != webrtc.SDPTypeOffer {
		t.Fatalf("descriptions = %v, want one offer", events.descriptions)
	}
	if peer.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		t.Errorf("signaling state = %s, want have-local-offer", peer.SignalingState())
	}

	// A second join while the offer is outstanding changes nothing.
	negotiator.PeerJoined()
	if len(events.descriptions) != 1 {
		t.Errorf("descriptions = %d, want 1", len(events.descriptions))
	}
}

func TestGuestCannotInitiate(t *testing.T) {
	negotiator, _, _ := newTestNegotiator(t, RoleGuest)
	if err := negotiator.StartAsInitiator(); err == nil {
		t.Fatal("guest StartAsInitiator succeeded")
	}
}

func TestResponderAnswersOffer(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleGuest)
	if err := negotiator.StartAsResponder(); err != nil {
		t.Fatalf("StartAsResponder: %v", err)
	}

	if err := negotiator.HandleRemoteOffer(remoteOffer("host-offer")); err != nil {
		t.Fatalf("HandleRemoteOffer: %v", err)
	}
	if len(events.descriptions) != 1 {
		t.Fatalf("descriptions = %v, want one answer", events.descriptions)
	}
	answer := events.descriptions[0]
	if answer.Type != webrtc.SDPTypeAnswer || answer.SDP != "answer-to-host-offer" {
		t.Errorf("answer = %+v", answer)
	}
	if peer.SignalingState() != webrtc.SignalingStateStable {
		t.Errorf("signaling state = %s, want stable", peer.SignalingState())
	}
}

func TestImpoliteIgnoresCollidingOffer(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleHost)
	negotiator.StartAsInitiator()
	negotiator.PeerJoined()

	if err := negotiator.HandleRemoteOffer(remoteOffer("guest-offer")); err != nil {
		t.Fatalf("HandleRemoteOffer: %v", err)
	}
	if len(events.descriptions) != 1 || events.descriptions[0].SDP != "host-offer-1" {
		t.Fatalf("descriptions = %v, want only the local offer", events.descriptions)
	}
	if peer.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		t.Errorf("signaling state = %s, want the local offer kept", peer.SignalingState())
	}
	if slices.Contains(peer.calls, "set-remote offer") {
		t.Errorf("colliding offer was installed: %v", peer.calls)
	}

	// Candidates belonging to the ignored offer may fail to apply
	// without failing the connection.
	peer.remote = &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "previous-round"}
	peer.addCandidateErr = errors.New("unknown ufrag")
	if err := negotiator.HandleRemoteCandidate(candidate("candidate:for-ignored-offer")); err != nil {
		t.Errorf("HandleRemoteCandidate: %v", err)
	}
	if negotiator.State() == StateFailed {
		t.Error("negotiator failed on a candidate for an ignored offer")
	}
}

func TestPoliteRollsBackForCollidingOffer(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleGuest)
	negotiator.StartAsResponder()

	// The guest starts its own round.
	peer.onNegotiationNeeded()
	if len(events.descriptions) != 1 || events.descriptions[0].Type != webrtc.SDPTypeOffer {
		t.Fatalf("descriptions = %v, want the guest's offer", events.descriptions)
	}

	if err := negotiator.HandleRemoteOffer(remoteOffer("host-offer")); err != nil {
		t.Fatalf("HandleRemoteOffer: %v", err)
	}
	want := []string{"set-local offer", "set-local rollback", "set-remote offer", "set-local answer"}
	if !slices.Equal(peer.calls, want) {
		t.Errorf("calls = %v, want %v", peer.calls, want)
	}
	if len(events.descriptions) != 2 || events.descriptions[1].SDP != "answer-to-host-offer" {
		t.Fatalf("descriptions = %v, want an answer to the host's offer", events.descriptions)
	}
	if peer.SignalingState() != webrtc.SignalingStateStable {
		t.Errorf("signaling state = %s, want stable", peer.SignalingState())
	}
}

// TestSimultaneousOffers wires two negotiators together and has both
// offer before either offer is delivered.
func TestSimultaneousOffers(t *testing.T) {
	host, hostPeer, hostEvents := newTestNegotiator(t, RoleHost)
	guest, guestPeer, guestEvents := newTestNegotiator(t, RoleGuest)

	host.StartAsInitiator()
	guest.StartAsResponder()
	host.PeerJoined()
	guestPeer.onNegotiationNeeded()

	hostOffer := hostEvents.descriptions[0]
	guestOffer := guestEvents.descriptions[0]

	// Cross delivery.
	if err := host.HandleRemoteOffer(guestOffer); err != nil {
		t.Fatalf("host HandleRemoteOffer: %v", err)
	}
	if err := guest.HandleRemoteOffer(hostOffer); err != nil {
		t.Fatalf("guest HandleRemoteOffer: %v", err)
	}

	if len(hostEvents.descriptions) != 1 {
		t.Fatalf("host sent %d descriptions, want only its offer", len(hostEvents.descriptions))
	}
	answer := guestEvents.descriptions[len(guestEvents.descriptions)-1]
	if answer.Type != webrtc.SDPTypeAnswer || answer.SDP != "answer-to-"+hostOffer.SDP {
		t.Fatalf("guest answered %+v, want an answer to the host's offer", answer)
	}

	if err := host.HandleRemoteAnswer(answer); err != nil {
		t.Fatalf("host HandleRemoteAnswer: %v", err)
	}
	if hostPeer.SignalingState() != webrtc.SignalingStateStable || guestPeer.SignalingState() != webrtc.SignalingStateStable {
		t.Errorf("signaling states = %s/%s, want stable/stable", hostPeer.SignalingState(), guestPeer.SignalingState())
	}
	if hostPeer.remote.SDP != answer.SDP {
		t.Errorf("host remote description = %q, want the guest's answer", hostPeer.remote.SDP)
	}
}

func TestCandidatesQueuedUntilRemoteDescription(t *testing.T) {
	negotiator, peer, _ := newTestNegotiator(t, RoleGuest)
	negotiator.StartAsResponder()

	early := []string{"candidate:1", "candidate:2", "candidate:3"}
	for _, line := range early {
		if err := negotiator.HandleRemoteCandidate(candidate(line)); err != nil {
			t.Fatalf("HandleRemoteCandidate(%s): %v", line, err)
		}
	}
	if len(peer.candidates) != 0 {
		t.Fatalf("candidates applied before the remote description: %v", peer.candidates)
	}
	if negotiator.PendingCandidates() != 3 {
		t.Fatalf("pending = %d, want 3", negotiator.PendingCandidates())
	}

	if err := negotiator.HandleRemoteOffer(remoteOffer("host-offer")); err != nil {
		t.Fatalf("HandleRemoteOffer: %v", err)
	}
	if err := negotiator.HandleRemoteCandidate(candidate("candidate:4")); err != nil {
		t.Fatalf("HandleRemoteCandidate: %v", err)
	}

	var applied []string
	for _, c := range peer.candidates {
		applied = append(applied, c.Candidate)
	}
	want := append(early, "candidate:4")
	if !slices.Equal(applied, want) {
		t.Errorf("applied = %v, want %v", applied, want)
	}
	if negotiator.PendingCandidates() != 0 {
		t.Errorf("pending = %d after drain", negotiator.PendingCandidates())
	}
}

func TestStaleAnswerDropped(t *testing.T) {
	negotiator, peer, _ := newTestNegotiator(t, RoleHost)
	negotiator.StartAsInitiator()

	if err := negotiator.HandleRemoteAnswer(remoteAnswer("stale")); err != nil {
		t.Fatalf("HandleRemoteAnswer: %v", err)
	}
	if len(peer.calls) != 0 {
		t.Errorf("stale answer reached the peer: %v", peer.calls)
	}
	if negotiator.State() == StateFailed {
		t.Error("stale answer failed the negotiator")
	}
}

func TestRenegotiationDeferredWhileInFlight(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleHost)
	negotiator.StartAsInitiator()
	negotiator.PeerJoined()

	peer.onNegotiationNeeded()
	if len(events.descriptions) != 1 {
		t.Fatalf("offered again while an offer was outstanding")
	}

	if err := negotiator.HandleRemoteAnswer(remoteAnswer("answer-1")); err != nil {
		t.Fatalf("HandleRemoteAnswer: %v", err)
	}
	if len(events.descriptions) != 2 || events.descriptions[1].SDP != "host-offer-2" {
		t.Fatalf("descriptions = %v, want the deferred offer once stable", events.descriptions)
	}
}

func TestNegotiationFailure(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleGuest)
	negotiator.StartAsResponder()
	peer.setRemoteErr = errors.New("malformed sdp")

	err := negotiator.HandleRemoteOffer(remoteOffer("garbage"))
	var negotiationErr *NegotiationError
	if !errors.As(err, &negotiationErr) {
		t.Fatalf("HandleRemoteOffer error = %v, want *NegotiationError", err)
	}
	if negotiationErr.Op != "set remote offer" {
		t.Errorf("op = %q", negotiationErr.Op)
	}
	if negotiator.State() != StateFailed {
		t.Fatalf("state = %s, want failed", negotiator.State())
	}

	// Failed is terminal: later peer reports and calls do nothing.
	peer.onState(StateConnected)
	if negotiator.State() != StateFailed {
		t.Errorf("state = %s after a late report, want failed", negotiator.State())
	}
	if err := negotiator.HandleRemoteCandidate(candidate("candidate:1")); !errors.Is(err, ErrNegotiatorClosed) {
		t.Errorf("HandleRemoteCandidate after failure = %v, want ErrNegotiatorClosed", err)
	}

	if err := negotiator.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []ConnectionState{StateFailed, StateClosed}
	if !slices.Equal(events.states, want) {
		t.Errorf("states = %v, want %v", events.states, want)
	}
}

func TestOfferFailure(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleHost)
	peer.createOfferErr = errors.New("no transceivers")
	negotiator.StartAsInitiator()
	negotiator.PeerJoined()

	if negotiator.State() != StateFailed {
		t.Errorf("state = %s, want failed", negotiator.State())
	}
	if len(events.descriptions) != 0 {
		t.Errorf("descriptions = %v, want none", events.descriptions)
	}
}

func TestConnectionStateLifecycle(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleHost)
	for _, state := range []ConnectionState{StateConnecting, StateConnected, StateConnected, StateDisconnected, StateConnected} {
		peer.onState(state)
	}
	negotiator.Close()
	negotiator.Close()
	peer.onState(StateConnected)

	want := []ConnectionState{StateConnecting, StateConnected, StateDisconnected, StateConnected, StateClosed}
	if !slices.Equal(events.states, want) {
		t.Errorf("states = %v, want %v", events.states, want)
	}
	if !peer.closed {
		t.Error("peer not closed")
	}
}

func TestLocalCandidatesForwarded(t *testing.T) {
	negotiator, peer, events := newTestNegotiator(t, RoleHost)
	peer.onCandidate(candidate("candidate:local"))
	if len(events.candidates) != 1 || events.candidates[0].Candidate != "candidate:local" {
		t.Fatalf("candidates = %v", events.candidates)
	}

	negotiator.Close()
	peer.onCandidate(candidate("candidate:late"))
	if len(events.candidates) != 1 {
		t.Errorf("candidate forwarded after Close")
	}
}

func TestRemoteDataChannel(t *testing.T) {
	_, peer, events := newTestNegotiator(t, RoleGuest)

	stray := newFakeDataChannel("chat")
	peer.onDataChannel(stray)
	if !stray.closed || len(events.channels) != 0 {
		t.Errorf("unexpected channel not closed (closed=%v, forwarded=%d)", stray.closed, len(events.channels))
	}

	game := newFakeDataChannel(GameDataLabel)
	peer.onDataChannel(game)
	if len(events.channels) != 1 || events.channels[0] != DataChannel(game) {
		t.Errorf("game data channel not forwarded")
	}
}

func TestHandleRemoteDescriptionTypeMismatch(t *testing.T) {
	negotiator, _, _ := newTestNegotiator(t, RoleGuest)
	if err := negotiator.HandleRemoteOffer(remoteAnswer("x")); err == nil {
		t.Error("HandleRemoteOffer accepted an answer")
	}
	if err := negotiator.HandleRemoteAnswer(remoteOffer("x")); err == nil {
		t.Error("HandleRemoteAnswer accepted an offer")
	}
	if negotiator.State() == StateFailed {
		t.Error("a mistyped description failed the negotiator")
	}
}
