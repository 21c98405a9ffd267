// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pion/webrtc/v4"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// syncPost runs fn immediately, standing in for an event loop when
// the test itself is the only goroutine.
func syncPost(fn func()) bool {
	fn()
	return true
}

// queuedPost collects posted closures so a test can run them later.
type queuedPost struct {
	pending []func()
}

func (q *queuedPost) post(fn func()) bool {
	q.pending = append(q.pending, fn)
	return true
}

func (q *queuedPost) runAll() {
	for len(q.pending) > 0 {
		fn := q.pending[0]
		q.pending = q.pending[1:]
		fn()
	}
}

// fakePeer is a scripted Peer. Its signaling state machine follows the
// offer/answer rules pion enforces; errors can be injected per step.
type fakePeer struct {
	name      string
	signaling webrtc.SignalingState
	remote    *webrtc.SessionDescription
	offers    int

	// calls records each description operation, e.g. "set-local offer".
	calls      []string
	candidates []webrtc.ICECandidateInit
	channels   []*fakeDataChannel
	closed     bool

	createOfferErr  error
	setRemoteErr    error
	addCandidateErr error

	onCandidate         func(webrtc.ICECandidateInit)
	onState             func(ConnectionState)
	onNegotiationNeeded func()
	onDataChannel       func(DataChannel)
}

var _ Peer = (*fakePeer)(nil)

// newFakePeer returns a stable peer whose offers are named after name.
func newFakePeer(name string) *fakePeer {
	return &fakePeer{name: name, signaling: webrtc.SignalingStateStable}
}

var errWrongSignalingState = errors.New("wrong signaling state")

func (p *fakePeer) CreateOffer() (webrtc.SessionDescription, error) {
	if p.createOfferErr != nil {
		return webrtc.SessionDescription{}, p.createOfferErr
	}
	p.offers++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: fmt.Sprintf("%s-offer-%d", p.name, p.offers)}, nil
}

func (p *fakePeer) CreateAnswer() (webrtc.SessionDescription, error) {
	if p.signaling != webrtc.SignalingStateHaveRemoteOffer {
		return webrtc.SessionDescription{}, errWrongSignalingState
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-to-" + p.remote.SDP}, nil
}

func (p *fakePeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	p.calls = append(p.calls, "set-local "+desc.Type.String())
	switch {
	case desc.Type == webrtc.SDPTypeOffer && p.signaling == webrtc.SignalingStateStable:
		p.signaling = webrtc.SignalingStateHaveLocalOffer
	case desc.Type == webrtc.SDPTypeAnswer && p.signaling == webrtc.SignalingStateHaveRemoteOffer:
		p.signaling = webrtc.SignalingStateStable
	case desc.Type == webrtc.SDPTypeRollback && p.signaling == webrtc.SignalingStateHaveLocalOffer:
		p.signaling = webrtc.SignalingStateStable
	default:
		return errWrongSignalingState
	}
	return nil
}

func (p *fakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	p.calls = append(p.calls, "set-remote "+desc.Type.String())
	if p.setRemoteErr != nil {
		return p.setRemoteErr
	}
	switch {
	case desc.Type == webrtc.SDPTypeOffer && p.signaling == webrtc.SignalingStateStable:
		p.signaling = webrtc.SignalingStateHaveRemoteOffer
	case desc.Type == webrtc.SDPTypeAnswer && p.signaling == webrtc.SignalingStateHaveLocalOffer:
		p.signaling = webrtc.SignalingStateStable
	default:
		return errWrongSignalingState
	}
	p.remote = &desc
	return nil
}

func (p *fakePeer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	if p.addCandidateErr != nil {
		return p.addCandidateErr
	}
	p.candidates = append(p.candidates, candidate)
	return nil
}

func (p *fakePeer) SignalingState() webrtc.SignalingState { return p.signaling }
func (p *fakePeer) HasRemoteDescription() bool           { return p.remote != nil }

func (p *fakePeer) CreateDataChannel(label string) (DataChannel, error) {
	channel := newFakeDataChannel(label)
	p.channels = append(p.channels, channel)
	return channel, nil
}

func (p *fakePeer) OnLocalCandidate(f func(webrtc.ICECandidateInit)) { p.onCandidate = f }
func (p *fakePeer) OnConnectionStateChange(f func(ConnectionState))   { p.onState = f }
func (p *fakePeer) OnNegotiationNeeded(f func())                      { p.onNegotiationNeeded = f }
func (p *fakePeer) OnDataChannel(f func(DataChannel))                 { p.onDataChannel = f }

func (p *fakePeer) Close() error {
	p.closed = true
	return nil
}

// fakeDataChannel is a DataChannel whose readiness, buffered amount
// and send failures are set by the test.
type fakeDataChannel struct {
	label     string
	state     webrtc.DataChannelState
	buffered  uint64
	threshold uint64
	sent      []string
	closed    bool

	// failSends makes SendText fail while set.
	failSends bool

	onOpen    func()
	onClose   func()
	onLow     func()
	onMessage func(webrtc.DataChannelMessage)
}

func newFakeDataChannel(label string) *fakeDataChannel {
	return &fakeDataChannel{label: label, state: webrtc.DataChannelStateConnecting}
}

func (d *fakeDataChannel) Label() string                               { return d.label }
func (d *fakeDataChannel) ReadyState() webrtc.DataChannelState         { return d.state }
func (d *fakeDataChannel) BufferedAmount() uint64                      { return d.buffered }
func (d *fakeDataChannel) SetBufferedAmountLowThreshold(t uint64)      { d.threshold = t }
func (d *fakeDataChannel) OnOpen(f func())                             { d.onOpen = f }
func (d *fakeDataChannel) OnClose(f func())                            { d.onClose = f }
func (d *fakeDataChannel) OnBufferedAmountLow(f func())                { d.onLow = f }
func (d *fakeDataChannel) OnMessage(f func(webrtc.DataChannelMessage)) { d.onMessage = f }

func (d *fakeDataChannel) SendText(text string) error {
	if d.state != webrtc.DataChannelStateOpen {
		return errors.New("data channel not open")
	}
	if d.failSends {
		return errors.New("send failed")
	}
	d.sent = append(d.sent, text)
	return nil
}

func (d *fakeDataChannel) Close() error {
	d.closed = true
	d.state = webrtc.DataChannelStateClosed
	return nil
}

// open marks the channel open and fires its open callback.
func (d *fakeDataChannel) open() {
	d.state = webrtc.DataChannelStateOpen
	if d.onOpen != nil {
		d.onOpen()
	}
}

// relieve drops the buffered amount to the threshold and fires the
// low callback.
func (d *fakeDataChannel) relieve() {
	d.buffered = d.threshold
	if d.onLow != nil {
		d.onLow()
	}
}

func (d *fakeDataChannel) deliver(text string) {
	if d.onMessage != nil {
		d.onMessage(webrtc.DataChannelMessage{IsString: true, Data: []byte(text)})
	}
}
