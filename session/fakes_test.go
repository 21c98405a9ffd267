// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/peerduel/peerduel/transport"
)

// switchboard stands in for the network between two sessions. It
// builds their peers and connects the newest host peer to the newest
// guest peer once both have finished an offer/answer exchange.
type switchboard struct {
	mu    sync.Mutex
	host  *linkPeer
	guest *linkPeer
	built map[transport.Role]int
}

func newSwitchboard() *switchboard {
	return &switchboard{built: make(map[transport.Role]int)}
}

// newPeer is the sessions' Options.NewPeer.
func (b *switchboard) newPeer(role transport.Role) (transport.Peer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.built[role]++
	peer := &linkPeer{
		board:     b,
		name:      fmt.Sprintf("%s-%d", role, b.built[role]),
		signaling: webrtc.SignalingStateStable,
	}
	if role == transport.RoleHost {
		b.host = peer
	} else {
		b.guest = peer
	}
	return peer, nil
}

// peersBuilt returns how many peers role has been given.
func (b *switchboard) peersBuilt(role transport.Role) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.built[role]
}

// current returns the newest peer built for role.
func (b *switchboard) current(role transport.Role) *linkPeer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if role == transport.RoleHost {
		return b.host
	}
	return b.guest
}

// tryConnect links the current pair if both sides have negotiated.
func (b *switchboard) tryConnect() {
	b.mu.Lock()
	host, guest := b.host, b.guest
	b.mu.Unlock()
	if host == nil || guest == nil {
		return
	}
	if !host.ready() || !guest.ready() {
		return
	}

	host.mu.Lock()
	hostChannel := host.channel
	linked := host.linked
	host.linked = true
	host.mu.Unlock()
	if linked || hostChannel == nil {
		return
	}
	guestChannel := newLinkChannel(hostChannel.label)
	hostChannel.pair(guestChannel)

	for _, peer := range []*linkPeer{host, guest} {
		peer.report(transport.StateConnecting)
		peer.report(transport.StateConnected)
	}
	guest.mu.Lock()
	guest.linked = true
	onDataChannel := guest.onDataChannel
	guest.mu.Unlock()
	if onDataChannel != nil {
		onDataChannel(guestChannel)
	}
	hostChannel.setOpen()
	guestChannel.setOpen()
}

// disconnect drops the link between the current pair. Both sides see
// their data channel close and their connection go disconnected.
func (b *switchboard) disconnect() {
	b.mu.Lock()
	host, guest := b.host, b.guest
	b.mu.Unlock()
	for _, peer := range []*linkPeer{host, guest} {
		peer.mu.Lock()
		channel := peer.channel
		peer.mu.Unlock()
		if channel != nil {
			channel.setClosed()
		}
		peer.report(transport.StateDisconnected)
	}
}

// linkPeer is a transport.Peer that negotiates with strings and
// connects through a switchboard.
type linkPeer struct {
	board *switchboard
	name  string

	mu        sync.Mutex
	signaling webrtc.SignalingState
	remote    bool
	offers    int
	done      bool // completed an offer/answer exchange
	linked    bool
	closed    bool
	channel   *linkChannel
	added     []webrtc.ICECandidateInit

	onCandidate   func(webrtc.ICECandidateInit)
	onState       func(transport.ConnectionState)
	onDataChannel func(transport.DataChannel)
}

var _ transport.Peer = (*linkPeer)(nil)

func (p *linkPeer) CreateOffer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offers++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: fmt.Sprintf("%s-offer-%d", p.name, p.offers)}, nil
}

func (p *linkPeer) CreateAnswer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signaling != webrtc.SignalingStateHaveRemoteOffer {
		return webrtc.SessionDescription{}, errors.New("no remote offer to answer")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.name + "-answer"}, nil
}

func (p *linkPeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	switch desc.Type {
	case webrtc.SDPTypeOffer:
		p.signaling = webrtc.SignalingStateHaveLocalOffer
	case webrtc.SDPTypeAnswer:
		p.signaling = webrtc.SignalingStateStable
		p.done = true
	case webrtc.SDPTypeRollback:
		p.signaling = webrtc.SignalingStateStable
	}
	onCandidate := p.onCandidate
	candidate := webrtc.ICECandidateInit{Candidate: "candidate:" + p.name}
	p.mu.Unlock()

	if desc.Type != webrtc.SDPTypeRollback && onCandidate != nil {
		onCandidate(candidate)
	}
	p.board.tryConnect()
	return nil
}

func (p *linkPeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	p.remote = true
	switch desc.Type {
	case webrtc.SDPTypeOffer:
		p.signaling = webrtc.SignalingStateHaveRemoteOffer
	case webrtc.SDPTypeAnswer:
		p.signaling = webrtc.SignalingStateStable
		p.done = true
	}
	p.mu.Unlock()
	p.board.tryConnect()
	return nil
}

func (p *linkPeer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, candidate)
	return nil
}

func (p *linkPeer) SignalingState() webrtc.SignalingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signaling
}

func (p *linkPeer) HasRemoteDescription() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *linkPeer) CreateDataChannel(label string) (transport.DataChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = newLinkChannel(label)
	return p.channel, nil
}

func (p *linkPeer) OnLocalCandidate(f func(webrtc.ICECandidateInit)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCandidate = f
}

func (p *linkPeer) OnConnectionStateChange(f func(transport.ConnectionState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onState = f
}

func (p *linkPeer) OnNegotiationNeeded(func()) {}

func (p *linkPeer) OnDataChannel(f func(transport.DataChannel)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDataChannel = f
}

func (p *linkPeer) Close() error {
	p.mu.Lock()
	p.closed = true
	channel := p.channel
	p.mu.Unlock()
	if channel != nil {
		channel.setClosed()
	}
	return nil
}

func (p *linkPeer) ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done && !p.closed
}

func (p *linkPeer) report(state transport.ConnectionState) {
	p.mu.Lock()
	onState := p.onState
	p.mu.Unlock()
	if onState != nil {
		onState(state)
	}
}

// remoteCandidates returns the candidates the negotiator added.
func (p *linkPeer) remoteCandidates() []webrtc.ICECandidateInit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), p.added...)
}

// linkChannel is one end of an in-memory data channel. Messages that
// arrive before OnMessage is set are held and delivered in order when
// it is. Callbacks run under the channel's lock; the session's
// callbacks only post to its event loop.
type linkChannel struct {
	label string

	mu        sync.Mutex
	state     webrtc.DataChannelState
	partner   *linkChannel
	inbox     []string
	onOpen    func()
	onMessage func(webrtc.DataChannelMessage)
}

var _ transport.DataChannel = (*linkChannel)(nil)

func newLinkChannel(label string) *linkChannel {
	return &linkChannel{label: label, state: webrtc.DataChannelStateConnecting}
}

func (c *linkChannel) pair(other *linkChannel) {
	c.mu.Lock()
	c.partner = other
	c.mu.Unlock()
	other.mu.Lock()
	other.partner = c
	other.mu.Unlock()
}

func (c *linkChannel) Label() string                        { return c.label }
func (c *linkChannel) BufferedAmount() uint64               { return 0 }
func (c *linkChannel) SetBufferedAmountLowThreshold(uint64) {}
func (c *linkChannel) OnClose(func())                       {}
func (c *linkChannel) OnBufferedAmountLow(func())           {}

func (c *linkChannel) ReadyState() webrtc.DataChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *linkChannel) OnOpen(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpen = f
}

func (c *linkChannel) OnMessage(f func(webrtc.DataChannelMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = f
	for _, text := range c.inbox {
		f(webrtc.DataChannelMessage{IsString: true, Data: []byte(text)})
	}
	c.inbox = nil
}

func (c *linkChannel) SendText(text string) error {
	c.mu.Lock()
	if c.state != webrtc.DataChannelStateOpen || c.partner == nil {
		c.mu.Unlock()
		return errors.New("data channel not open")
	}
	partner := c.partner
	c.mu.Unlock()
	partner.receive(text)
	return nil
}

func (c *linkChannel) Close() error {
	c.setClosed()
	return nil
}

func (c *linkChannel) receive(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == webrtc.DataChannelStateClosed {
		return
	}
	if c.onMessage == nil {
		c.inbox = append(c.inbox, text)
		return
	}
	c.onMessage(webrtc.DataChannelMessage{IsString: true, Data: []byte(text)})
}

func (c *linkChannel) setOpen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = webrtc.DataChannelStateOpen
	if c.onOpen != nil {
		c.onOpen()
	}
}

func (c *linkChannel) setClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = webrtc.DataChannelStateClosed
}
