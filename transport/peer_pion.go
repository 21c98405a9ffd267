// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Compile-time interface check.
var _ Peer = (*PionPeer)(nil)

// PionPeer adapts a pion PeerConnection to Peer. Candidates trickle:
// each one is reported as it is gathered rather than folded into the
// session description.
type PionPeer struct {
	connection *webrtc.PeerConnection
}

// NewPionPeer creates a PeerConnection configured by config.
func NewPionPeer(config ICEConfig) (*PionPeer, error) {
	settingEngine := webrtc.SettingEngine{}
	if config.IncludeLoopback {
		// Two peers on one machine with no other interface can only
		// reach each other over loopback.
		settingEngine.SetIncludeLoopbackCandidate(true)
	}

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	connection, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers:           config.Servers,
		ICECandidatePoolSize: config.CandidatePoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating peer connection: %w", err)
	}
	return &PionPeer{connection: connection}, nil
}

func (p *PionPeer) CreateOffer() (webrtc.SessionDescription, error) {
	return p.connection.CreateOffer(nil)
}

func (p *PionPeer) CreateAnswer() (webrtc.SessionDescription, error) {
	return p.connection.CreateAnswer(nil)
}

func (p *PionPeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	return p.connection.SetLocalDescription(desc)
}

func (p *PionPeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.connection.SetRemoteDescription(desc)
}

func (p *PionPeer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.connection.AddICECandidate(candidate)
}

func (p *PionPeer) SignalingState() webrtc.SignalingState {
	return p.connection.SignalingState()
}

func (p *PionPeer) HasRemoteDescription() bool {
	return p.connection.RemoteDescription() != nil
}

func (p *PionPeer) CreateDataChannel(label string) (DataChannel, error) {
	ordered := true
	retransmits := uint16(gameDataRetransmits)
	channel, err := p.connection.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &retransmits,
	})
	if err != nil {
		return nil, fmt.Errorf("creating data channel %s: %w", label, err)
	}
	return channel, nil
}

func (p *PionPeer) OnLocalCandidate(f func(webrtc.ICECandidateInit)) {
	p.connection.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		// nil marks the end of gathering.
		if candidate != nil {
			f(candidate.ToJSON())
		}
	})
}

func (p *PionPeer) OnConnectionStateChange(f func(ConnectionState)) {
	p.connection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		f(connectionStateFromPion(state))
	})
}

func (p *PionPeer) OnNegotiationNeeded(f func()) {
	p.connection.OnNegotiationNeeded(f)
}

func (p *PionPeer) OnDataChannel(f func(DataChannel)) {
	p.connection.OnDataChannel(func(channel *webrtc.DataChannel) {
		f(channel)
	})
}

func (p *PionPeer) Close() error {
	return p.connection.Close()
}
