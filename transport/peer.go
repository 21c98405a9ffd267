// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"github.com/pion/webrtc/v4"
)

// GameDataLabel is the label of the one data channel a session uses.
const GameDataLabel = "game-data"

// gameDataRetransmits bounds SCTP retransmission of a lost message.
const gameDataRetransmits = 3

// Peer is the low-level peer connection a Negotiator drives. PionPeer
// is the production implementation; tests substitute a scripted
// double.
//
// Callbacks registered with the On methods may be invoked from any
// goroutine. Registering replaces the previous callback.
type Peer interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)

	// SetLocalDescription accepts an offer, an answer, or a rollback
	// of an outstanding local offer.
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error

	SignalingState() webrtc.SignalingState
	HasRemoteDescription() bool

	// CreateDataChannel opens the ordered game data channel.
	CreateDataChannel(label string) (DataChannel, error)

	OnLocalCandidate(func(candidate webrtc.ICECandidateInit))
	OnConnectionStateChange(func(state ConnectionState))
	OnNegotiationNeeded(func())
	OnDataChannel(func(channel DataChannel))

	Close() error
}

// DataChannel is the subset of a pion data channel the Channel uses.
// *webrtc.DataChannel implements it directly.
type DataChannel interface {
	Label() string
	ReadyState() webrtc.DataChannelState
	SendText(text string) error
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(threshold uint64)

	OnOpen(func())
	OnClose(func())
	OnBufferedAmountLow(func())
	OnMessage(func(message webrtc.DataChannelMessage))

	Close() error
}

// Compile-time interface check.
var _ DataChannel = (*webrtc.DataChannel)(nil)
