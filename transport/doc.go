// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries a game session between two peers over a
// WebRTC data channel.
//
// [Negotiator] runs the offer/answer/candidate exchange for one peer
// connection. Both peers may offer at the same time; the collision is
// resolved by the perfect negotiation rule, keyed on the immutable
// [Role] each side is given when the session is built. The host is
// impolite and keeps its own offer. The guest is polite and rolls its
// offer back in favour of the host's. Remote candidates that arrive
// before a remote description are queued and applied in arrival order
// once one is installed. The host creates the "game-data" channel and
// arms an offer, but only sends it once [Negotiator.PeerJoined]
// reports that a guest is in the room.
//
// The Negotiator drives a [Peer], not a pion PeerConnection directly.
// [PionPeer] is the production implementation; tests script a double
// to exercise collisions and failures without a network.
//
// [Channel] is the ordered message queue on top of the data channel.
// [Envelope] values sent while the data channel is missing, opening or
// above its buffered-amount high water mark are queued, and the queue
// drains front to back when the channel opens or its buffered amount
// falls to the low water mark. Inbound frames that are not valid
// envelopes are dropped with a [DeserializationError].
//
// [Supervisor] watches connection states. A disconnect arms a single
// timer (re-armed by each further disconnect) after which the caller's
// rebuild function replaces the Negotiator and Peer. A failed
// connection is terminal and is reported instead of retried.
//
// None of these types lock. Each is owned by one event loop, and the
// callbacks pion invokes on its own goroutines are posted to that loop
// through the Post function each constructor takes.
package transport
