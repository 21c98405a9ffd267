// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling carries session descriptions, ICE candidates and
// room bookkeeping between two peers before (and while) their direct
// connection exists.
//
// Every message is a [Frame]: {"event": <name>, "data": <payload>}.
// The payload field names are fixed by the relay protocol and must not
// change; see events.go for the full set.
//
// A [Signaler] sends frames and dispatches received ones to
// per-event handlers. Three implementations exist:
//
//   - [WebSocketClient] talks to a relay over a websocket and redials
//     with exponential backoff when the connection drops.
//   - [NATSClient] exchanges frames through a NATS server with a relay
//     bridged by [MemoryRelay.ServeNATS].
//   - [MemoryClient] is attached directly to an in-process
//     [MemoryRelay], for tests.
//
// [MemoryRelay] is the reference relay: it pairs one host and one
// guest per room and forwards negotiation frames between them.
// [MemoryRelay.ServeWS] exposes it over a websocket; cmd/peerduel-signal
// serves that handler.
package signaling
