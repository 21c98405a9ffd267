// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"sync"
)

// Compile-time interface check.
var _ Signaler = (*MemoryClient)(nil)

// MemoryClient is a Signaler attached directly to a MemoryRelay. Frames
// still pass through their JSON encoding, so tests exercise the same
// payloads a network client would send.
type MemoryClient struct {
	dispatcher

	relay *MemoryRelay
	id    string

	mu     sync.Mutex
	closed bool
}

// Connect attaches a new in-process client with the given ID.
func (r *MemoryRelay) Connect(clientID string) *MemoryClient {
	client := &MemoryClient{relay: r, id: clientID}
	r.Attach(clientID, func(frame Frame) { client.dispatch(frame) })
	return client
}

// ID returns the client's relay ID.
func (c *MemoryClient) ID() string { return c.id }

func (c *MemoryClient) Send(ctx context.Context, event Event, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	encoded, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	frame, err := DecodeFrame(encoded)
	if err != nil {
		return err
	}
	c.relay.Handle(c.id, frame)
	return nil
}

func (c *MemoryClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.relay.Detach(c.id)
	return nil
}
