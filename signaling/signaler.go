// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("signaling: closed")

// Handler receives the raw payload of one frame.
type Handler func(data json.RawMessage)

// Signaler is a client connection to a relay.
type Signaler interface {
	// Send encodes payload as an event frame and transmits it.
	Send(ctx context.Context, event Event, payload any) error

	// OnEvent registers handler for frames of event. Several handlers
	// may be registered for one event; they run in registration order
	// on the client's receive goroutine and must not block.
	OnEvent(event Event, handler Handler)

	// Close disconnects from the relay. The relay tells any room
	// partner with opponent-disconnected.
	Close() error
}

// dispatcher fans received frames out to registered handlers.
type dispatcher struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
}

func (d *dispatcher) OnEvent(event Event, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = make(map[Event][]Handler)
	}
	d.handlers[event] = append(d.handlers[event], handler)
}

// dispatch runs the handlers for frame and reports whether any ran.
func (d *dispatcher) dispatch(frame Frame) bool {
	d.mu.RLock()
	handlers := d.handlers[frame.Event]
	d.mu.RUnlock()
	for _, handler := range handlers {
		handler(frame.Data)
	}
	return len(handlers) > 0
}
