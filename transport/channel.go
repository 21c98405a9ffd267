// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"log/slog"

	"github.com/pion/webrtc/v4"
)

// ChannelOptions configures NewChannel.
type ChannelOptions struct {
	// Post runs fn on the event loop that owns the Channel. Data
	// channel callbacks arrive on pion goroutines and are posted
	// through it.
	Post func(fn func()) bool

	// HighWaterMark defers sends while the data channel has more than
	// this many bytes buffered. Zero disables the check.
	HighWaterMark uint64

	// LowWaterMark is the buffered amount at which deferred sends
	// resume.
	LowWaterMark uint64

	// OnEnvelope receives each well-formed inbound envelope, on the
	// event loop.
	OnEnvelope func(envelope Envelope)

	Logger *slog.Logger
}

// Channel is an ordered message queue over a data channel. Envelopes
// sent while the data channel is missing, not yet open or
// backpressured are queued and delivered in call order once it can
// take them. The queue outlives data channels: after a reconnect the
// new data channel is attached and the queue drains into it.
//
// All methods must be called on the event loop passed in
// ChannelOptions.Post.
type Channel struct {
	post       func(func()) bool
	high, low  uint64
	onEnvelope func(Envelope)
	logger     *slog.Logger

	dataChannel DataChannel

	// queue holds encoded envelopes not yet handed to a data channel,
	// oldest first.
	queue []queuedEnvelope
}

type queuedEnvelope struct {
	kind EnvelopeType
	text string
}

// NewChannel creates a channel with no data channel attached.
func NewChannel(options ChannelOptions) (*Channel, error) {
	if options.Post == nil {
		return nil, errors.New("channel: post function is required")
	}
	if options.HighWaterMark != 0 && options.LowWaterMark >= options.HighWaterMark {
		return nil, errors.New("channel: low water mark must be below the high water mark")
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Channel{
		post:       options.Post,
		high:       options.HighWaterMark,
		low:        options.LowWaterMark,
		onEnvelope: options.OnEnvelope,
		logger:     options.Logger,
	}, nil
}

// Attach binds dataChannel, replacing any previous one. Its open and
// buffered-amount-low events drain the queue; events from a replaced
// data channel are ignored.
func (c *Channel) Attach(dataChannel DataChannel) {
	c.dataChannel = dataChannel
	dataChannel.SetBufferedAmountLowThreshold(c.low)

	dataChannel.OnOpen(func() {
		c.post(func() {
			if c.dataChannel != dataChannel {
				return
			}
			c.logger.Info("data channel open", "label", dataChannel.Label(), "queued", len(c.queue))
			c.drain()
		})
	})
	dataChannel.OnBufferedAmountLow(func() {
		c.post(func() {
			if c.dataChannel == dataChannel {
				c.drain()
			}
		})
	})
	dataChannel.OnClose(func() {
		c.post(func() {
			if c.dataChannel == dataChannel {
				c.logger.Info("data channel closed", "label", dataChannel.Label(), "queued", len(c.queue))
			}
		})
	})
	dataChannel.OnMessage(func(message webrtc.DataChannelMessage) {
		data := message.Data
		c.post(func() {
			if c.dataChannel == dataChannel {
				c.receive(data)
			}
		})
	})

	// The data channel may have opened before its callbacks were set.
	c.drain()
}

// Detach drops the current data channel. Queued envelopes are kept
// for the next one.
func (c *Channel) Detach() {
	c.dataChannel = nil
}

// Send transmits envelope now if the data channel can take it and
// nothing is queued ahead of it. Otherwise envelope is queued and Send
// returns false. Queueing is not a failure.
func (c *Channel) Send(envelope Envelope) bool {
	encoded, err := EncodeEnvelope(envelope)
	if err != nil {
		c.logger.Error("encoding envelope", "type", envelope.Type, "error", err)
		return false
	}
	message := queuedEnvelope{kind: envelope.Type, text: string(encoded)}

	if len(c.queue) == 0 && c.transmit(message) {
		return true
	}
	c.queue = append(c.queue, message)
	c.logger.Debug("envelope queued", "type", envelope.Type, "queued", len(c.queue))
	return false
}

// Queued returns the number of envelopes waiting to be sent.
func (c *Channel) Queued() int { return len(c.queue) }

// Reset discards every queued envelope and returns how many were
// dropped. Used when the remote player changes and queued messages
// were meant for the previous one.
func (c *Channel) Reset() int {
	dropped := len(c.queue)
	c.queue = nil
	return dropped
}

// drain sends queued envelopes front to back and stops at the first
// one the data channel cannot take, leaving it at the front.
func (c *Channel) drain() {
	sent := 0
	for sent < len(c.queue) && c.transmit(c.queue[sent]) {
		sent++
	}
	if sent == 0 {
		return
	}
	c.queue = c.queue[sent:]
	if len(c.queue) == 0 {
		c.queue = nil
	}
	c.logger.Debug("queue drained", "sent", sent, "queued", len(c.queue))
}

// transmit hands message to the data channel if it is open and below
// the high water mark.
func (c *Channel) transmit(message queuedEnvelope) bool {
	dataChannel := c.dataChannel
	if dataChannel == nil || dataChannel.ReadyState() != webrtc.DataChannelStateOpen {
		return false
	}
	if c.high != 0 && dataChannel.BufferedAmount() > c.high {
		return false
	}
	if err := dataChannel.SendText(message.text); err != nil {
		c.logger.Warn("data channel send failed", "type", message.kind, "error", err)
		return false
	}
	return true
}

func (c *Channel) receive(data []byte) {
	envelope, err := DecodeEnvelope(data)
	if err != nil {
		c.logger.Warn("dropping inbound message", "error", err)
		return
	}
	if c.onEnvelope != nil {
		c.onEnvelope(envelope)
	}
}
