// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subject layout under a prefix P, for a client C:
//
//	P.relay.C   frames from C to the relay
//	P.client.C  frames from the relay to C
//	P.leave.C   C disconnected
func relaySubject(prefix, clientID string) string  { return prefix + ".relay." + clientID }
func clientSubject(prefix, clientID string) string { return prefix + ".client." + clientID }
func leaveSubject(prefix, clientID string) string  { return prefix + ".leave." + clientID }

// Compile-time interface check.
var _ Signaler = (*NATSClient)(nil)

// NATSOptions configures ConnectNATS.
type NATSOptions struct {
	// Prefix is the subject prefix shared with the relay bridge.
	Prefix string

	// ClientID names this client in subjects. Defaults to a random
	// UUID.
	ClientID string

	Reconnect ReconnectPolicy
	Logger    *slog.Logger
}

// NATSClient is a Signaler that reaches the relay through a NATS
// server. Redialing the server is left to nats.go, bounded by the
// same policy the websocket client uses.
type NATSClient struct {
	dispatcher

	conn   *nats.Conn
	sub    *nats.Subscription
	prefix string
	id     string
	logger *slog.Logger

	closeOnce sync.Once
}

// ConnectNATS connects to the NATS server at url and subscribes to
// this client's inbound subject.
func ConnectNATS(url string, options NATSOptions) (*NATSClient, error) {
	if options.Prefix == "" {
		return nil, errors.New("nats signaling: subject prefix is required")
	}
	if options.ClientID == "" {
		options.ClientID = uuid.NewString()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.With("client", options.ClientID)
	policy := options.Reconnect

	conn, err := nats.Connect(url,
		nats.Name("peerduel-"+options.ClientID),
		nats.MaxReconnects(policy.Attempts),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			return policy.Backoff(attempts - 1)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats connection lost", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats connection restored")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", url, err)
	}

	client := &NATSClient{
		conn:   conn,
		prefix: options.Prefix,
		id:     options.ClientID,
		logger: logger,
	}
	client.sub, err = conn.Subscribe(clientSubject(options.Prefix, options.ClientID), func(msg *nats.Msg) {
		frame, err := DecodeFrame(msg.Data)
		if err != nil {
			logger.Warn("dropping malformed signaling frame", "error", err)
			return
		}
		if !client.dispatch(frame) {
			logger.Debug("no handler for signaling event", "event", frame.Event)
		}
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to relay frames: %w", err)
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("flushing nats subscription: %w", err)
	}
	return client, nil
}

// ID returns the client's subject token.
func (c *NATSClient) ID() string { return c.id }

func (c *NATSClient) Send(ctx context.Context, event Event, payload any) error {
	if c.conn.IsClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	if err := c.conn.Publish(relaySubject(c.prefix, c.id), data); err != nil {
		return fmt.Errorf("publishing %s: %w", event, err)
	}
	return nil
}

// Close announces the departure to the relay and drains the
// connection.
func (c *NATSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if publishErr := c.conn.Publish(leaveSubject(c.prefix, c.id), nil); publishErr != nil {
			c.logger.Warn("announcing departure", "error", publishErr)
		}
		err = c.conn.Drain()
	})
	return err
}

// NATSBridge connects a MemoryRelay to NATS clients.
type NATSBridge struct {
	relay  *MemoryRelay
	conn   *nats.Conn
	prefix string
	subs   []*nats.Subscription
}

// ServeNATS subscribes the relay to every client's outbound subjects
// under prefix. A client is attached on its first frame.
func (r *MemoryRelay) ServeNATS(conn *nats.Conn, prefix string) (*NATSBridge, error) {
	bridge := &NATSBridge{relay: r, conn: conn, prefix: prefix}

	frames, err := conn.Subscribe(relaySubject(prefix, "*"), bridge.onFrame)
	if err != nil {
		return nil, fmt.Errorf("subscribing to client frames: %w", err)
	}
	leaves, err := conn.Subscribe(leaveSubject(prefix, "*"), bridge.onLeave)
	if err != nil {
		frames.Unsubscribe()
		return nil, fmt.Errorf("subscribing to client departures: %w", err)
	}
	bridge.subs = []*nats.Subscription{frames, leaves}
	if err := conn.Flush(); err != nil {
		bridge.Stop()
		return nil, fmt.Errorf("flushing nats subscriptions: %w", err)
	}
	return bridge, nil
}

func (b *NATSBridge) onFrame(msg *nats.Msg) {
	clientID := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
	frame, err := DecodeFrame(msg.Data)
	if err != nil {
		b.relay.logger.Warn("malformed frame", "client", clientID, "error", err)
		return
	}

	b.relay.mu.Lock()
	_, attached := b.relay.clients[clientID]
	b.relay.mu.Unlock()
	if !attached {
		subject := clientSubject(b.prefix, clientID)
		b.relay.Attach(clientID, func(frame Frame) {
			data, err := json.Marshal(frame)
			if err != nil {
				b.relay.logger.Error("encoding frame", "client", clientID, "error", err)
				return
			}
			if err := b.conn.Publish(subject, data); err != nil {
				b.relay.logger.Warn("publishing frame", "client", clientID, "error", err)
			}
		})
	}
	b.relay.Handle(clientID, frame)
}

func (b *NATSBridge) onLeave(msg *nats.Msg) {
	b.relay.Detach(msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:])
}

// Stop unsubscribes the bridge. Attached clients stay in the relay.
func (b *NATSBridge) Stop() error {
	var errs []error
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
