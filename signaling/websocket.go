// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/peerduel/peerduel/lib/clock"
	"github.com/peerduel/peerduel/lib/netutil"
)

// Compile-time interface check.
var _ Signaler = (*WebSocketClient)(nil)

// ErrNotConnected is returned by Send while the client is redialing.
var ErrNotConnected = errors.New("signaling: not connected")

// WebSocketOptions configures DialWebSocket.
type WebSocketOptions struct {
	Reconnect ReconnectPolicy

	// Clock times the redial backoff. Defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger

	// OnReconnect is called after a dropped connection is redialed.
	// The relay sees the new connection as a new client: any room
	// membership was lost with the old one.
	OnReconnect func()

	// OnGiveUp is called once when redialing is exhausted. The client
	// is closed by then.
	OnGiveUp func(err error)
}

// WebSocketClient is a Signaler over a websocket connection to a
// relay.
type WebSocketClient struct {
	dispatcher

	url     string
	options WebSocketOptions
	logger  *slog.Logger

	ctx    context.Context // cancelled by Close
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	conn *websocket.Conn // nil while redialing
}

// DialWebSocket connects to the relay at url. The first dial must
// succeed; later drops are redialed per options.Reconnect.
func DialWebSocket(ctx context.Context, url string, options WebSocketOptions) (*WebSocketClient, error) {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	conn, err := dialRelay(ctx, url)
	if err != nil {
		return nil, err
	}

	lifetime, cancel := context.WithCancel(context.Background())
	client := &WebSocketClient{
		url:     url,
		options: options,
		logger:  options.Logger.With("relay", url),
		ctx:     lifetime,
		cancel:  cancel,
		done:    make(chan struct{}),
		conn:    conn,
	}
	go client.run(conn)
	return client, nil
}

func dialRelay(ctx context.Context, url string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing signaling relay %s: %w", url, err)
	}
	conn.SetReadLimit(maxFrameBytes)
	return conn, nil
}

// run reads frames until the connection drops, then redials.
func (c *WebSocketClient) run(conn *websocket.Conn) {
	defer close(c.done)
	for {
		err := c.readLoop(conn)
		if c.ctx.Err() != nil {
			return
		}
		if netutil.IsExpectedCloseError(err) {
			c.logger.Info("signaling connection closed by the relay", "error", err)
		} else {
			c.logger.Warn("signaling connection lost", "error", err)
		}

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		conn, err = c.redial()
		if err != nil {
			c.logger.Error("giving up on signaling relay", "error", err)
			c.cancel()
			if c.options.OnGiveUp != nil {
				c.options.OnGiveUp(err)
			}
			return
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.logger.Info("signaling connection restored")
		if c.options.OnReconnect != nil {
			c.options.OnReconnect()
		}
	}
}

func (c *WebSocketClient) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			return err
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			c.logger.Warn("dropping malformed signaling frame", "error", err)
			continue
		}
		if !c.dispatch(frame) {
			c.logger.Debug("no handler for signaling event", "event", frame.Event)
		}
	}
}

func (c *WebSocketClient) redial() (*websocket.Conn, error) {
	policy := c.options.Reconnect
	lastErr := errors.New("reconnection disabled")
	for attempt := range policy.Attempts {
		select {
		case <-c.options.Clock.After(policy.Backoff(attempt)):
		case <-c.ctx.Done():
			return nil, c.ctx.Err()
		}
		conn, err := dialRelay(c.ctx, c.url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.logger.Warn("signaling redial failed", "attempt", attempt+1, "attempts", policy.Attempts, "error", err)
	}
	return nil, lastErr
}

func (c *WebSocketClient) Send(ctx context.Context, event Event, payload any) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	if err := writeWithTimeout(ctx, conn, data); err != nil {
		return fmt.Errorf("sending %s: %w", event, err)
	}
	return nil
}

// Close disconnects and stops redialing.
func (c *WebSocketClient) Close() error {
	c.cancel()
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		// Cancelling the read already tore the connection down; the
		// close handshake is best effort.
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}
	<-c.done
	return nil
}
