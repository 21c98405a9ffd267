// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/peerduel/peerduel/lib/netutil"
)

// Websocket limits shared by the relay handler and the client.
const (
	maxFrameBytes  = 1 << 20
	writeTimeout   = 10 * time.Second
	pingInterval   = 15 * time.Second
	outboundFrames = 256
)

// WebSocketHandler returns an HTTP handler that upgrades each request
// to a websocket and attaches it to the relay as a new client.
// originPatterns is passed to the websocket library's origin check;
// nil accepts same-origin requests only.
func (r *MemoryRelay) WebSocketHandler(originPatterns []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.serveWS(w, req, originPatterns)
	})
}

func (r *MemoryRelay) serveWS(w http.ResponseWriter, req *http.Request, originPatterns []string) {
	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{OriginPatterns: originPatterns})
	if err != nil {
		r.logger.Warn("websocket accept failed", "remote", req.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	clientID := uuid.NewString()
	send := make(chan Frame, outboundFrames)
	r.Attach(clientID, func(frame Frame) {
		select {
		case send <- frame:
		default:
			r.logger.Warn("dropping frame for slow client", "client", clientID, "event", frame.Event)
		}
	})
	r.logger.Info("websocket client connected", "client", clientID, "remote", req.RemoteAddr)

	// writer
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(pingInterval)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-send:
				data, err := json.Marshal(frame)
				if err != nil {
					r.logger.Error("encoding frame", "client", clientID, "error", err)
					continue
				}
				if err := writeWithTimeout(ctx, conn, data); err != nil {
					cancel()
					return
				}
			case <-ping.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, writeTimeout)
				err := conn.Ping(pingCtx)
				pingCancel()
				if err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// reader
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				r.logger.Warn("websocket read failed", "client", clientID, "error", err)
			}
			break
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			r.logger.Warn("malformed frame", "client", clientID, "error", err)
			continue
		}
		r.Handle(clientID, frame)
	}

	r.Detach(clientID)
	cancel()
	<-writerDone
	conn.Close(websocket.StatusNormalClosure, "bye")
	r.logger.Info("websocket client disconnected", "client", clientID)
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
