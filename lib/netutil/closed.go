// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection errors.
package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"nhooyr.io/websocket"
)

// IsExpectedCloseError reports whether err is a normal end of a
// connection rather than a failure worth logging: EOF, a closed
// connection, a broken pipe or reset, a cancelled context, or a
// websocket close frame with a normal or going-away status.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
