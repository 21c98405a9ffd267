// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventloop runs closures one at a time on a single goroutine.
//
// A peer session reacts to events from several sources: pion's
// internal goroutines (ICE candidates, connection state, data channel
// messages), the signaling client's reader, timers, and the caller's
// own intents. Posting every reaction onto one Loop serializes them in
// arrival order, so session state needs no locks and a local action
// can never interleave with a remote one.
//
// The queue is unbounded: Post never blocks, which keeps pion's
// callback goroutines from stalling behind a slow reaction.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Do when the loop has stopped.
var ErrClosed = errors.New("eventloop: closed")

// Loop is a FIFO of closures executed by Run.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	signal  chan struct{} // capacity 1, coalesces wakeups
	done    chan struct{}
}

// New creates a loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post appends fn to the queue. It returns false if the loop has
// stopped, in which case fn never runs.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and waits for it to finish. If ctx is done before fn
// starts, fn never runs and Do returns ctx.Err(); once fn has started,
// Do waits for it and returns nil. Do must not be called from a
// closure running on the loop, which would deadlock.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var claimed atomic.Bool
	finished := make(chan struct{})
	if !l.Post(func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop may have run fn just before stopping.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		<-finished
		return nil
	}
}

// Run executes queued closures until ctx is cancelled. Closures still
// queued at that point are dropped. Run returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.pending = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.signal:
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil, false
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn, true
}
