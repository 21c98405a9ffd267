// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"log/slog"
	"time"

	"github.com/peerduel/peerduel/lib/clock"
)

// DefaultReconnectDelay is how long a disconnected connection is given
// to recover on its own before it is rebuilt.
const DefaultReconnectDelay = 3 * time.Second

// SupervisorOptions configures NewSupervisor.
type SupervisorOptions struct {
	Clock clock.Clock

	// Delay is the debounce between the last disconnect and the
	// rebuild. Defaults to DefaultReconnectDelay.
	Delay time.Duration

	// Post runs fn on the event loop that owns the Supervisor. Timer
	// callbacks are posted through it.
	Post func(fn func()) bool

	// Rebuild tears down the current peer connection and builds a new
	// one with the same role. Called on the event loop.
	Rebuild func()

	// OnTerminal is called once when the connection fails. Failure is
	// not retried.
	OnTerminal func()

	Logger *slog.Logger
}

// Supervisor watches connection states and rebuilds a connection that
// stays disconnected. Repeated disconnects re-arm one timer, so a
// burst produces a single rebuild timed from the last event.
//
// All methods must be called on the event loop passed in
// SupervisorOptions.Post.
type Supervisor struct {
	clock      clock.Clock
	delay      time.Duration
	post       func(func()) bool
	rebuild    func()
	onTerminal func()
	logger     *slog.Logger

	timer *clock.Timer

	// generation identifies the armed timer. A timer callback that
	// was already posted when its timer was superseded sees a newer
	// generation and does nothing.
	generation uint64

	terminal bool
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(options SupervisorOptions) (*Supervisor, error) {
	if options.Post == nil || options.Rebuild == nil {
		return nil, errors.New("supervisor: post and rebuild functions are required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Delay <= 0 {
		options.Delay = DefaultReconnectDelay
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Supervisor{
		clock:      options.Clock,
		delay:      options.Delay,
		post:       options.Post,
		rebuild:    options.Rebuild,
		onTerminal: options.OnTerminal,
		logger:     options.Logger,
	}, nil
}

// Observe reacts to a connection state transition.
func (s *Supervisor) Observe(state ConnectionState) {
	switch state {
	case StateDisconnected:
		s.arm()
	case StateConnected, StateClosed:
		s.cancel()
	case StateFailed:
		s.cancel()
		if s.terminal {
			return
		}
		s.terminal = true
		s.logger.Warn("peer connection failed; not retrying")
		if s.onTerminal != nil {
			s.onTerminal()
		}
	}
}

// Pending reports whether a rebuild is scheduled.
func (s *Supervisor) Pending() bool { return s.timer != nil }

// Reset clears the terminal flag after the caller has replaced a
// failed connection by other means.
func (s *Supervisor) Reset() {
	s.cancel()
	s.terminal = false
}

// Stop cancels any scheduled rebuild.
func (s *Supervisor) Stop() { s.cancel() }

func (s *Supervisor) arm() {
	s.cancel()
	s.generation++
	generation := s.generation
	s.timer = s.clock.AfterFunc(s.delay, func() {
		s.post(func() { s.fire(generation) })
	})
	s.logger.Info("peer connection disconnected; rebuild scheduled", "delay", s.delay)
}

func (s *Supervisor) cancel() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.generation++
}

func (s *Supervisor) fire(generation uint64) {
	if generation != s.generation || s.timer == nil {
		return
	}
	s.timer = nil
	s.logger.Info("rebuilding peer connection")
	s.rebuild()
}
