// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"context"
	"log/slog"
)

// Replica holds one peer's copy of the game. It is not safe for
// concurrent use; the session drives it from its event loop.
type Replica struct {
	self   PlayerID
	logger *slog.Logger

	state       State
	initialized bool

	// pending holds remote actions received before initialization,
	// in receipt order.
	pending []Action
}

// NewReplica returns an uninitialized replica for the given seat.
func NewReplica(self PlayerID, logger *slog.Logger) *Replica {
	return &Replica{
		self:   self,
		logger: logger.With("player", string(self)),
	}
}

// Self returns the seat this replica acts for.
func (r *Replica) Self() PlayerID { return r.self }

// Initialized reports whether a state has been installed.
func (r *Replica) Initialized() bool { return r.initialized }

// State returns the current state and whether the replica is
// initialized.
func (r *Replica) State() (State, bool) { return r.state, r.initialized }

// Buffered returns the number of remote actions waiting for
// initialization.
func (r *Replica) Buffered() int { return len(r.pending) }

// InitializeHost installs the state the host dealt with NewGame. It
// is Initialize under the name the host's call site reads best with.
func (r *Replica) InitializeHost(state State) State {
	state, _ = r.Initialize(state)
	return state
}

// Initialize installs state and replays any buffered remote actions
// in receipt order. It returns the resulting state and true, or the
// existing state and false if the replica was already initialized; a
// repeated GAME_INIT never overwrites progress.
func (r *Replica) Initialize(state State) (State, bool) {
	if r.initialized {
		r.logger.Debug("ignoring repeated game init", "game", state.GameID)
		return r.state, false
	}
	r.state = state
	r.initialized = true

	pending := r.pending
	r.pending = nil
	for _, action := range pending {
		r.state = Apply(r.state, action)
	}
	r.logger.Info("game initialized",
		"game", state.GameID,
		"replayed", len(pending),
		"fingerprint", r.fingerprint(),
	)
	return r.state, true
}

// ApplyLocal validates action as this replica's own move and applies
// it. On a *ValidationError the state is unchanged and the action must
// not be sent.
func (r *Replica) ApplyLocal(action Action) (State, error) {
	if !r.initialized {
		return r.state, &ValidationError{Action: action.Type, Reason: "the game has not started"}
	}
	if err := Validate(r.state, action, r.self); err != nil {
		return r.state, err
	}
	r.state = Apply(r.state, action)
	r.logTransition("applied local action", action)
	return r.state, nil
}

// ApplyRemote applies an action received from the peer without
// validating it. Before initialization the action is buffered and
// ApplyRemote returns false.
func (r *Replica) ApplyRemote(action Action) (State, bool) {
	if !r.initialized {
		r.pending = append(r.pending, action)
		r.logger.Debug("buffered remote action", "action", action.String(), "buffered", len(r.pending))
		return r.state, false
	}
	r.state = Apply(r.state, action)
	if err := CheckInvariants(r.state); err != nil {
		r.logger.Warn("remote action broke a game invariant",
			"action", action.String(),
			"error", err,
		)
	}
	r.logTransition("applied remote action", action)
	return r.state, true
}

func (r *Replica) logTransition(message string, action Action) {
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	r.logger.Debug(message,
		"action", action.String(),
		"turn", r.state.Turn,
		"fingerprint", r.fingerprint(),
	)
}

func (r *Replica) fingerprint() string {
	fingerprint, err := Fingerprint(r.state)
	if err != nil {
		return "error: " + err.Error()
	}
	return fingerprint
}
