// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/peerduel/peerduel/game"
	"github.com/peerduel/peerduel/lib/clock"
	"github.com/peerduel/peerduel/lib/config"
	"github.com/peerduel/peerduel/lib/eventloop"
	"github.com/peerduel/peerduel/signaling"
	"github.com/peerduel/peerduel/transport"
)

var (
	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("session: closed")

	// ErrNotInRoom is returned by game intents before CreateRoom or
	// JoinRoom has succeeded.
	ErrNotInRoom = errors.New("session: not in a room")

	// ErrInRoom is returned by CreateRoom and JoinRoom once the
	// session has a room or a room request is in flight.
	ErrInRoom = errors.New("session: already in a room")

	// ErrConnectionFailed is reported through Observer.OnError when
	// the peer connection fails. Failure is not retried.
	ErrConnectionFailed = errors.New("session: peer connection failed")
)

// signalTimeout bounds each signaling send made from the event loop.
const signalTimeout = 5 * time.Second

// Session is one player's side of a game. Create it with New and
// enter a room with CreateRoom or JoinRoom.
type Session struct {
	userID   string
	signaler signaling.Signaler
	newPeer  func(transport.Role) (transport.Peer, error)
	settings config.SessionConfig
	rules    game.Rules
	source   *rand.ChaCha8
	clock    clock.Clock
	observer Observer
	logger   *slog.Logger

	loop      *eventloop.Loop
	cancel    context.CancelFunc
	closeOnce sync.Once

	// view is the snapshot read by the observable getters.
	view atomic.Pointer[snapshot]

	// The fields below are owned by the event loop.

	role    transport.Role
	roomID  string
	joining bool
	closed  bool

	replica *game.Replica

	// initState is what the host sends as GAME_INIT. It is the dealt
	// state until the first guest leaves, then the state at that
	// moment: envelopes still queued for the departed guest are
	// dropped, so the next guest starts from there.
	initState game.State

	// peerPresent is set on the host while a guest holds the seat.
	peerPresent bool

	negotiator  *transport.Negotiator
	channel     *transport.Channel
	supervisor  *transport.Supervisor
	connection  transport.ConnectionState
	endReported bool

	waiters []*waiter
	timers  []*clock.Timer
}

// snapshot is an immutable copy of the observable fields.
type snapshot struct {
	role        transport.Role
	roomID      string
	connection  transport.ConnectionState
	state       game.State
	initialized bool
	self        game.PlayerID
}

// waiter is a CreateRoom, JoinRoom or ListRooms call waiting for the
// relay's reply. Replies and error events go to the oldest waiter.
type waiter struct {
	expect signaling.Event

	// accept handles the reply payload on the event loop.
	accept func(data json.RawMessage) error
	done   chan error
}

// New creates a session and starts its event loop. The session is
// outside any room until CreateRoom or JoinRoom.
func New(options Options) (*Session, error) {
	if options.Signaler == nil {
		return nil, errors.New("session: signaler is required")
	}
	if options.UserID == "" {
		options.UserID = uuid.NewString()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Rules == (game.Rules{}) {
		options.Rules = game.DefaultRules()
	}
	if err := options.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if options.Source == nil {
		var seed [32]byte
		crand.Read(seed[:])
		options.Source = rand.NewChaCha8(seed)
	}
	if options.NewPeer == nil {
		ice := options.ICE
		options.NewPeer = func(transport.Role) (transport.Peer, error) {
			return transport.NewPionPeer(ice)
		}
	}
	settings := withDefaults(options.Settings)

	s := &Session{
		userID:     options.UserID,
		signaler:   options.Signaler,
		newPeer:    options.NewPeer,
		settings:   settings,
		rules:      options.Rules,
		source:     options.Source,
		clock:      options.Clock,
		observer:   options.Observer,
		logger:     options.Logger.With("user", options.UserID),
		loop:       eventloop.New(),
		connection: transport.StateNew,
	}

	channel, err := transport.NewChannel(transport.ChannelOptions{
		Post:          s.loop.Post,
		HighWaterMark: settings.BufferedAmountHigh,
		LowWaterMark:  settings.BufferedAmountLow,
		OnEnvelope:    s.handleEnvelope,
		Logger:        s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.channel = channel

	supervisor, err := transport.NewSupervisor(transport.SupervisorOptions{
		Clock:      s.clock,
		Delay:      settings.ReconnectDelay,
		Post:       s.loop.Post,
		Rebuild:    func() { s.rebuild("connection stayed disconnected") },
		OnTerminal: func() { s.reportError(ErrConnectionFailed) },
		Logger:     s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.supervisor = supervisor

	s.publish()
	s.subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop.Run(ctx)
	return s, nil
}

// UserID returns the ID this session registers with the relay.
func (s *Session) UserID() string { return s.userID }

// Role returns RoleHost after CreateRoom, RoleGuest after JoinRoom,
// and zero before either.
func (s *Session) Role() transport.Role { return s.view.Load().role }

// RoomID returns the current room, or "" outside a room.
func (s *Session) RoomID() string { return s.view.Load().roomID }

// ConnectionState returns the peer connection's latest state.
func (s *Session) ConnectionState() transport.ConnectionState {
	return s.view.Load().connection
}

// GameState returns the latest game state and whether the game has
// been initialized. The returned State is never modified.
func (s *Session) GameState() (game.State, bool) {
	view := s.view.Load()
	return view.state, view.initialized
}

// IsMyTurn reports whether the game is running and it is this
// player's turn.
func (s *Session) IsMyTurn() bool {
	view := s.view.Load()
	return view.initialized && !view.state.IsOver() && view.state.CurrentPlayer == view.self
}

// CreateRoom asks the relay for a room, deals a new game and waits
// for a guest. It returns the room ID.
func (s *Session) CreateRoom(ctx context.Context) (string, error) {
	var roomID string
	err := s.enterRoom(ctx, signaling.EventCreateRoom, signaling.CreateRoom{UserID: s.userID},
		signaling.EventRoomCreated, func(data json.RawMessage) error {
			created, err := signaling.Decode[signaling.RoomCreated](data)
			if err != nil {
				return err
			}
			roomID = created.RoomID
			return s.host(created.RoomID)
		})
	if err != nil {
		return "", err
	}
	return roomID, nil
}

// JoinRoom takes the guest seat of roomID. The game starts when the
// host's opening state arrives.
func (s *Session) JoinRoom(ctx context.Context, roomID string) error {
	return s.enterRoom(ctx, signaling.EventJoinRoom, signaling.JoinRoom{RoomID: roomID, UserID: s.userID},
		signaling.EventRoomJoined, func(json.RawMessage) error {
			return s.guest(roomID)
		})
}

// ListRooms returns the rooms waiting for a guest.
func (s *Session) ListRooms(ctx context.Context) ([]signaling.RoomInfo, error) {
	var rooms []signaling.RoomInfo
	err := s.request(ctx, signaling.EventGetRooms, signaling.GetRooms{}, signaling.EventRoomList,
		func(data json.RawMessage) error {
			list, err := signaling.Decode[signaling.RoomList](data)
			if err != nil {
				return err
			}
			rooms = list.Rooms
			return nil
		})
	return rooms, err
}

// SendMessage sends envelope to the peer over the data channel. It
// returns false if the envelope was queued instead of sent.
func (s *Session) SendMessage(ctx context.Context, envelope transport.Envelope) (bool, error) {
	var sent bool
	err := s.do(ctx, func() error {
		sent = s.channel.Send(envelope)
		return nil
	})
	return sent, err
}

// EmitSignaling sends an arbitrary event to the relay.
func (s *Session) EmitSignaling(ctx context.Context, event signaling.Event, payload any) error {
	if s.loopStopped() {
		return ErrClosed
	}
	return s.signaler.Send(ctx, event, payload)
}

// Close leaves the room, closes the peer connection and the
// signaler, and stops the event loop. It is idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
		defer cancel()
		s.loop.Do(ctx, s.shutdown)
		err = s.signaler.Close()
		s.cancel()
		<-s.loop.Done()
	})
	return err
}

func (s *Session) shutdown() {
	s.closed = true
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
	s.supervisor.Stop()
	if s.negotiator != nil {
		s.negotiator.Close()
	}
	s.channel.Detach()
	for _, w := range s.waiters {
		w.done <- ErrClosed
	}
	s.waiters = nil
	s.logger.Info("session closed", "room", s.roomID)
}

// enterRoom runs a room request, refusing it if the session already
// has a room or another room request is in flight.
func (s *Session) enterRoom(ctx context.Context, event signaling.Event, payload any,
	expect signaling.Event, accept func(json.RawMessage) error,
) error {
	err := s.do(ctx, func() error {
		if s.role.Valid() || s.joining {
			return ErrInRoom
		}
		s.joining = true
		return nil
	})
	if err != nil {
		return err
	}
	defer s.loop.Post(func() { s.joining = false })
	return s.request(ctx, event, payload, expect, accept)
}

// request sends event and waits for the relay's reply of type expect
// or an error event.
func (s *Session) request(ctx context.Context, event signaling.Event, payload any,
	expect signaling.Event, accept func(json.RawMessage) error,
) error {
	w := &waiter{expect: expect, accept: accept, done: make(chan error, 1)}
	if err := s.do(ctx, func() error {
		s.waiters = append(s.waiters, w)
		return nil
	}); err != nil {
		return err
	}

	if err := s.signaler.Send(ctx, event, payload); err != nil {
		s.loop.Post(func() { s.dropWaiter(w) })
		return err
	}

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		s.loop.Post(func() { s.dropWaiter(w) })
		return ctx.Err()
	case <-s.loop.Done():
		return ErrClosed
	}
}

// do runs fn on the event loop and returns its error. If ctx is done
// before fn starts, fn does not run and do returns ctx.Err().
func (s *Session) do(ctx context.Context, fn func() error) error {
	var fnErr error
	err := s.loop.Do(ctx, func() {
		if s.closed {
			fnErr = ErrClosed
			return
		}
		fnErr = fn()
	})
	if errors.Is(err, eventloop.ErrClosed) {
		return ErrClosed
	}
	if err != nil {
		return err
	}
	return fnErr
}

func (s *Session) loopStopped() bool {
	select {
	case <-s.loop.Done():
		return true
	default:
		return false
	}
}

// host makes this session the host of roomID and deals the game.
func (s *Session) host(roomID string) error {
	state, err := game.NewGame(s.rules, s.source)
	if err != nil {
		return fmt.Errorf("dealing game: %w", err)
	}
	s.role = transport.RoleHost
	s.roomID = roomID
	s.logger = s.logger.With("room", roomID, "role", s.role.String())
	s.replica = game.NewReplica(game.Player1, s.logger)
	s.initState = s.replica.InitializeHost(state)
	s.logger.Info("room created", "game", state.GameID)

	if err := s.connect(); err != nil {
		s.reportError(err)
	}
	s.transitioned(s.initState)
	return nil
}

// guest makes this session the guest of roomID.
func (s *Session) guest(roomID string) error {
	s.role = transport.RoleGuest
	s.roomID = roomID
	s.logger = s.logger.With("room", roomID, "role", s.role.String())
	s.replica = game.NewReplica(game.Player2, s.logger)
	s.logger.Info("room joined")

	if err := s.connect(); err != nil {
		s.reportError(err)
	}
	s.after(s.settings.InitRequestDelay, func() { s.requestGameInit(false) })
	s.publish()
	return nil
}

// after runs fn on the event loop once d has elapsed.
func (s *Session) after(d time.Duration, fn func()) {
	timer := s.clock.AfterFunc(d, func() {
		s.loop.Post(func() {
			if !s.closed {
				fn()
			}
		})
	})
	s.timers = append(s.timers, timer)
}

// emit sends a signaling event from the event loop. Failures are
// logged: the signaler redials on its own and the game init handshake
// retries.
func (s *Session) emit(event signaling.Event, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
	defer cancel()
	if err := s.signaler.Send(ctx, event, payload); err != nil {
		s.logger.Warn("signaling send failed", "event", event, "error", err)
	}
}

func (s *Session) reportError(err error) {
	s.logger.Error("session error", "error", err)
	if s.observer.OnError != nil {
		s.observer.OnError(err)
	}
}

// publish stores a fresh snapshot for the observable getters.
func (s *Session) publish() {
	view := &snapshot{
		role:       s.role,
		roomID:     s.roomID,
		connection: s.connection,
	}
	if s.replica != nil {
		view.state, view.initialized = s.replica.State()
		view.self = s.replica.Self()
	}
	s.view.Store(view)
}

func (s *Session) dropWaiter(target *waiter) {
	for i, w := range s.waiters {
		if w == target {
			s.waiters = append(s.waiters[:i:i], s.waiters[i+1:]...)
			return
		}
	}
}

// takeWaiter removes and returns the oldest waiter for which match
// returns true.
func (s *Session) takeWaiter(match func(*waiter) bool) *waiter {
	for i, w := range s.waiters {
		if match(w) {
			s.waiters = append(s.waiters[:i:i], s.waiters[i+1:]...)
			return w
		}
	}
	return nil
}
