// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// peerduel plays a two-player card game over a direct peer-to-peer
// connection. A relay introduces the players; the game itself runs
// between them.
//
//	peerduel host              create a room and wait for a guest
//	peerduel join ROOM         join a room
//	peerduel rooms             list rooms waiting for a guest
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/peerduel/peerduel/game"
	"github.com/peerduel/peerduel/lib/config"
	"github.com/peerduel/peerduel/lib/process"
	"github.com/peerduel/peerduel/lib/version"
	"github.com/peerduel/peerduel/session"
	"github.com/peerduel/peerduel/signaling"
	"github.com/peerduel/peerduel/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		name        string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("peerduel", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (default: $"+config.EnvVar+", then built-in defaults)")
	flagSet.StringVar(&name, "name", "", "user ID announced to the relay (default: random)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("peerduel")
		return nil
	}

	args := flagSet.Args()
	if len(args) == 0 {
		printUsage(flagSet)
		return errors.New("missing command")
	}
	switch {
	case args[0] == "join" && len(args) != 2:
		return errors.New("usage: peerduel join ROOM")
	case args[0] != "join" && len(args) != 1:
		return fmt.Errorf("unexpected argument: %s", args[1])
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, err := process.NewLogger(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	if name == "" {
		name = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signaler, err := dialSignaler(ctx, cfg, name, logger)
	if err != nil {
		return fmt.Errorf("connecting to the relay: %w", err)
	}

	out := &console{out: os.Stdout}
	s, err := session.New(session.Options{
		UserID:   name,
		Signaler: signaler,
		ICE:      transport.ICEConfigFromSettings(cfg.ICE),
		Settings: cfg.Session,
		Rules:    game.Rules(cfg.Rules),
		Observer: out.observer(),
		Logger:   logger,
	})
	if err != nil {
		signaler.Close()
		return err
	}
	defer s.Close()
	out.session = s

	switch args[0] {
	case "rooms":
		return listRooms(ctx, s, out)
	case "host":
		roomID, err := s.CreateRoom(ctx)
		if err != nil {
			return fmt.Errorf("creating room: %w", err)
		}
		out.printf("room %s created; waiting for a guest (peerduel join %s)\n", roomID, roomID)
	case "join":
		if err := s.JoinRoom(ctx, args[1]); err != nil {
			return fmt.Errorf("joining room: %w", err)
		}
		out.printf("joined room %s; waiting for the host\n", args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return playConsole(ctx, s, out, os.Stdin)
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `peerduel: a peer-to-peer card duel.

Usage:
  peerduel [flags] host
  peerduel [flags] join ROOM
  peerduel [flags] rooms

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// dialSignaler connects to the relay over the configured transport.
func dialSignaler(ctx context.Context, cfg *config.Config, name string, logger *slog.Logger) (signaling.Signaler, error) {
	policy := signaling.ReconnectPolicy{
		Delay:    cfg.Signaling.Reconnect.Delay,
		MaxDelay: cfg.Signaling.Reconnect.MaxDelay,
		Attempts: cfg.Signaling.Reconnect.Attempts,
	}
	switch cfg.Signaling.Kind {
	case config.SignalingNATS:
		client, err := signaling.ConnectNATS(cfg.Signaling.URL, signaling.NATSOptions{
			Prefix:    cfg.Signaling.SubjectPrefix,
			ClientID:  name,
			Reconnect: policy,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		client, err := signaling.DialWebSocket(ctx, cfg.Signaling.URL, signaling.WebSocketOptions{
			Reconnect: policy,
			Logger:    logger,
			OnReconnect: func() {
				logger.Warn("relay connection restored; the relay no longer knows this player's room")
			},
			OnGiveUp: func(err error) {
				logger.Error("relay connection lost", "error", err)
			},
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func listRooms(ctx context.Context, s *session.Session, out *console) error {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("listing rooms: %w", err)
	}
	if len(rooms) == 0 {
		out.printf("no rooms are waiting for a guest\n")
		return nil
	}
	for _, room := range rooms {
		out.printf("%s  created %s\n", room.ID, room.CreatedAt.Local().Format("15:04:05"))
	}
	return nil
}

// playConsole reads commands from in until quit, end of input or ctx
// is done.
func playConsole(ctx context.Context, s *session.Session, out *console, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			cmd, err := parseCommand(line)
			if err != nil {
				out.printf("%v\n", err)
				continue
			}
			switch cmd.verb {
			case "quit":
				return nil
			case "help":
				out.printf("%s\n", commandHelp)
			case "state":
				out.printState()
			default:
				if err := cmd.apply(ctx, s); err != nil {
					out.printf("%v\n", err)
				}
			}
		}
	}
}

// console serializes output from the command loop and from session
// callbacks.
type console struct {
	mu      sync.Mutex
	out     io.Writer
	session *session.Session
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) printState() {
	state, ok := c.session.GameState()
	if !ok {
		c.printf("the game has not started\n")
		return
	}
	c.printf("%s", renderState(state, selfOf(c.session)))
}

func (c *console) observer() session.Observer {
	return session.Observer{
		OnConnectionState: func(state transport.ConnectionState) {
			c.printf("connection %s\n", state)
		},
		OnGameState: func(state game.State) {
			c.printf("%s", renderState(state, selfOf(c.session)))
		},
		OnGameEnd: func(winner game.PlayerID, totalTurns int) {
			c.printf("game over after %d turns: %s wins\n", totalTurns, winner)
		},
		OnOpponentLeft: func() {
			c.printf("your opponent left\n")
		},
		OnError: func(err error) {
			c.printf("error: %v\n", err)
		},
	}
}

// selfOf returns the seat the session plays.
func selfOf(s *session.Session) game.PlayerID {
	if s != nil && s.Role() == transport.RoleGuest {
		return game.Player2
	}
	return game.Player1
}
