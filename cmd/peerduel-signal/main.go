// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// peerduel-signal is the relay that introduces peerduel players. It
// keeps rooms in memory and forwards negotiation messages between the
// two members of a room; game traffic never passes through it.
//
// Clients connect over a websocket at /ws. With relay.nats set, the
// relay also serves clients that reach it through NATS subjects.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/spf13/pflag"

	"github.com/peerduel/peerduel/lib/clock"
	"github.com/peerduel/peerduel/lib/config"
	"github.com/peerduel/peerduel/lib/process"
	"github.com/peerduel/peerduel/lib/version"
	"github.com/peerduel/peerduel/signaling"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("peerduel-signal", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (default: $"+config.EnvVar+", then built-in defaults)")
	flagSet.StringVar(&listen, "listen", "", "HTTP listen address (overrides relay.listen)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("peerduel-signal")
		return nil
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if listen != "" {
		cfg.Relay.Listen = listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, err := process.NewLogger(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relay := signaling.NewMemoryRelay(clock.Real(), logger)

	if cfg.Relay.NATS != "" {
		conn, err := nats.Connect(cfg.Relay.NATS,
			nats.Name("peerduel-signal"),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer conn.Close()
		bridge, err := relay.ServeNATS(conn, cfg.Signaling.SubjectPrefix)
		if err != nil {
			return err
		}
		defer bridge.Stop()
		logger.Info("serving nats clients", "url", cfg.Relay.NATS, "prefix", cfg.Signaling.SubjectPrefix)
	}

	server := &http.Server{
		Addr:              cfg.Relay.Listen,
		Handler:           newRouter(relay, cfg.Relay.OriginPatterns, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", server.Addr, "version", version.Info())
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// newRouter serves the relay's websocket endpoint alongside a health
// check and the list of rooms waiting for a guest.
func newRouter(relay *signaling.MemoryRelay, originPatterns []string, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/ws", gin.WrapH(relay.WebSocketHandler(originPatterns)))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Info()})
	})
	router.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": relay.Rooms()})
	})
	return router
}

// requestLogger logs each request at debug level once it completes.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
