// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the binary's logger. format is "json" (the default
// when empty) or "text"; level is one of debug, info, warn, error.
func NewLogger(output io.Writer, format, level string) (*slog.Logger, error) {
	var parsed slog.Level
	if level != "" {
		if err := parsed.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	options := &slog.HandlerOptions{Level: parsed}
	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(output, options)), nil
	case "text":
		return slog.New(slog.NewTextHandler(output, options)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want json or text)", format)
	}
}
