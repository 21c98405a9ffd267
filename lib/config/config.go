// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads the config path
// from.
const EnvVar = "PEERDUEL_CONFIG"

// Signaling transport kinds.
const (
	SignalingWebSocket = "websocket"
	SignalingNATS      = "nats"
)

// Config is the master configuration for peerduel.
type Config struct {
	// Log configures the slog handler built by the binaries.
	Log LogConfig `yaml:"log"`

	// Signaling configures the connection to the signaling relay.
	Signaling SignalingConfig `yaml:"signaling"`

	// ICE configures connectivity servers for the peer connection.
	ICE ICEConfig `yaml:"ice"`

	// Session configures the timers and buffer marks of a game session.
	Session SessionConfig `yaml:"session"`

	// Rules configures how the host deals a new game.
	Rules RulesConfig `yaml:"rules"`

	// Relay configures the development signaling relay.
	Relay RelayConfig `yaml:"relay"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	// Format is "json" or "text".
	// Default: json
	Format string `yaml:"format"`

	// Level is a slog level name: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// SignalingConfig configures the signaling client.
type SignalingConfig struct {
	// Kind is "websocket" or "nats".
	// Default: websocket
	Kind string `yaml:"kind"`

	// URL is the relay's websocket endpoint or the NATS server URL.
	// Default: ${PEERDUEL_SIGNAL_URL:-ws://localhost:3001/ws}
	URL string `yaml:"url"`

	// SubjectPrefix prefixes every NATS subject. Unused for websocket.
	// Default: peerduel
	SubjectPrefix string `yaml:"subject_prefix"`

	// Reconnect bounds how the client redials after losing the relay.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig is an exponential backoff: Delay doubles after each
// failed attempt up to MaxDelay, for at most Attempts attempts.
type ReconnectConfig struct {
	// Default: 1s
	Delay time.Duration `yaml:"delay"`

	// Default: 5s
	MaxDelay time.Duration `yaml:"max_delay"`

	// Default: 5
	Attempts int `yaml:"attempts"`
}

// ICEConfig configures ICE servers.
type ICEConfig struct {
	// Servers are STUN/TURN servers offered to the peer connection.
	// Default: Google's two public STUN servers
	Servers []ICEServer `yaml:"servers"`

	// CandidatePoolSize is how many candidates to gather before an
	// offer is made.
	// Default: 10
	CandidatePoolSize uint8 `yaml:"candidate_pool_size"`

	// IncludeLoopback gathers loopback candidates, for two peers on
	// one host with no other interface.
	// Default: false
	IncludeLoopback bool `yaml:"include_loopback"`
}

// ICEServer is one STUN or TURN server.
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// SessionConfig configures a game session.
type SessionConfig struct {
	// ReconnectDelay is how long a disconnected peer connection is
	// given to recover before it is rebuilt.
	// Default: 3s
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// InitRequestDelay is how long a guest waits after joining before
	// asking the host for the game state.
	// Default: 1s
	InitRequestDelay time.Duration `yaml:"init_request_delay"`

	// InitRetryDelay is how long after the connection comes up a
	// still-uninitialized guest asks again.
	// Default: 2s
	InitRetryDelay time.Duration `yaml:"init_retry_delay"`

	// BufferedAmountHigh defers sends while the data channel holds
	// more than this many unsent bytes.
	// Default: 1 MiB
	BufferedAmountHigh uint64 `yaml:"buffered_amount_high"`

	// BufferedAmountLow is the threshold at which deferred sends
	// resume.
	// Default: 256 KiB
	BufferedAmountLow uint64 `yaml:"buffered_amount_low"`
}

// RulesConfig holds the setup constants for a new game. Its fields
// mirror game.Rules so the two convert directly.
type RulesConfig struct {
	StartingHealth  int `yaml:"starting_health"`
	StartingMana    int `yaml:"starting_mana"`
	StartingMaxMana int `yaml:"starting_max_mana"`
	HandSize        int `yaml:"hand_size"`
	DeckCreatures   int `yaml:"deck_creatures"`
	DeckSpells      int `yaml:"deck_spells"`
}

// RelayConfig configures peerduel-signal.
type RelayConfig struct {
	// Listen is the HTTP listen address.
	// Default: :3001
	Listen string `yaml:"listen"`

	// OriginPatterns lists the browser origins allowed to open the
	// websocket, as host patterns. Empty allows only same-origin
	// requests.
	OriginPatterns []string `yaml:"origin_patterns"`

	// NATS, when set, is a NATS server URL. The relay then also serves
	// clients that reach it through NATS subjects under
	// signaling.subject_prefix.
	NATS string `yaml:"nats"`
}

// Default returns the default configuration. It is the base every file
// is loaded over, so a file only needs the values it changes.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Signaling: SignalingConfig{
			Kind:          SignalingWebSocket,
			URL:           "${PEERDUEL_SIGNAL_URL:-ws://localhost:3001/ws}",
			SubjectPrefix: "peerduel",
			Reconnect: ReconnectConfig{
				Delay:    time.Second,
				MaxDelay: 5 * time.Second,
				Attempts: 5,
			},
		},
		ICE: ICEConfig{
			Servers: []ICEServer{
				{URLs: []string{"stun:stun.l.google.com:19302"}},
				{URLs: []string{"stun:stun1.l.google.com:19302"}},
			},
			CandidatePoolSize: 10,
		},
		Session: SessionConfig{
			ReconnectDelay:     3 * time.Second,
			InitRequestDelay:   time.Second,
			InitRetryDelay:     2 * time.Second,
			BufferedAmountHigh: 1 << 20,
			BufferedAmountLow:  256 << 10,
		},
		Rules: RulesConfig{
			StartingHealth:  20,
			StartingMana:    5,
			StartingMaxMana: 10,
			HandSize:        5,
			DeckCreatures:   20,
			DeckSpells:      10,
		},
		Relay: RelayConfig{
			Listen: ":3001",
		},
	}
}

// Load loads configuration from the file named by PEERDUEL_CONFIG.
// It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your peerduel.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path over the
// defaults and expands variables in URL fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// Resolve picks the configuration source for a binary: the --config
// flag value when non-empty, then PEERDUEL_CONFIG, then the defaults.
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if os.Getenv(EnvVar) != "" {
		return Load()
	}
	cfg := Default()
	cfg.expandVariables()
	return cfg, nil
}

// loadFile merges one file into the config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so after stripping comments and
		// trailing commas the YAML decoder handles it, durations
		// included.
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in URLs.
func (c *Config) expandVariables() {
	vars := map[string]string{}
	c.Signaling.URL = expandVars(c.Signaling.URL, vars)
	for index := range c.ICE.Servers {
		server := &c.ICE.Servers[index]
		for urlIndex := range server.URLs {
			server.URLs[urlIndex] = expandVars(server.URLs[urlIndex], vars)
		}
		server.Username = expandVars(server.Username, vars)
		server.Credential = expandVars(server.Credential, vars)
	}
	c.Relay.Listen = expandVars(c.Relay.Listen, vars)
	c.Relay.NATS = expandVars(c.Relay.NATS, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	switch c.Signaling.Kind {
	case SignalingWebSocket, SignalingNATS:
	default:
		errs = append(errs, fmt.Errorf("signaling.kind must be %s or %s, got %q",
			SignalingWebSocket, SignalingNATS, c.Signaling.Kind))
	}
	if c.Signaling.URL == "" {
		errs = append(errs, errors.New("signaling.url is required"))
	}
	if c.Signaling.Kind == SignalingNATS && c.Signaling.SubjectPrefix == "" {
		errs = append(errs, errors.New("signaling.subject_prefix is required for nats"))
	}
	if c.Signaling.Reconnect.Delay <= 0 {
		errs = append(errs, errors.New("signaling.reconnect.delay must be positive"))
	}
	if c.Signaling.Reconnect.MaxDelay < c.Signaling.Reconnect.Delay {
		errs = append(errs, errors.New("signaling.reconnect.max_delay must not be below delay"))
	}
	if c.Signaling.Reconnect.Attempts < 0 {
		errs = append(errs, errors.New("signaling.reconnect.attempts must not be negative"))
	}

	for index, server := range c.ICE.Servers {
		if len(server.URLs) == 0 {
			errs = append(errs, fmt.Errorf("ice.servers[%d] has no urls", index))
		}
	}

	if c.Session.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("session.reconnect_delay must be positive"))
	}
	if c.Session.InitRequestDelay <= 0 || c.Session.InitRetryDelay <= 0 {
		errs = append(errs, errors.New("session.init_request_delay and init_retry_delay must be positive"))
	}
	if c.Session.BufferedAmountLow >= c.Session.BufferedAmountHigh {
		errs = append(errs, errors.New("session.buffered_amount_low must be below buffered_amount_high"))
	}

	if c.Relay.Listen == "" {
		errs = append(errs, errors.New("relay.listen is required"))
	}
	if c.Relay.NATS != "" && c.Signaling.SubjectPrefix == "" {
		errs = append(errs, errors.New("signaling.subject_prefix is required when relay.nats is set"))
	}

	return errors.Join(errs...)
}
