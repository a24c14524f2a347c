package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values
const (
	DefaultAddr            = ":8080"
	DefaultWSPath          = "/"
	DefaultPasswordDigits  = 4
	DefaultSendQueue       = 256
	DefaultMaxMessageBytes = 64 * 1024
	DefaultPongWait        = 60 * time.Second
	DefaultPingInterval    = (DefaultPongWait * 9) / 10
	DefaultShutdownTimeout = 10 * time.Second
	DefaultServerURL       = "ws://localhost:8080/"
	DefaultSTUN            = "stun:stun.l.google.com:19302"
)

// Environment variables read by Load.
const (
	EnvConfigFile      = "RENDEZVOUS_CONFIG"
	EnvAddr            = "RENDEZVOUS_ADDR"
	EnvWSPath          = "RENDEZVOUS_WS_PATH"
	EnvPasswordDigits  = "RENDEZVOUS_PASSWORD_DIGITS"
	EnvSendQueue       = "RENDEZVOUS_SEND_QUEUE"
	EnvMaxMessageBytes = "RENDEZVOUS_MAX_MESSAGE_BYTES"
	EnvPingInterval    = "RENDEZVOUS_PING_INTERVAL"
	EnvPongWait        = "RENDEZVOUS_PONG_WAIT"
	EnvAllowedOrigins  = "RENDEZVOUS_ALLOWED_ORIGINS"
	EnvShutdownTimeout = "RENDEZVOUS_SHUTDOWN_TIMEOUT"
	EnvServerURL       = "RENDEZVOUS_SERVER_URL"
	EnvSTUNServer      = "STUN_SERVER"
)

// Config holds application configuration
type Config struct {
	// Server side
	Addr            string
	WSPath          string
	PasswordDigits  int
	SendQueue       int
	MaxMessageBytes int64
	PingInterval    time.Duration
	PongWait        time.Duration
	AllowedOrigins  []string
	ShutdownTimeout time.Duration

	// Peer side
	ServerURL  string
	STUNServer string
}

// Options carries CLI flag overrides. Empty strings and nil pointers mean
// the flag was not given.
type Options struct {
	ConfigFile      string
	Addr            string
	WSPath          string
	PasswordDigits  *int
	SendQueue       *int
	MaxMessageBytes *int64
	PingInterval    *time.Duration
	PongWait        *time.Duration
	AllowedOrigins  []string
	ShutdownTimeout *time.Duration
	ServerURL       string
	STUNServer      string
}

// fileConfig mirrors the TOML file layout.
type fileConfig struct {
	Addr            string   `toml:"addr"`
	WSPath          string   `toml:"ws_path"`
	PasswordDigits  *int     `toml:"password_digits"`
	SendQueue       *int     `toml:"send_queue"`
	MaxMessageBytes *int64   `toml:"max_message_bytes"`
	PingInterval    string   `toml:"ping_interval"`
	PongWait        string   `toml:"pong_wait"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	ShutdownTimeout string   `toml:"shutdown_timeout"`
	ServerURL       string   `toml:"server_url"`
	STUNServer      string   `toml:"stun_server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:            DefaultAddr,
		WSPath:          DefaultWSPath,
		PasswordDigits:  DefaultPasswordDigits,
		SendQueue:       DefaultSendQueue,
		MaxMessageBytes: DefaultMaxMessageBytes,
		PingInterval:    DefaultPingInterval,
		PongWait:        DefaultPongWait,
		ShutdownTimeout: DefaultShutdownTimeout,
		ServerURL:       DefaultServerURL,
		STUNServer:      DefaultSTUN,
	}
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. TOML config file (Options.ConfigFile or RENDEZVOUS_CONFIG)
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := Default()

	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyOptions(opts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		errs = append(errs, fmt.Errorf("ws_path %q must start with /", c.WSPath))
	}
	if c.PasswordDigits < 1 || c.PasswordDigits > 9 {
		errs = append(errs, fmt.Errorf("password_digits must be between 1 and 9, got %d", c.PasswordDigits))
	}
	if c.SendQueue <= 0 {
		errs = append(errs, fmt.Errorf("send_queue must be positive, got %d", c.SendQueue))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_message_bytes must be positive, got %d", c.MaxMessageBytes))
	}
	if c.PingInterval < 0 || c.PongWait < 0 {
		errs = append(errs, errors.New("keepalive durations must not be negative"))
	}
	if c.PingInterval > 0 && c.PongWait > 0 && c.PingInterval >= c.PongWait {
		errs = append(errs, fmt.Errorf("ping_interval %s must be shorter than pong_wait %s", c.PingInterval, c.PongWait))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}

	setString(&c.Addr, fc.Addr)
	setString(&c.WSPath, fc.WSPath)
	setString(&c.ServerURL, fc.ServerURL)
	setString(&c.STUNServer, fc.STUNServer)
	if fc.PasswordDigits != nil {
		c.PasswordDigits = *fc.PasswordDigits
	}
	if fc.SendQueue != nil {
		c.SendQueue = *fc.SendQueue
	}
	if fc.MaxMessageBytes != nil {
		c.MaxMessageBytes = *fc.MaxMessageBytes
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"ping_interval", fc.PingInterval, &c.PingInterval},
		{"pong_wait", fc.PongWait, &c.PongWait},
		{"shutdown_timeout", fc.ShutdownTimeout, &c.ShutdownTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config parse failed (%s): %s: %w", path, d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Addr, os.Getenv(EnvAddr))
	setString(&c.WSPath, os.Getenv(EnvWSPath))
	setString(&c.ServerURL, os.Getenv(EnvServerURL))
	setString(&c.STUNServer, os.Getenv(EnvSTUNServer))

	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv(EnvPasswordDigits); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPasswordDigits, err)
		}
		c.PasswordDigits = n
	}
	if v := os.Getenv(EnvSendQueue); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSendQueue, err)
		}
		c.SendQueue = n
	}
	if v := os.Getenv(EnvMaxMessageBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxMessageBytes, err)
		}
		c.MaxMessageBytes = n
	}

	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{EnvPingInterval, &c.PingInterval},
		{EnvPongWait, &c.PongWait},
		{EnvShutdownTimeout, &c.ShutdownTimeout},
	} {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.env, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyOptions(opts Options) {
	setString(&c.Addr, opts.Addr)
	setString(&c.WSPath, opts.WSPath)
	setString(&c.ServerURL, opts.ServerURL)
	setString(&c.STUNServer, opts.STUNServer)
	if len(opts.AllowedOrigins) > 0 {
		c.AllowedOrigins = opts.AllowedOrigins
	}
	if opts.PasswordDigits != nil {
		c.PasswordDigits = *opts.PasswordDigits
	}
	if opts.SendQueue != nil {
		c.SendQueue = *opts.SendQueue
	}
	if opts.MaxMessageBytes != nil {
		c.MaxMessageBytes = *opts.MaxMessageBytes
	}
	if opts.PingInterval != nil {
		c.PingInterval = *opts.PingInterval
	}
	if opts.PongWait != nil {
		c.PongWait = *opts.PongWait
	}
	if opts.ShutdownTimeout != nil {
		c.ShutdownTimeout = *opts.ShutdownTimeout
	}
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
