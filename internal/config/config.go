package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds lobby client configuration values.
type Config struct {
	// Lobby session.
	Host             string   `mapstructure:"host" yaml:"host"`
	Port             int      `mapstructure:"port" yaml:"port"`
	Username         string   `mapstructure:"username" yaml:"username"`
	Password         string   `mapstructure:"password" yaml:"password"`
	LobbyName        string   `mapstructure:"lobby_name" yaml:"lobby_name"`
	Transport        string   `mapstructure:"transport" yaml:"transport"`
	WSPath           string   `mapstructure:"ws_path" yaml:"ws_path"`
	AutoConnect      bool     `mapstructure:"auto_connect" yaml:"auto_connect"`
	AutoJoinChannels []string `mapstructure:"auto_join_channels" yaml:"auto_join_channels"`

	DialTimeout       time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval" yaml:"keepalive_interval"`
	PingInterval      time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	CommandQueueSize  int `mapstructure:"command_queue_size" yaml:"command_queue_size"`
	CommandsPerMinute int `mapstructure:"commands_per_minute" yaml:"commands_per_minute"`
	SendRate          int `mapstructure:"send_rate" yaml:"send_rate"`
	MaxLineLength     int `mapstructure:"max_line_length" yaml:"max_line_length"`

	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	HistoryPath string `mapstructure:"history_path" yaml:"history_path"`

	// Local control API.
	APIAddr           string        `mapstructure:"api_addr" yaml:"api_addr"`
	APISecret         string        `mapstructure:"api_secret" yaml:"api_secret"`
	APIIssuer         string        `mapstructure:"api_issuer" yaml:"api_issuer"`
	APIAudience       string        `mapstructure:"api_audience" yaml:"api_audience"`
	APIPasswordHash   string        `mapstructure:"api_password_hash" yaml:"api_password_hash"`
	TokenTTL          time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	EventBuffer       int           `mapstructure:"event_buffer" yaml:"event_buffer"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	APIRateLimit      int           `mapstructure:"api_rate_limit" yaml:"api_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Host:              "lobby.springrts.com",
		Port:              8200,
		LobbyName:         "lobbyclient",
		Transport:         "tcp",
		WSPath:            "/",
		DialTimeout:       10 * time.Second,
		KeepaliveInterval: 10 * time.Second,
		PingInterval:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
		CommandQueueSize:  64,
		CommandsPerMinute: 120,
		SendRate:          5,
		MaxLineLength:     64 * 1024,
		LogLevel:          "info",
		HistoryPath:       "history.db",
		APIAddr:           "127.0.0.1:8300",
		APIIssuer:         "lobbyclient",
		APIAudience:       "lobbyclient-api",
		TokenTTL:          24 * time.Hour,
		EventBuffer:       256,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		APIRateLimit:      600,
	}
}

// Validate reports settings the client cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case strings.ContainsAny(c.Username, " \t"):
		return fmt.Errorf("username %q must not contain whitespace", c.Username)
	case c.IdleTimeout > 0 && c.PingInterval >= c.IdleTimeout:
		return fmt.Errorf("ping_interval (%s) must be shorter than idle_timeout (%s)", c.PingInterval, c.IdleTimeout)
	case c.Transport != "tcp" && c.Transport != "ws" && c.Transport != "websocket":
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.Username != "" {
		c.Username = other.Username
	}
	if other.Password != "" {
		c.Password = other.Password
	}
	if other.LobbyName != "" {
		c.LobbyName = other.LobbyName
	}
	if other.Transport != "" {
		c.Transport = other.Transport
	}
	if other.WSPath != "" {
		c.WSPath = other.WSPath
	}
	if other.AutoConnect {
		c.AutoConnect = true
	}
	if len(other.AutoJoinChannels) > 0 {
		c.AutoJoinChannels = other.AutoJoinChannels
	}
	if other.DialTimeout != 0 {
		c.DialTimeout = other.DialTimeout
	}
	if other.KeepaliveInterval != 0 {
		c.KeepaliveInterval = other.KeepaliveInterval
	}
	if other.PingInterval != 0 {
		c.PingInterval = other.PingInterval
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.CommandQueueSize != 0 {
		c.CommandQueueSize = other.CommandQueueSize
	}
	if other.CommandsPerMinute != 0 {
		c.CommandsPerMinute = other.CommandsPerMinute
	}
	if other.SendRate != 0 {
		c.SendRate = other.SendRate
	}
	if other.MaxLineLength != 0 {
		c.MaxLineLength = other.MaxLineLength
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.HistoryPath != "" {
		c.HistoryPath = other.HistoryPath
	}
	if other.APIAddr != "" {
		c.APIAddr = other.APIAddr
	}
	if other.APISecret != "" {
		c.APISecret = other.APISecret
	}
	if other.APIIssuer != "" {
		c.APIIssuer = other.APIIssuer
	}
	if other.APIAudience != "" {
		c.APIAudience = other.APIAudience
	}
	if other.APIPasswordHash != "" {
		c.APIPasswordHash = other.APIPasswordHash
	}
	if other.TokenTTL != 0 {
		c.TokenTTL = other.TokenTTL
	}
	if other.EventBuffer != 0 {
		c.EventBuffer = other.EventBuffer
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.APIRateLimit != 0 {
		c.APIRateLimit = other.APIRateLimit
	}
}
