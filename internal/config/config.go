// Package config handles tgdesk configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration structure for tgdesk.
type Config struct {
	// Server settings for the backend REST API.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Live settings for the push connection.
	Live LiveConfig `yaml:"live" mapstructure:"live"`

	// Timeline settings for history loading and buffer behavior.
	Timeline TimelineConfig `yaml:"timeline" mapstructure:"timeline"`

	// TUI settings.
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`

	// Logging settings.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. https://support.example.com.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Token is the operator bearer token.
	Token string `yaml:"token" mapstructure:"token"`

	// Timeout bounds each API request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LiveConfig contains push-connection settings.
type LiveConfig struct {
	// URL is the websocket endpoint. Empty derives it from server.base_url.
	URL string `yaml:"url" mapstructure:"url"`

	// BackoffBase is the first reconnect delay.
	BackoffBase time.Duration `yaml:"backoff_base" mapstructure:"backoff_base"`

	// BackoffCap is the maximum reconnect delay.
	BackoffCap time.Duration `yaml:"backoff_cap" mapstructure:"backoff_cap"`
}

// TimelineConfig contains history and buffer settings.
type TimelineConfig struct {
	// PageSize is how many messages one history page requests.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// ChatPageSize is how many chats one list page requests.
	ChatPageSize int `yaml:"chat_page_size" mapstructure:"chat_page_size"`

	// Strict makes buffer invariant violations panic instead of repairing.
	Strict bool `yaml:"strict" mapstructure:"strict"`
}

// TUIConfig contains terminal UI settings.
type TUIConfig struct {
	// Theme is the color theme (default, dark, light).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows message timestamps in the thread.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. Empty logs to stderr, which fights
	// with the TUI, so a file is recommended for interactive use.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 15 * time.Second,
		},
		Live: LiveConfig{
			BackoffBase: time.Second,
			BackoffCap:  5 * time.Second,
		},
		Timeline: TimelineConfig{
			PageSize:     50,
			ChatPageSize: 30,
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LiveURL returns the websocket endpoint, deriving it from the base URL
// when not set explicitly.
func (c *Config) LiveURL() string {
	if c.Live.URL != "" {
		return c.Live.URL
	}
	ws := c.Server.BaseURL
	ws = strings.Replace(ws, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return strings.TrimRight(ws, "/") + "/ws"
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url must be an absolute URL")
	}

	if c.Server.Timeout < time.Second {
		return fmt.Errorf("server.timeout must be at least 1s")
	}

	if c.Timeline.PageSize < 1 {
		return fmt.Errorf("timeline.page_size must be at least 1")
	}
	if c.Timeline.ChatPageSize < 1 {
		return fmt.Errorf("timeline.chat_page_size must be at least 1")
	}

	if c.Live.BackoffBase <= 0 {
		return fmt.Errorf("live.backoff_base must be positive")
	}
	if c.Live.BackoffCap < c.Live.BackoffBase {
		return fmt.Errorf("live.backoff_cap must be at least live.backoff_base")
	}

	return nil
}
