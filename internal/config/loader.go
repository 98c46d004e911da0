package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars < CLI flags
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		// Config file is optional, only error if explicitly specified
		if l.configFile != "" {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Logging.File = expandTilde(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// setupViper configures Viper with defaults and environment bindings.
func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "tgdesk"))
	}
	homeDir, _ := os.UserHomeDir()
	if homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "tgdesk"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("TGDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)

	// Explicitly bind environment variables (Viper's Unmarshal has issues
	// with nested struct keys without this).
	bindEnvVars(v)

	v.AutomaticEnv()
}

// setDefaults sets all default values in Viper.
func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	v.SetDefault("server.base_url", cfg.Server.BaseURL)
	v.SetDefault("server.token", cfg.Server.Token)
	v.SetDefault("server.timeout", cfg.Server.Timeout)

	v.SetDefault("live.url", cfg.Live.URL)
	v.SetDefault("live.backoff_base", cfg.Live.BackoffBase)
	v.SetDefault("live.backoff_cap", cfg.Live.BackoffCap)

	v.SetDefault("timeline.page_size", cfg.Timeline.PageSize)
	v.SetDefault("timeline.chat_page_size", cfg.Timeline.ChatPageSize)
	v.SetDefault("timeline.strict", cfg.Timeline.Strict)

	v.SetDefault("tui.theme", cfg.TUI.Theme)
	v.SetDefault("tui.show_timestamps", cfg.TUI.ShowTimestamps)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)
}

// loadConfigFile attempts to load the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Set sets a Viper value by key, used for CLI flag overrides.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	loader := NewLoader()
	return loader.Load()
}

// bindEnvVars binds environment variables for config keys so TGDESK_* vars
// override nested struct fields reliably.
func bindEnvVars(v *viper.Viper) {
	envBindings := []string{
		"server.base_url",
		"server.token",
		"server.timeout",
		"live.url",
		"live.backoff_base",
		"live.backoff_cap",
		"timeline.page_size",
		"timeline.chat_page_size",
		"timeline.strict",
		"tui.theme",
		"tui.show_timestamps",
		"logging.level",
		"logging.format",
		"logging.file",
		"logging.enable_caller",
	}

	for _, key := range envBindings {
		envVar := "TGDESK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envVar)
	}
}
