// Package config provides Viper-based configuration loading for the chat server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Enabled turns the Telnet listener on or off.
	Enabled bool `mapstructure:"enabled"`
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener. Zero picks a random port.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// HTTPConfig holds the HTTP listener and WebSocket hub settings.
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// HubPath is the route upgraded to the chat WebSocket.
	HubPath string `mapstructure:"hub_path"`
	// AllowedOrigins lists the Origin header values accepted on upgrade.
	// A single "*" entry accepts any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// MaxMessageSize is the largest inbound frame in bytes.
	MaxMessageSize int64 `mapstructure:"max_message_size"`
	// ReadTimeout is how long a socket may stay silent (no frame, no pong).
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PingInterval is the keep-alive period; it must be below ReadTimeout.
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// ChatConfig holds the session and room directory settings.
type ChatConfig struct {
	// NamePrefix prefixes every generated default display name.
	NamePrefix string `mapstructure:"name_prefix"`
	// NameSpan is the exclusive upper bound of the default-name suffix.
	NameSpan int `mapstructure:"name_span"`
	// MaxNameAttempts is the number of collisions tolerated before the span widens.
	MaxNameAttempts int `mapstructure:"max_name_attempts"`
	// OutboxSize is the per-session notification buffer.
	OutboxSize int `mapstructure:"outbox_size"`
	// CatalogPath optionally points at a YAML message catalog override.
	CatalogPath string `mapstructure:"catalog_path"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Telnet  TelnetConfig  `mapstructure:"telnet"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTelnet(c.Telnet); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHTTP(c.HTTP); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateChat(c.Chat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMetrics(c.Metrics, c.HTTP); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	if !t.Enabled {
		return nil
	}
	var errs []string
	if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 0-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHTTP(h HTTPConfig) error {
	var errs []string
	if h.Port < 0 || h.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be 0-65535, got %d", h.Port))
	}
	if !strings.HasPrefix(h.HubPath, "/") {
		errs = append(errs, fmt.Sprintf("http.hub_path must start with '/', got %q", h.HubPath))
	}
	if h.HubPath == "/healthz" {
		errs = append(errs, "http.hub_path must not be /healthz")
	}
	if len(h.AllowedOrigins) == 0 {
		errs = append(errs, "http.allowed_origins must not be empty")
	}
	if h.MaxMessageSize < 1 {
		errs = append(errs, fmt.Sprintf("http.max_message_size must be >= 1, got %d", h.MaxMessageSize))
	}
	if h.ReadTimeout <= 0 {
		errs = append(errs, "http.read_timeout must be positive")
	}
	if h.WriteTimeout <= 0 {
		errs = append(errs, "http.write_timeout must be positive")
	}
	if h.PingInterval <= 0 || h.PingInterval >= h.ReadTimeout {
		errs = append(errs, "http.ping_interval must be positive and below http.read_timeout")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateChat(c ChatConfig) error {
	var errs []string
	if c.NamePrefix == "" {
		errs = append(errs, "chat.name_prefix must not be empty")
	}
	if c.NameSpan < 2 {
		errs = append(errs, fmt.Sprintf("chat.name_span must be >= 2, got %d", c.NameSpan))
	}
	if c.MaxNameAttempts < 1 {
		errs = append(errs, fmt.Sprintf("chat.max_name_attempts must be >= 1, got %d", c.MaxNameAttempts))
	}
	if c.OutboxSize < 1 {
		errs = append(errs, fmt.Sprintf("chat.outbox_size must be >= 1, got %d", c.OutboxSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMetrics(m MetricsConfig, h HTTPConfig) error {
	if !m.Enabled {
		return nil
	}
	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", m.Path)
	}
	if m.Path == h.HubPath || m.Path == "/healthz" {
		return fmt.Errorf("metrics.path must differ from http.hub_path and /healthz, got %q", m.Path)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with CHAT_ prefix
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance populated with every default value.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telnet.enabled", true)
	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "30m")
	v.SetDefault("telnet.write_timeout", "30s")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.hub_path", "/chatHub")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:8080"})
	v.SetDefault("http.max_message_size", 4096)
	v.SetDefault("http.read_timeout", "60s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.ping_interval", "54s")

	v.SetDefault("chat.name_prefix", "Anonymous")
	v.SetDefault("chat.name_span", 10000)
	v.SetDefault("chat.max_name_attempts", 100)
	v.SetDefault("chat.outbox_size", 256)
	v.SetDefault("chat.catalog_path", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
