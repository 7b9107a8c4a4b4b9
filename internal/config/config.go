// Package config manages chatd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete chatd configuration.
type Config struct {
	Listen     ListenConfig     `koanf:"listen"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Log        LogConfig        `koanf:"log"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ListenConfig holds the WebSocket chat endpoint configuration.
type ListenConfig struct {
	// Addr is the HTTP listen address for the chat endpoint (e.g., ":8080").
	Addr string `koanf:"addr"`
	// Path is the URL path the WebSocket upgrader is mounted on (e.g., "/chat").
	Path string `koanf:"path"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// SupervisorConfig holds the inactivity-supervisor tunables.
type SupervisorConfig struct {
	// InactivityTimeout is how long a session may sit idle in ACTIVO before
	// being demoted to INACTIVO.
	InactivityTimeout time.Duration `koanf:"inactivity_timeout"`
	// ScanInterval is how often the supervisor scans the registry.
	ScanInterval time.Duration `koanf:"scan_interval"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
//
// The inactivity timeout and scan cadence match the reference chat server's
// monitor_inactividad loop: a 60-second idle threshold checked every 5 seconds.
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			Addr: ":8080",
			Path: "/chat",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			InactivityTimeout: 60 * time.Second,
			ScanInterval:      5 * time.Second,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for chatd configuration.
// Variables are named CHATD_<section>_<key>, e.g., CHATD_LISTEN_ADDR.
const envPrefix = "CHATD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (CHATD_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	CHATD_LISTEN_ADDR                   -> listen.addr
//	CHATD_LISTEN_PATH                   -> listen.path
//	CHATD_METRICS_ADDR                  -> metrics.addr
//	CHATD_METRICS_PATH                  -> metrics.path
//	CHATD_LOG_LEVEL                     -> log.level
//	CHATD_LOG_FORMAT                    -> log.format
//	CHATD_SUPERVISOR_INACTIVITY_TIMEOUT -> supervisor.inactivity_timeout
//	CHATD_SUPERVISOR_SCAN_INTERVAL      -> supervisor.scan_interval
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms CHATD_LISTEN_ADDR -> listen.addr.
// Strips the CHATD_ prefix, lowercases, and replaces the first _ (the one
// after the section name) with ., so multi-word keys such as
// SUPERVISOR_INACTIVITY_TIMEOUT keep their underscores.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"listen.addr":                   defaults.Listen.Addr,
		"listen.path":                   defaults.Listen.Path,
		"metrics.addr":                  defaults.Metrics.Addr,
		"metrics.path":                  defaults.Metrics.Path,
		"log.level":                     defaults.Log.Level,
		"log.format":                    defaults.Log.Format,
		"supervisor.inactivity_timeout": defaults.Supervisor.InactivityTimeout.String(),
		"supervisor.scan_interval":      defaults.Supervisor.ScanInterval.String(),
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyListenAddr indicates the chat listen address is empty.
	ErrEmptyListenAddr = errors.New("listen.addr must not be empty")

	// ErrEmptyListenPath indicates the chat endpoint path is empty.
	ErrEmptyListenPath = errors.New("listen.path must not be empty")

	// ErrInvalidInactivityTimeout indicates a non-positive inactivity timeout.
	ErrInvalidInactivityTimeout = errors.New("supervisor.inactivity_timeout must be > 0")

	// ErrInvalidScanInterval indicates a non-positive scan interval.
	ErrInvalidScanInterval = errors.New("supervisor.scan_interval must be > 0")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Listen.Addr == "" {
		return ErrEmptyListenAddr
	}

	if cfg.Listen.Path == "" {
		return ErrEmptyListenPath
	}

	if cfg.Supervisor.InactivityTimeout <= 0 {
		return ErrInvalidInactivityTimeout
	}

	if cfg.Supervisor.ScanInterval <= 0 {
		return ErrInvalidScanInterval
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
