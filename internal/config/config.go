// Package config provides the configuration schema and loader for the
// voxarena daemon.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the voxarena daemon.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to the corresponding [slog.Level]. Unknown or empty values
// map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure for voxarena.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Generation  GenerationConfig  `yaml:"generation"`
	Providers   []ProviderEntry   `yaml:"providers"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on
	// (e.g., ":8080"). It serves /metrics and the signed audio downloads.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// PostgresConfig holds the catalog database connection settings.
type PostgresConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`
}

// ObjectStoreConfig holds the audio blob storage settings.
type ObjectStoreConfig struct {
	// NATSURL is the NATS server URL hosting the JetStream object store.
	NATSURL string `yaml:"nats_url"`

	// Bucket is the object-store bucket holding generated audio.
	Bucket string `yaml:"bucket"`

	// PublicBaseURL is the externally reachable base under which stored
	// audio is served (the daemon's /audio endpoint or a fronting CDN).
	PublicBaseURL string `yaml:"public_base_url"`

	// SigningSecret is the HMAC key for signed download URLs.
	SigningSecret string `yaml:"signing_secret"`
}

// GenerationConfig tunes the generation pipeline.
type GenerationConfig struct {
	// URLTTL is the expiry of signed download URLs. Default: 1h.
	URLTTL time.Duration `yaml:"url_ttl"`

	// AttemptTimeout is the per-attempt vendor call deadline. Default: 30s.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// SweepMaxPairs caps pairs per pre-generation sweep. Default: 500.
	SweepMaxPairs int `yaml:"sweep_max_pairs"`
}

// ProviderEntry enables one builtin vendor adapter, with optional alias
// slugs. Endpoint overrides and credentials live in the catalog, not here.
type ProviderEntry struct {
	// Slug selects the builtin adapter (e.g., "elevenlabs", "deepgram").
	Slug string `yaml:"slug"`

	// Aliases are additional registry slugs for the same adapter, for
	// catalogs that reference a vendor under more than one name.
	Aliases []string `yaml:"aliases"`
}
