package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderSlugs lists the builtin adapter slugs. [Validate] warns
// about provider entries whose slug is not in this list.
var ValidProviderSlugs = []string{
	"elevenlabs", "openai", "google", "azure", "deepgram",
	"cartesia", "playht", "lmnt", "neuphonic", "coqui",
	"murf", "wellsaid",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}

	if cfg.ObjectStore.NATSURL == "" {
		errs = append(errs, errors.New("object_store.nats_url is required"))
	}
	if cfg.ObjectStore.Bucket == "" {
		errs = append(errs, errors.New("object_store.bucket is required"))
	}
	if cfg.ObjectStore.PublicBaseURL == "" {
		errs = append(errs, errors.New("object_store.public_base_url is required"))
	}
	if cfg.ObjectStore.SigningSecret == "" {
		errs = append(errs, errors.New("object_store.signing_secret is required"))
	}

	if cfg.Generation.URLTTL < 0 {
		errs = append(errs, fmt.Errorf("generation.url_ttl %v must not be negative", cfg.Generation.URLTTL))
	}
	if cfg.Generation.AttemptTimeout < 0 {
		errs = append(errs, fmt.Errorf("generation.attempt_timeout %v must not be negative", cfg.Generation.AttemptTimeout))
	}
	if cfg.Generation.SweepMaxPairs < 0 {
		errs = append(errs, fmt.Errorf("generation.sweep_max_pairs %d must not be negative", cfg.Generation.SweepMaxPairs))
	}

	if len(cfg.Providers) == 0 {
		errs = append(errs, errors.New("providers must list at least one adapter"))
	}

	slugsSeen := make(map[string]int, len(cfg.Providers))
	for i, entry := range cfg.Providers {
		prefix := fmt.Sprintf("providers[%d]", i)
		if entry.Slug == "" {
			errs = append(errs, fmt.Errorf("%s.slug is required", prefix))
			continue
		}
		if prev, ok := slugsSeen[entry.Slug]; ok {
			errs = append(errs, fmt.Errorf("%s.slug %q is a duplicate of providers[%d]", prefix, entry.Slug, prev))
		}
		slugsSeen[entry.Slug] = i
		validateProviderSlug(entry.Slug)
		for _, alias := range entry.Aliases {
			if alias == "" {
				errs = append(errs, fmt.Errorf("%s.aliases must not contain empty strings", prefix))
			}
		}
	}

	return errors.Join(errs...)
}

// validateProviderSlug logs a warning if slug is not a builtin adapter
// slug. Unknown slugs fail at registry lookup, not at config load, so a
// typo here is a warning rather than an error.
func validateProviderSlug(slug string) {
	if slices.Contains(ValidProviderSlugs, slug) {
		return
	}
	slog.Warn("unknown provider slug, may be a typo",
		"slug", slug,
		"known", ValidProviderSlugs,
	)
}
