// Package postgres provides the PostgreSQL-backed implementation of
// [catalog.Store]. All operations share a single [pgxpool.Pool].
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlCatalog = `
CREATE TABLE IF NOT EXISTS providers (
    id        BIGSERIAL PRIMARY KEY,
    slug      TEXT      NOT NULL UNIQUE,
    name      TEXT      NOT NULL,
    base_url  TEXT      NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS languages (
    id    BIGSERIAL PRIMARY KEY,
    code  TEXT      NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS voice_models (
    id               BIGSERIAL PRIMARY KEY,
    provider_id      BIGINT    NOT NULL REFERENCES providers (id),
    vendor_model_id  TEXT      NOT NULL,
    vendor_voice_id  TEXT      NOT NULL DEFAULT '',
    gender           TEXT      NOT NULL DEFAULT 'neuter',
    active           BOOLEAN   NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_voice_models_provider
    ON voice_models (provider_id);

CREATE TABLE IF NOT EXISTS sentences (
    id           BIGSERIAL PRIMARY KEY,
    text         TEXT      NOT NULL,
    language_id  BIGINT    NOT NULL REFERENCES languages (id),
    active       BOOLEAN   NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_sentences_language
    ON sentences (language_id);

CREATE TABLE IF NOT EXISTS provider_voices (
    provider_id      BIGINT  NOT NULL REFERENCES providers (id),
    vendor_voice_id  TEXT    NOT NULL,
    locale           TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (provider_id, vendor_voice_id)
);

CREATE TABLE IF NOT EXISTS credentials (
    id           BIGSERIAL   PRIMARY KEY,
    provider_id  BIGINT      NOT NULL REFERENCES providers (id),
    secret       TEXT        NOT NULL,
    active       BOOLEAN     NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_credentials_provider_active
    ON credentials (provider_id) WHERE active;

CREATE TABLE IF NOT EXISTS model_languages (
    voice_model_id  BIGINT NOT NULL REFERENCES voice_models (id),
    language_id     BIGINT NOT NULL REFERENCES languages (id),
    PRIMARY KEY (voice_model_id, language_id)
);
`

// ddlCachedAudio holds the cache table. The UNIQUE constraint on
// (voice_model_id, sentence_id) is what makes concurrent first-generation
// races converge on one canonical row.
const ddlCachedAudio = `
CREATE TABLE IF NOT EXISTS cached_audio (
    id                 BIGSERIAL   PRIMARY KEY,
    voice_model_id     BIGINT      NOT NULL REFERENCES voice_models (id),
    sentence_id        BIGINT      NOT NULL REFERENCES sentences (id),
    storage_key        TEXT        NOT NULL,
    byte_size          BIGINT      NOT NULL,
    duration_ns        BIGINT      NOT NULL DEFAULT 0,
    gen_latency_ns     BIGINT      NOT NULL DEFAULT 0,
    vendor_request_id  TEXT        NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (voice_model_id, sentence_id)
);

CREATE INDEX IF NOT EXISTS idx_cached_audio_sentence
    ON cached_audio (sentence_id);
`

// Migrate creates or ensures all required tables exist. It is idempotent
// and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlCatalog, ddlCachedAudio} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
