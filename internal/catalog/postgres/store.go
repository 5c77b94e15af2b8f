package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxarena/voxarena/internal/catalog"
)

var _ catalog.Store = (*Store)(nil)

// Store implements [catalog.Store] on a PostgreSQL connection pool.
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection, and
// runs [Migrate] so all required tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("catalog store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// VoiceModel implements [catalog.Store].
func (s *Store) VoiceModel(ctx context.Context, id int64) (*catalog.VoiceModel, error) {
	const q = `
		SELECT id, provider_id, vendor_model_id, vendor_voice_id, gender, active
		FROM   voice_models
		WHERE  id = $1`

	var m catalog.VoiceModel
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&m.ID, &m.ProviderID, &m.VendorModelID, &m.VendorVoiceID, &m.Gender, &m.Active,
	)
	if err != nil {
		return nil, lookupErr("voice model", id, err)
	}
	return &m, nil
}

// Sentence implements [catalog.Store].
func (s *Store) Sentence(ctx context.Context, id int64) (*catalog.Sentence, error) {
	const q = `
		SELECT id, text, language_id, active
		FROM   sentences
		WHERE  id = $1`

	var sn catalog.Sentence
	err := s.pool.QueryRow(ctx, q, id).Scan(&sn.ID, &sn.Text, &sn.LanguageID, &sn.Active)
	if err != nil {
		return nil, lookupErr("sentence", id, err)
	}
	return &sn, nil
}

// Provider implements [catalog.Store].
func (s *Store) Provider(ctx context.Context, id int64) (*catalog.Provider, error) {
	const q = `
		SELECT id, slug, name, base_url
		FROM   providers
		WHERE  id = $1`

	var p catalog.Provider
	err := s.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Slug, &p.Name, &p.BaseURL)
	if err != nil {
		return nil, lookupErr("provider", id, err)
	}
	return &p, nil
}

// Language implements [catalog.Store].
func (s *Store) Language(ctx context.Context, id int64) (*catalog.Language, error) {
	const q = `
		SELECT id, code
		FROM   languages
		WHERE  id = $1`

	var l catalog.Language
	err := s.pool.QueryRow(ctx, q, id).Scan(&l.ID, &l.Code)
	if err != nil {
		return nil, lookupErr("language", id, err)
	}
	return &l, nil
}

// VoiceLocale implements [catalog.Store]. An empty stored locale is
// reported as not found so callers fall back to the sentence language.
func (s *Store) VoiceLocale(ctx context.Context, providerID int64, vendorVoiceID string) (string, error) {
	const q = `
		SELECT locale
		FROM   provider_voices
		WHERE  provider_id = $1 AND vendor_voice_id = $2`

	var locale string
	err := s.pool.QueryRow(ctx, q, providerID, vendorVoiceID).Scan(&locale)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && locale == "") {
		return "", fmt.Errorf("catalog store: locale for voice %q of provider %d: %w",
			vendorVoiceID, providerID, catalog.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("catalog store: voice locale: %w", err)
	}
	return locale, nil
}

// ActiveCredential implements [catalog.Store]. When multiple credentials
// are active the newest wins.
func (s *Store) ActiveCredential(ctx context.Context, providerID int64) (*catalog.Credential, error) {
	const q = `
		SELECT provider_id, secret
		FROM   credentials
		WHERE  provider_id = $1 AND active
		ORDER  BY created_at DESC
		LIMIT  1`

	var c catalog.Credential
	err := s.pool.QueryRow(ctx, q, providerID).Scan(&c.ProviderID, &c.Secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("catalog store: active credential for provider %d: %w",
			providerID, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog store: active credential: %w", err)
	}
	return &c, nil
}

// CachedAudio implements [catalog.Store].
func (s *Store) CachedAudio(ctx context.Context, modelID, sentenceID int64) (*catalog.CachedAudio, error) {
	const q = `
		SELECT id, voice_model_id, sentence_id, storage_key, byte_size,
		       duration_ns, gen_latency_ns, vendor_request_id, created_at
		FROM   cached_audio
		WHERE  voice_model_id = $1 AND sentence_id = $2`

	entry, err := scanCachedAudio(s.pool.QueryRow(ctx, q, modelID, sentenceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("catalog store: cached audio (%d, %d): %w",
			modelID, sentenceID, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog store: cached audio: %w", err)
	}
	return entry, nil
}

// InsertCachedAudio implements [catalog.Store]. The (voice_model_id,
// sentence_id) unique constraint plus ON CONFLICT DO NOTHING makes the
// insert idempotent under races; on conflict the existing row is fetched
// and returned, and the caller's duplicate upload becomes an orphan blob.
func (s *Store) InsertCachedAudio(ctx context.Context, entry catalog.CachedAudio) (*catalog.CachedAudio, error) {
	const q = `
		INSERT INTO cached_audio
		    (voice_model_id, sentence_id, storage_key, byte_size,
		     duration_ns, gen_latency_ns, vendor_request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (voice_model_id, sentence_id) DO NOTHING
		RETURNING id, voice_model_id, sentence_id, storage_key, byte_size,
		          duration_ns, gen_latency_ns, vendor_request_id, created_at`

	inserted, err := scanCachedAudio(s.pool.QueryRow(ctx, q,
		entry.VoiceModelID,
		entry.SentenceID,
		entry.StorageKey,
		entry.ByteSize,
		entry.Duration.Nanoseconds(),
		entry.GenLatency.Nanoseconds(),
		entry.VendorReqID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict: another call won the race. Return its row.
		return s.CachedAudio(ctx, entry.VoiceModelID, entry.SentenceID)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog store: insert cached audio: %w", err)
	}
	return inserted, nil
}

// ActiveSentences implements [catalog.Store].
func (s *Store) ActiveSentences(ctx context.Context, languageID int64) ([]catalog.Sentence, error) {
	q := `
		SELECT id, text, language_id, active
		FROM   sentences
		WHERE  active`
	args := []any{}
	if languageID != 0 {
		q += " AND language_id = $1"
		args = append(args, languageID)
	}
	q += "\nORDER BY id"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog store: active sentences: %w", err)
	}
	sentences, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Sentence, error) {
		var sn catalog.Sentence
		err := row.Scan(&sn.ID, &sn.Text, &sn.LanguageID, &sn.Active)
		return sn, err
	})
	if err != nil {
		return nil, fmt.Errorf("catalog store: active sentences: %w", err)
	}
	return sentences, nil
}

// ActiveModels implements [catalog.Store].
func (s *Store) ActiveModels(ctx context.Context) ([]catalog.VoiceModel, error) {
	const q = `
		SELECT id, provider_id, vendor_model_id, vendor_voice_id, gender, active
		FROM   voice_models
		WHERE  active
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog store: active models: %w", err)
	}
	models, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.VoiceModel, error) {
		var m catalog.VoiceModel
		err := row.Scan(&m.ID, &m.ProviderID, &m.VendorModelID, &m.VendorVoiceID, &m.Gender, &m.Active)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("catalog store: active models: %w", err)
	}
	return models, nil
}

// ModelLanguagePairs implements [catalog.Store].
func (s *Store) ModelLanguagePairs(ctx context.Context) ([]catalog.ModelLanguage, error) {
	const q = `SELECT voice_model_id, language_id FROM model_languages`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog store: model languages: %w", err)
	}
	pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.ModelLanguage, error) {
		var ml catalog.ModelLanguage
		err := row.Scan(&ml.VoiceModelID, &ml.LanguageID)
		return ml, err
	})
	if err != nil {
		return nil, fmt.Errorf("catalog store: model languages: %w", err)
	}
	return pairs, nil
}

// CachedPairs implements [catalog.Store].
func (s *Store) CachedPairs(ctx context.Context) ([]catalog.ModelSentence, error) {
	const q = `SELECT voice_model_id, sentence_id FROM cached_audio`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog store: cached pairs: %w", err)
	}
	pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.ModelSentence, error) {
		var ms catalog.ModelSentence
		err := row.Scan(&ms.VoiceModelID, &ms.SentenceID)
		return ms, err
	})
	if err != nil {
		return nil, fmt.Errorf("catalog store: cached pairs: %w", err)
	}
	return pairs, nil
}

// scanCachedAudio scans one cached_audio row.
func scanCachedAudio(row pgx.Row) (*catalog.CachedAudio, error) {
	var (
		entry      catalog.CachedAudio
		durationNS int64
		latencyNS  int64
	)
	err := row.Scan(
		&entry.ID,
		&entry.VoiceModelID,
		&entry.SentenceID,
		&entry.StorageKey,
		&entry.ByteSize,
		&durationNS,
		&latencyNS,
		&entry.VendorReqID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Duration = time.Duration(durationNS)
	entry.GenLatency = time.Duration(latencyNS)
	return &entry, nil
}

// lookupErr maps pgx.ErrNoRows to a wrapped catalog.ErrNotFound with
// entity context.
func lookupErr(entity string, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("catalog store: %s %d: %w", entity, id, catalog.ErrNotFound)
	}
	return fmt.Errorf("catalog store: %s %d: %w", entity, id, err)
}
