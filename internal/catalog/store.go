package catalog

import "context"

// Store is the read (and cache-insert) surface the generation pipeline
// depends on. Lookups return exactly one row or an error wrapping
// [ErrNotFound]. All methods are safe for concurrent use.
type Store interface {
	// VoiceModel returns the voice model with the given id.
	VoiceModel(ctx context.Context, id int64) (*VoiceModel, error)

	// Sentence returns the sentence with the given id.
	Sentence(ctx context.Context, id int64) (*Sentence, error)

	// Provider returns the provider with the given id.
	Provider(ctx context.Context, id int64) (*Provider, error)

	// Language returns the language with the given id.
	Language(ctx context.Context, id int64) (*Language, error)

	// VoiceLocale returns the locale code bound to a provider voice, or
	// ErrNotFound when the voice has no locale binding. A bound locale
	// takes precedence over the sentence's nominal language.
	VoiceLocale(ctx context.Context, providerID int64, vendorVoiceID string) (string, error)

	// ActiveCredential returns the provider's currently active secret.
	ActiveCredential(ctx context.Context, providerID int64) (*Credential, error)

	// CachedAudio returns the cache entry for (modelID, sentenceID), or
	// ErrNotFound on a cache miss.
	CachedAudio(ctx context.Context, modelID, sentenceID int64) (*CachedAudio, error)

	// InsertCachedAudio inserts entry unless a row for its (model,
	// sentence) pair already exists, in which case the existing row is
	// returned instead. Two racing generations of the same pair thus
	// converge on a single canonical row.
	InsertCachedAudio(ctx context.Context, entry CachedAudio) (*CachedAudio, error)

	// ActiveSentences returns all active sentences, optionally filtered
	// to one language (languageID == 0 means all languages).
	ActiveSentences(ctx context.Context, languageID int64) ([]Sentence, error)

	// ActiveModels returns all active voice models.
	ActiveModels(ctx context.Context) ([]VoiceModel, error)

	// ModelLanguagePairs returns the model-language support relation.
	ModelLanguagePairs(ctx context.Context) ([]ModelLanguage, error)

	// CachedPairs returns the (model, sentence) pairs that already have a
	// cache entry. The sweeper uses it to skip generated pairs without a
	// per-pair query.
	CachedPairs(ctx context.Context) ([]ModelSentence, error)
}

// ModelSentence is a (voice model, sentence) pair key.
type ModelSentence struct {
	VoiceModelID int64
	SentenceID   int64
}
