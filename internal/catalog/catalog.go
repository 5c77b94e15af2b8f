// Package catalog defines the relational domain model for the generation
// pipeline (providers, voice models, sentences, languages, credentials,
// cached audio) and the [Store] interface the orchestrator reads it through.
package catalog

import (
	"errors"
	"time"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// ErrNotFound is returned by Store lookups when no row matches. Callers
// distinguish it from vendor failures with errors.Is; implementations wrap
// it with entity context ("voice model 42: not found").
var ErrNotFound = errors.New("not found")

// Provider is a vendor account. Slug is the adapter registry key; BaseURL,
// when non-empty, overrides the adapter's default endpoint (self-hosted
// vendors require it).
type Provider struct {
	ID      int64
	Slug    string
	Name    string
	BaseURL string
}

// VoiceModel identifies one vendor-model configuration. Rows referenced by
// cached audio are immutable; only administrative tooling changes them.
type VoiceModel struct {
	ID            int64
	ProviderID    int64
	VendorModelID string
	// VendorVoiceID is the vendor's voice/character identifier. Optional;
	// adapters that require one fail fast when it is empty.
	VendorVoiceID string
	// Gender selects a fallback voice for vendors with no explicit voice id.
	Gender tts.Gender
	Active bool
}

// Sentence is a text in one language. Text is immutable per row.
type Sentence struct {
	ID         int64
	Text       string
	LanguageID int64
	Active     bool
}

// Language is a language or locale code such as "en" or "en-IN".
type Language struct {
	ID   int64
	Code string
}

// Credential is the currently active secret for a provider. It is looked
// up just-in-time per generation call and never cached across calls.
type Credential struct {
	ProviderID int64
	Secret     string
}

// CachedAudio is the durable cache entry for one (voice model, sentence)
// pair. At most one row exists per pair; it is created once on first
// successful generation and never updated.
type CachedAudio struct {
	ID           int64
	VoiceModelID int64
	SentenceID   int64
	StorageKey   string
	ByteSize     int64
	Duration     time.Duration // zero when the vendor reported none
	GenLatency   time.Duration
	VendorReqID  string
	CreatedAt    time.Time
}

// ModelLanguage is one row of the model-language support relation.
type ModelLanguage struct {
	VoiceModelID int64
	LanguageID   int64
}
