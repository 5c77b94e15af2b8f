// Package generate orchestrates single-clip and paired audio generation on
// top of the catalog, the object store, the adapter registry, and the
// resilience layer, plus the pre-generation sweeper that fills the cache
// offline.
package generate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxarena/voxarena/internal/catalog"
	"github.com/voxarena/voxarena/internal/objectstore"
	"github.com/voxarena/voxarena/internal/observe"
	"github.com/voxarena/voxarena/internal/resilience"
	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// DefaultURLTTL is the default expiry of returned signed URLs.
const DefaultURLTTL = time.Hour

// Clip is the result of one generation: a cache row id, its storage key,
// and a time-limited download URL. Cached reports whether the clip was
// served from the cache without a vendor call.
type Clip struct {
	AudioID    int64
	StorageKey string
	SignedURL  string
	Cached     bool
}

// Pair holds the two clips produced by [Orchestrator.GenerateAndStorePair].
type Pair struct {
	A Clip
	B Clip
}

// Option adjusts one generation call.
type Option func(*callOpts)

type callOpts struct {
	urlTTL time.Duration
}

// WithURLTTL overrides the signed-URL expiry (default one hour).
func WithURLTTL(ttl time.Duration) Option {
	return func(o *callOpts) {
		if ttl > 0 {
			o.urlTTL = ttl
		}
	}
}

// Orchestrator implements the generation pipeline. All methods are safe
// for concurrent use; the only shared mutable state is the failure monitor
// and the cache, both of which tolerate concurrent access.
type Orchestrator struct {
	catalog  catalog.Store
	objects  objectstore.Store
	registry *tts.Registry
	monitor  *resilience.Monitor
	metrics  *observe.Metrics

	// callCfg carries the per-attempt deadline and retry schedule; tests
	// shrink it through NewOrchestrator's cfg parameter.
	callCfg resilience.CallConfig
}

// NewOrchestrator wires the pipeline together. metrics may not be nil; use
// [observe.DefaultMetrics] when no custom meter provider is needed.
// callCfg's Provider and VendorModelID fields are stamped per call.
func NewOrchestrator(
	cat catalog.Store,
	objects objectstore.Store,
	registry *tts.Registry,
	monitor *resilience.Monitor,
	metrics *observe.Metrics,
	callCfg resilience.CallConfig,
) *Orchestrator {
	return &Orchestrator{
		catalog:  cat,
		objects:  objects,
		registry: registry,
		monitor:  monitor,
		metrics:  metrics,
		callCfg:  callCfg,
	}
}

// GenerateAndStore produces (or retrieves) the audio clip for one
// (voice model, sentence) pair.
//
// The pipeline: resolve model and sentence (distinct not-found errors
// before any vendor work), resolve the effective language (a bound voice
// locale beats the sentence's nominal language), resolve the provider,
// check the cache (a hit short-circuits with a fresh signed URL and no
// vendor call), fetch the active credential just-in-time, look up the
// adapter, invoke it through the resilience wrapper measuring wall-clock
// latency, and on success upload the audio, insert the cache row, and sign
// a download URL. Failures are wrapped with provider, model, and sentence
// context and never cached.
func (o *Orchestrator) GenerateAndStore(ctx context.Context, modelID, sentenceID int64, opts ...Option) (*Clip, error) {
	call := callOpts{urlTTL: DefaultURLTTL}
	for _, opt := range opts {
		opt(&call)
	}

	model, err := o.catalog.VoiceModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	sentence, err := o.catalog.Sentence(ctx, sentenceID)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	lang, err := o.effectiveLanguage(ctx, model, sentence)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	provider, err := o.catalog.Provider(ctx, model.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	// Cache check. A hit is the idempotency boundary: no vendor call, no
	// write, just a fresh signed URL over the stored key.
	if entry, err := o.catalog.CachedAudio(ctx, modelID, sentenceID); err == nil {
		url, err := o.objects.SignedURL(ctx, entry.StorageKey, call.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("generate: sign cached url: %w", err)
		}
		o.metrics.RecordCacheHit(ctx, provider.Slug)
		return &Clip{AudioID: entry.ID, StorageKey: entry.StorageKey, SignedURL: url, Cached: true}, nil
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("generate: cache lookup: %w", err)
	}

	cred, err := o.catalog.ActiveCredential(ctx, model.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	adapter, err := o.registry.Lookup(provider.Slug)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	req := tts.Request{
		Text:          sentence.Text,
		VendorModelID: model.VendorModelID,
		VendorVoiceID: model.VendorVoiceID,
		LanguageCode:  lang,
		Gender:        model.Gender,
		Credential:    cred.Secret,
		BaseURL:       provider.BaseURL,
	}

	cfg := o.callCfg
	cfg.Provider = provider.Slug
	cfg.VendorModelID = model.VendorModelID

	start := time.Now()
	result, err := resilience.Call(ctx, cfg, func(ctx context.Context) (*tts.Result, error) {
		return adapter.Generate(ctx, req)
	})
	latency := time.Since(start)
	o.metrics.RecordTTSDuration(ctx, provider.Slug, latency.Seconds())

	if err != nil {
		o.monitor.RecordFailure(ctx, provider.Slug)
		o.metrics.RecordProviderRequest(ctx, provider.Slug, "error")
		o.metrics.RecordProviderError(ctx, provider.Slug, errorKind(err))

		wrapped := contextualize(err, provider.Slug, model.VendorModelID, sentenceID, latency)
		slog.ErrorContext(ctx, "generation failed",
			"provider", provider.Slug,
			"vendor_model", model.VendorModelID,
			"sentence", sentenceID,
			"latency", latency,
			"error", wrapped,
		)
		return nil, wrapped
	}

	o.monitor.RecordSuccess(provider.Slug)
	o.metrics.RecordProviderRequest(ctx, provider.Slug, "ok")

	key := storageKey(provider.Slug, model.VendorModelID, lang, sentenceID, result)
	if err := o.objects.Upload(ctx, key, result.Audio); err != nil {
		return nil, fmt.Errorf("generate: upload %q: %w", key, err)
	}

	entry, err := o.catalog.InsertCachedAudio(ctx, catalog.CachedAudio{
		VoiceModelID: modelID,
		SentenceID:   sentenceID,
		StorageKey:   key,
		ByteSize:     int64(len(result.Audio)),
		Duration:     result.Duration,
		GenLatency:   latency,
		VendorReqID:  result.VendorRequestID,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: cache insert: %w", err)
	}

	url, err := o.objects.SignedURL(ctx, entry.StorageKey, call.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("generate: sign url: %w", err)
	}

	slog.InfoContext(ctx, "clip generated",
		"provider", provider.Slug,
		"vendor_model", model.VendorModelID,
		"sentence", sentenceID,
		"bytes", len(result.Audio),
		"latency", latency,
	)
	return &Clip{AudioID: entry.ID, StorageKey: entry.StorageKey, SignedURL: url}, nil
}

// GenerateAndStorePair generates the same sentence against two models
// concurrently. Both legs must succeed; on any failure no partial result
// is returned, so callers never reference a half-complete pair.
func (o *Orchestrator) GenerateAndStorePair(ctx context.Context, modelAID, modelBID, sentenceID int64, opts ...Option) (*Pair, error) {
	var pair Pair
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		clip, err := o.GenerateAndStore(ctx, modelAID, sentenceID, opts...)
		if err != nil {
			return err
		}
		pair.A = *clip
		return nil
	})
	g.Go(func() error {
		clip, err := o.GenerateAndStore(ctx, modelBID, sentenceID, opts...)
		if err != nil {
			return err
		}
		pair.B = *clip
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &pair, nil
}

// effectiveLanguage resolves the language code used for the vendor call.
// When the model has a bound vendor voice with its own locale, that locale
// wins over the sentence's nominal language, avoiding vendor locale
// mismatches.
func (o *Orchestrator) effectiveLanguage(ctx context.Context, model *catalog.VoiceModel, sentence *catalog.Sentence) (string, error) {
	language, err := o.catalog.Language(ctx, sentence.LanguageID)
	if err != nil {
		return "", err
	}
	code := language.Code

	if model.VendorVoiceID != "" {
		locale, err := o.catalog.VoiceLocale(ctx, model.ProviderID, model.VendorVoiceID)
		if err == nil && locale != "" {
			return locale, nil
		}
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return "", err
		}
	}
	return code, nil
}

// storageKey derives the deterministic object key for a generated clip:
// <slug>/<vendorModelID>/<lang>/<sentenceID>_<hash8>.<ext>, where hash8 is
// the first 8 hex characters of the SHA-256 of the audio bytes.
func storageKey(slug, vendorModelID, lang string, sentenceID int64, result *tts.Result) string {
	sum := sha256.Sum256(result.Audio)
	hash8 := hex.EncodeToString(sum[:])[:8]
	return fmt.Sprintf("%s/%s/%s/%d_%s.%s",
		slug, vendorModelID, lang, sentenceID, hash8, extension(result.ContentType))
}

// extension maps a content type to a file extension, defaulting to mp3.
func extension(contentType string) string {
	switch {
	case strings.Contains(contentType, "wav"):
		return "wav"
	case strings.Contains(contentType, "ogg"):
		return "ogg"
	case strings.Contains(contentType, "pcm"):
		return "pcm"
	default:
		return "mp3"
	}
}

// contextualize ensures the propagated error carries provider, model,
// sentence, and latency context. Typed vendor errors get the missing
// fields stamped in; anything else is wrapped in a new typed error.
func contextualize(err error, slug, vendorModelID string, sentenceID int64, latency time.Duration) error {
	if terr := tts.AsError(err); terr != nil {
		if terr.Provider == "" {
			terr.Provider = slug
		}
		if terr.VendorModelID == "" {
			terr.VendorModelID = vendorModelID
		}
		if terr.SentenceID == 0 {
			terr.SentenceID = sentenceID
		}
		if terr.Latency == 0 {
			terr.Latency = latency
		}
		return err
	}
	return &tts.Error{
		Provider:      slug,
		VendorModelID: vendorModelID,
		SentenceID:    sentenceID,
		Latency:       latency,
		Kind:          tts.KindTransient,
		Err:           err,
	}
}

// errorKind names the error class for metrics attributes.
func errorKind(err error) string {
	if terr := tts.AsError(err); terr != nil {
		return terr.Kind.String()
	}
	return "unknown"
}
