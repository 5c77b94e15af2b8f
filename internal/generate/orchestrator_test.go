package generate_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/voxarena/voxarena/internal/catalog"
	"github.com/voxarena/voxarena/internal/generate"
	"github.com/voxarena/voxarena/internal/objectstore"
	"github.com/voxarena/voxarena/internal/observe"
	"github.com/voxarena/voxarena/internal/resilience"
	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// fakeCatalog is an in-memory catalog.Store for orchestrator tests.
type fakeCatalog struct {
	mu          sync.Mutex
	providers   map[int64]catalog.Provider
	models      map[int64]catalog.VoiceModel
	sentences   map[int64]catalog.Sentence
	languages   map[int64]catalog.Language
	locales     map[string]string // providerID/voiceID -> locale
	credentials map[int64]string
	support     map[catalog.ModelLanguage]bool
	cache       map[catalog.ModelSentence]catalog.CachedAudio
	nextAudioID int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		providers:   map[int64]catalog.Provider{},
		models:      map[int64]catalog.VoiceModel{},
		sentences:   map[int64]catalog.Sentence{},
		languages:   map[int64]catalog.Language{},
		locales:     map[string]string{},
		credentials: map[int64]string{},
		support:     map[catalog.ModelLanguage]bool{},
		cache:       map[catalog.ModelSentence]catalog.CachedAudio{},
	}
}

func (f *fakeCatalog) VoiceModel(_ context.Context, id int64) (*catalog.VoiceModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.models[id]
	if !ok {
		return nil, fmt.Errorf("voice model %d: %w", id, catalog.ErrNotFound)
	}
	return &m, nil
}

func (f *fakeCatalog) Sentence(_ context.Context, id int64) (*catalog.Sentence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sentences[id]
	if !ok {
		return nil, fmt.Errorf("sentence %d: %w", id, catalog.ErrNotFound)
	}
	return &s, nil
}

func (f *fakeCatalog) Provider(_ context.Context, id int64) (*catalog.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider %d: %w", id, catalog.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeCatalog) Language(_ context.Context, id int64) (*catalog.Language, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.languages[id]
	if !ok {
		return nil, fmt.Errorf("language %d: %w", id, catalog.ErrNotFound)
	}
	return &l, nil
}

func (f *fakeCatalog) VoiceLocale(_ context.Context, providerID int64, voiceID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	locale, ok := f.locales[fmt.Sprintf("%d/%s", providerID, voiceID)]
	if !ok || locale == "" {
		return "", fmt.Errorf("voice locale: %w", catalog.ErrNotFound)
	}
	return locale, nil
}

func (f *fakeCatalog) ActiveCredential(_ context.Context, providerID int64) (*catalog.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	secret, ok := f.credentials[providerID]
	if !ok {
		return nil, fmt.Errorf("credential for provider %d: %w", providerID, catalog.ErrNotFound)
	}
	return &catalog.Credential{ProviderID: providerID, Secret: secret}, nil
}

func (f *fakeCatalog) CachedAudio(_ context.Context, modelID, sentenceID int64) (*catalog.CachedAudio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.cache[catalog.ModelSentence{VoiceModelID: modelID, SentenceID: sentenceID}]
	if !ok {
		return nil, fmt.Errorf("cached audio: %w", catalog.ErrNotFound)
	}
	return &entry, nil
}

func (f *fakeCatalog) InsertCachedAudio(_ context.Context, entry catalog.CachedAudio) (*catalog.CachedAudio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := catalog.ModelSentence{VoiceModelID: entry.VoiceModelID, SentenceID: entry.SentenceID}
	if existing, ok := f.cache[key]; ok {
		return &existing, nil
	}
	f.nextAudioID++
	entry.ID = f.nextAudioID
	f.cache[key] = entry
	return &entry, nil
}

func (f *fakeCatalog) ActiveSentences(_ context.Context, languageID int64) ([]catalog.Sentence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Sentence
	for id := int64(1); id <= int64(len(f.sentences)); id++ {
		s, ok := f.sentences[id]
		if !ok || !s.Active {
			continue
		}
		if languageID != 0 && s.LanguageID != languageID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeCatalog) ActiveModels(_ context.Context) ([]catalog.VoiceModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.VoiceModel
	for id := int64(1); id <= int64(len(f.models)); id++ {
		if m, ok := f.models[id]; ok && m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ModelLanguagePairs(_ context.Context) ([]catalog.ModelLanguage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.ModelLanguage
	for pair, ok := range f.support {
		if ok {
			out = append(out, pair)
		}
	}
	return out, nil
}

func (f *fakeCatalog) CachedPairs(_ context.Context) ([]catalog.ModelSentence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.ModelSentence
	for key := range f.cache {
		out = append(out, key)
	}
	return out, nil
}

// countingAdapter returns canned audio and counts invocations.
type countingAdapter struct {
	mu     sync.Mutex
	calls  int
	result *tts.Result
	err    error
}

func (a *countingAdapter) Generate(_ context.Context, _ tts.Request) (*tts.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func (a *countingAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// newTestOrchestrator wires an orchestrator over the fakes with a fast
// retry schedule.
func newTestOrchestrator(t *testing.T, cat *fakeCatalog, reg *tts.Registry) (*generate.Orchestrator, *objectstore.MemoryStore) {
	t.Helper()
	metrics, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	store := objectstore.NewMemoryStore(objectstore.NewURLSigner("https://cdn.test/audio", []byte("secret")))
	cfg := resilience.CallConfig{
		AttemptTimeout: time.Second,
		Schedule:       []time.Duration{},
	}
	orch := generate.NewOrchestrator(cat, store, reg, resilience.NewMonitor(), metrics, cfg)
	return orch, store
}

// seedDemo populates the fake catalog with one provider/model/sentence.
func seedDemo(cat *fakeCatalog) {
	cat.providers[1] = catalog.Provider{ID: 1, Slug: "demo", Name: "Demo"}
	cat.languages[1] = catalog.Language{ID: 1, Code: "en"}
	cat.models[1] = catalog.VoiceModel{ID: 1, ProviderID: 1, VendorModelID: "x1", Gender: tts.GenderFemale, Active: true}
	cat.sentences[1] = catalog.Sentence{ID: 1, Text: "Hello world", LanguageID: 1, Active: true}
	cat.credentials[1] = "sk-demo"
	cat.support[catalog.ModelLanguage{VoiceModelID: 1, LanguageID: 1}] = true
}

func TestGenerateAndStoreEndToEnd(t *testing.T) {
	cat := newFakeCatalog()
	seedDemo(cat)
	adapter := &countingAdapter{result: &tts.Result{
		Audio:       []byte("mp3-bytes"),
		ContentType: "audio/mpeg",
		Duration:    2 * time.Second,
	}}
	reg := tts.NewRegistry()
	reg.Register(adapter, "demo")

	orch, store := newTestOrchestrator(t, cat, reg)
	clip, err := orch.GenerateAndStore(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("GenerateAndStore: %v", err)
	}

	if clip.Cached {
		t.Error("first generation reported as cached")
	}
	if !strings.HasPrefix(clip.StorageKey, "demo/x1/en/1_") || !strings.HasSuffix(clip.StorageKey, ".mp3") {
		t.Errorf("StorageKey = %q, want demo/x1/en/1_<hash8>.mp3", clip.StorageKey)
	}
	if !strings.Contains(clip.SignedURL, clip.StorageKey) || !strings.Contains(clip.SignedURL, "sig=") {
		t.Errorf("SignedURL = %q, want signed url over the storage key", clip.SignedURL)
	}
	data, err := store.Download(context.Background(), clip.StorageKey)
	if err != nil || string(data) != "mp3-bytes" {
		t.Errorf("stored audio = %q, %v", data, err)
	}
}

func TestGenerateAndStoreCacheIdempotence(t *testing.T) {
	cat := newFakeCatalog()
	seedDemo(cat)
	adapter := &countingAdapter{result: &tts.Result{Audio: []byte("a"), ContentType: "audio/mpeg"}}
	reg := tts.NewRegistry()
	reg.Register(adapter, "demo")
	orch, _ := newTestOrchestrator(t, cat, reg)

	first, err := orch.GenerateAndStore(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := orch.GenerateAndStore(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if adapter.callCount() != 1 {
		t.Errorf("adapter calls = %d, want 1", adapter.callCount())
	}
	if !second.Cached {
		t.Error("second call not reported as cached")
	}
	if second.StorageKey != first.StorageKey {
		t.Errorf("second key %q != first key %q", second.StorageKey, first.StorageKey)
	}
}

func TestGenerateAndStoreVoiceLocalePrecedence(t *testing.T) {
	cat := newFakeCatalog()
	seedDemo(cat)
	model := cat.models[1]
	model.VendorVoiceID = "v9"
	cat.models[1] = model
	cat.locales["1/v9"] = "en-GB"

	adapter := &countingAdapter{result: &tts.Result{Audio: []byte("a"), ContentType: "audio/mpeg"}}
	reg := tts.NewRegistry()
	reg.Register(adapter, "demo")
	orch, _ := newTestOrchestrator(t, cat, reg)

	clip, err := orch.GenerateAndStore(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("GenerateAndStore: %v", err)
	}
	if !strings.Contains(clip.StorageKey, "/en-GB/") {
		t.Errorf("StorageKey = %q, want the bound voice locale en-GB over the sentence language", clip.StorageKey)
	}
}

func TestGenerateAndStoreErrorClasses(t *testing.T) {
	ctx := context.Background()

	t.Run("missing model is not found before any vendor call", func(t *testing.T) {
		cat := newFakeCatalog()
		seedDemo(cat)
		adapter := &countingAdapter{result: &tts.Result{Audio: []byte("a")}}
		reg := tts.NewRegistry()
		reg.Register(adapter, "demo")
		orch, _ := newTestOrchestrator(t, cat, reg)

		_, err := orch.GenerateAndStore(ctx, 42, 1)
		if !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		if adapter.callCount() != 0 {
			t.Errorf("adapter was called %d times for a missing model", adapter.callCount())
		}
	})

	t.Run("unknown slug is a config error", func(t *testing.T) {
		cat := newFakeCatalog()
		seedDemo(cat)
		orch, _ := newTestOrchestrator(t, cat, tts.NewRegistry())

		_, err := orch.GenerateAndStore(ctx, 1, 1)
		if !errors.Is(err, tts.ErrNoAdapter) {
			t.Errorf("err = %v, want ErrNoAdapter", err)
		}
	})

	t.Run("vendor failure carries full context", func(t *testing.T) {
		cat := newFakeCatalog()
		seedDemo(cat)
		adapter := &countingAdapter{err: &tts.Error{
			Provider:   "demo",
			StatusCode: 401,
			Kind:       tts.KindValidation,
			Err:        errors.New("bad key"),
		}}
		reg := tts.NewRegistry()
		reg.Register(adapter, "demo")
		orch, _ := newTestOrchestrator(t, cat, reg)

		_, err := orch.GenerateAndStore(ctx, 1, 1)
		terr := tts.AsError(err)
		if terr == nil {
			t.Fatalf("err = %v, want a typed vendor error", err)
		}
		if terr.VendorModelID != "x1" || terr.SentenceID != 1 {
			t.Errorf("error context = %+v, want vendor model x1 and sentence 1", terr)
		}
		if errors.Is(err, catalog.ErrNotFound) {
			t.Error("vendor failure must not look like a not-found error")
		}
	})

	t.Run("nothing cached on failure", func(t *testing.T) {
		cat := newFakeCatalog()
		seedDemo(cat)
		adapter := &countingAdapter{err: &tts.Error{Kind: tts.KindValidation, Err: errors.New("boom")}}
		reg := tts.NewRegistry()
		reg.Register(adapter, "demo")
		orch, objects := newTestOrchestrator(t, cat, reg)

		if _, err := orch.GenerateAndStore(ctx, 1, 1); err == nil {
			t.Fatal("want error")
		}
		if len(cat.cache) != 0 {
			t.Errorf("cache rows after failure = %d, want 0", len(cat.cache))
		}
		if objects.Len() != 0 {
			t.Errorf("stored objects after failure = %d, want 0", objects.Len())
		}
	})
}

func TestGenerateAndStorePair(t *testing.T) {
	ctx := context.Background()

	setup := func(failB bool) (*generate.Orchestrator, *fakeCatalog, *countingAdapter, *countingAdapter) {
		cat := newFakeCatalog()
		seedDemo(cat)
		cat.providers[2] = catalog.Provider{ID: 2, Slug: "other", Name: "Other"}
		cat.models[2] = catalog.VoiceModel{ID: 2, ProviderID: 2, VendorModelID: "y2", Gender: tts.GenderMale, Active: true}
		cat.credentials[2] = "sk-other"
		cat.support[catalog.ModelLanguage{VoiceModelID: 2, LanguageID: 1}] = true

		adapterA := &countingAdapter{result: &tts.Result{Audio: []byte("aaa"), ContentType: "audio/mpeg"}}
		adapterB := &countingAdapter{result: &tts.Result{Audio: []byte("bbb"), ContentType: "audio/mpeg"}}
		if failB {
			adapterB.result = nil
			adapterB.err = &tts.Error{Kind: tts.KindTransient, StatusCode: 503, Err: errors.New("down")}
		}
		reg := tts.NewRegistry()
		reg.Register(adapterA, "demo")
		reg.Register(adapterB, "other")
		orch, _ := newTestOrchestrator(t, cat, reg)
		return orch, cat, adapterA, adapterB
	}

	t.Run("both legs succeed", func(t *testing.T) {
		orch, _, adapterA, adapterB := setup(false)
		pair, err := orch.GenerateAndStorePair(ctx, 1, 2, 1)
		if err != nil {
			t.Fatalf("GenerateAndStorePair: %v", err)
		}
		if pair.A.StorageKey == pair.B.StorageKey {
			t.Error("both legs produced the same storage key")
		}
		if adapterA.callCount() != 1 || adapterB.callCount() != 1 {
			t.Errorf("adapter calls = %d/%d, want 1/1", adapterA.callCount(), adapterB.callCount())
		}
	})

	t.Run("one failing leg fails the pair", func(t *testing.T) {
		orch, _, _, _ := setup(true)
		pair, err := orch.GenerateAndStorePair(ctx, 1, 2, 1)
		if err == nil {
			t.Fatal("want error when one leg fails")
		}
		if pair != nil {
			t.Errorf("pair = %+v, want nil on failure", pair)
		}
	})
}
