package generate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/voxarena/voxarena/internal/catalog"
	"github.com/voxarena/voxarena/internal/generate"
	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// seedSweep populates the fake catalog with one provider and model plus n
// active English sentences, all supported and uncached.
func seedSweep(cat *fakeCatalog, n int) {
	cat.providers[1] = catalog.Provider{ID: 1, Slug: "demo", Name: "Demo"}
	cat.languages[1] = catalog.Language{ID: 1, Code: "en"}
	cat.models[1] = catalog.VoiceModel{ID: 1, ProviderID: 1, VendorModelID: "x1", Active: true}
	cat.credentials[1] = "sk-demo"
	cat.support[catalog.ModelLanguage{VoiceModelID: 1, LanguageID: 1}] = true
	for i := 1; i <= n; i++ {
		cat.sentences[int64(i)] = catalog.Sentence{
			ID:         int64(i),
			Text:       fmt.Sprintf("Sentence %d", i),
			LanguageID: 1,
			Active:     true,
		}
	}
}

func TestPreGenerateFillsMissingPairs(t *testing.T) {
	cat := newFakeCatalog()
	seedSweep(cat, 4)
	// Pair (1, 2) is already cached and must be skipped.
	cat.cache[catalog.ModelSentence{VoiceModelID: 1, SentenceID: 2}] = catalog.CachedAudio{
		ID: 99, VoiceModelID: 1, SentenceID: 2, StorageKey: "demo/x1/en/2_cached.mp3",
	}

	adapter := &countingAdapter{result: &tts.Result{Audio: []byte("a"), ContentType: "audio/mpeg"}}
	reg := tts.NewRegistry()
	reg.Register(adapter, "demo")
	orch, _ := newTestOrchestrator(t, cat, reg)

	summary, err := generate.NewSweeper(cat, orch).PreGenerate(context.Background(), generate.SweepOptions{})
	if err != nil {
		t.Fatalf("PreGenerate: %v", err)
	}

	if summary.Generated != 3 {
		t.Errorf("Generated = %d, want 3", summary.Generated)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("Errors = %v, want none", summary.Errors)
	}
	if adapter.callCount() != 3 {
		t.Errorf("adapter calls = %d, want 3 (cached pair must not hit the vendor)", adapter.callCount())
	}
	if len(cat.cache) != 4 {
		t.Errorf("cache rows = %d, want 4", len(cat.cache))
	}
}

func TestPreGenerateHonorsMaxPairs(t *testing.T) {
	cat := newFakeCatalog()
	seedSweep(cat, 10)

	adapter := &countingAdapter{result: &tts.Result{Audio: []byte("a"), ContentType: "audio/mpeg"}}
	reg := tts.NewRegistry()
	reg.Register(adapter, "demo")
	orch, _ := newTestOrchestrator(t, cat, reg)

	summary, err := generate.NewSweeper(cat, orch).PreGenerate(context.Background(), generate.SweepOptions{MaxPairs: 3})
	if err != nil {
		t.Fatalf("PreGenerate: %v", err)
	}
	if summary.Generated != 3 {
		t.Errorf("Generated = %d, want 3", summary.Generated)
	}
	if adapter.callCount() != 3 {
		t.Errorf("adapter calls = %d, want 3", adapter.callCount())
	}
}

func TestPreGenerateRecordsPerPairErrorsAndContinues(t *testing.T) {
	cat := newFakeCatalog()
	seedSweep(cat, 5)

	adapter := &countingAdapter{err: &tts.Error{
		Provider: "demo", Kind: tts.KindValidation, Err: errors.New("rejected"),
	}}
	reg := tts.NewRegistry()
	reg.Register(adapter, "demo")
	orch, _ := newTestOrchestrator(t, cat, reg)

	summary, err := generate.NewSweeper(cat, orch).PreGenerate(context.Background(), generate.SweepOptions{})
	if err != nil {
		t.Fatalf("PreGenerate: %v", err)
	}
	if summary.Generated != 0 {
		t.Errorf("Generated = %d, want 0", summary.Generated)
	}
	if len(summary.Errors) != 5 {
		t.Errorf("Errors = %d, want 5", len(summary.Errors))
	}
	if adapter.callCount() != 5 {
		t.Errorf("adapter calls = %d, want 5 (one failure must not stop the run)", adapter.callCount())
	}
}

func TestPreGenerateLanguageFilter(t *testing.T) {
	cat := newFakeCatalog()
	seedSweep(cat, 2)
	cat.languages[2] = catalog.Language{ID: 2, Code: "de"}
	cat.sentences[3] = catalog.Sentence{ID: 3, Text: "Hallo Welt", LanguageID: 2, Active: true}
	cat.support[catalog.ModelLanguage{VoiceModelID: 1, LanguageID: 2}] = true

	adapter := &countingAdapter{result: &tts.Result{Audio: []byte("a"), ContentType: "audio/mpeg"}}
	reg := tts.NewRegistry()
	reg.Register(adapter, "demo")
	orch, _ := newTestOrchestrator(t, cat, reg)

	summary, err := generate.NewSweeper(cat, orch).PreGenerate(context.Background(), generate.SweepOptions{LanguageID: 2})
	if err != nil {
		t.Fatalf("PreGenerate: %v", err)
	}
	if summary.Generated != 1 {
		t.Errorf("Generated = %d, want only the German sentence", summary.Generated)
	}
}

func TestPreGenerateSkipsUnsupportedLanguages(t *testing.T) {
	cat := newFakeCatalog()
	seedSweep(cat, 2)
	// Sentence 3 is in a language the model does not support.
	cat.languages[2] = catalog.Language{ID: 2, Code: "fr"}
	cat.sentences[3] = catalog.Sentence{ID: 3, Text: "Bonjour", LanguageID: 2, Active: true}

	adapter := &countingAdapter{result: &tts.Result{Audio: []byte("a"), ContentType: "audio/mpeg"}}
	reg := tts.NewRegistry()
	reg.Register(adapter, "demo")
	orch, _ := newTestOrchestrator(t, cat, reg)

	summary, err := generate.NewSweeper(cat, orch).PreGenerate(context.Background(), generate.SweepOptions{})
	if err != nil {
		t.Fatalf("PreGenerate: %v", err)
	}
	if summary.Generated != 2 {
		t.Errorf("Generated = %d, want 2 (unsupported pair must not be attempted)", summary.Generated)
	}
	if adapter.callCount() != 2 {
		t.Errorf("adapter calls = %d, want 2", adapter.callCount())
	}
}
