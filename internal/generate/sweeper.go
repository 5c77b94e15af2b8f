package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/voxarena/voxarena/internal/catalog"
)

const (
	// DefaultMaxPairs bounds how many missing pairs one sweep generates.
	DefaultMaxPairs = 500

	// maxSweepErrors caps the recorded error detail per sweep. Failing
	// pairs past the cap are still counted as skips.
	maxSweepErrors = 50
)

// SweepOptions filters and bounds one pre-generation run.
type SweepOptions struct {
	// MaxPairs caps the number of pairs generated. Zero means
	// DefaultMaxPairs.
	MaxPairs int

	// LanguageID restricts the sweep to sentences in one language.
	// Zero means all languages.
	LanguageID int64
}

// SweepSummary reports one sweep run. Skipped counts enumerated pairs
// that were neither generated nor recorded as errors.
type SweepSummary struct {
	Generated int
	Skipped   int
	Errors    []string
}

// Sweeper fills the audio cache ahead of demand by generating every
// missing (model, sentence) pair whose model supports the sentence's
// language. It runs strictly sequentially and is meant for offline or
// scheduled use, not the user-facing request path.
type Sweeper struct {
	catalog      catalog.Store
	orchestrator *Orchestrator
}

// NewSweeper creates a Sweeper over the given catalog and orchestrator.
func NewSweeper(cat catalog.Store, orch *Orchestrator) *Sweeper {
	return &Sweeper{catalog: cat, orchestrator: orch}
}

// PreGenerate enumerates active sentences against active models, keeps the
// pairs where the model supports the sentence's language and no cache
// entry exists yet, and generates them one at a time. Per-pair failures
// are recorded and the run continues; after maxSweepErrors failures
// further failing pairs are only counted.
func (s *Sweeper) PreGenerate(ctx context.Context, opts SweepOptions) (*SweepSummary, error) {
	maxPairs := opts.MaxPairs
	if maxPairs <= 0 {
		maxPairs = DefaultMaxPairs
	}
	runID := uuid.NewString()
	log := slog.With("sweep_run", runID)

	sentences, err := s.catalog.ActiveSentences(ctx, opts.LanguageID)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	models, err := s.catalog.ActiveModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	supported, err := s.supportSet(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := s.cachedSet(ctx)
	if err != nil {
		return nil, err
	}

	// Enumerate the cross product, keeping eligible pairs up to maxPairs.
	type pairKey = catalog.ModelSentence
	var pending []pairKey
	for _, sentence := range sentences {
		for _, model := range models {
			if len(pending) >= maxPairs {
				break
			}
			if !supported[catalog.ModelLanguage{VoiceModelID: model.ID, LanguageID: sentence.LanguageID}] {
				continue
			}
			key := pairKey{VoiceModelID: model.ID, SentenceID: sentence.ID}
			if cached[key] {
				continue
			}
			pending = append(pending, key)
		}
	}

	log.InfoContext(ctx, "sweep starting",
		"sentences", len(sentences),
		"models", len(models),
		"pending_pairs", len(pending),
	)

	summary := &SweepSummary{}
	for _, pair := range pending {
		if _, err := s.orchestrator.GenerateAndStore(ctx, pair.VoiceModelID, pair.SentenceID); err != nil {
			if len(summary.Errors) < maxSweepErrors {
				summary.Errors = append(summary.Errors,
					fmt.Sprintf("model %d sentence %d: %v", pair.VoiceModelID, pair.SentenceID, err))
			} else {
				summary.Skipped++
			}
			s.orchestrator.metrics.RecordSweepPair(ctx, "error")
			continue
		}
		summary.Generated++
		s.orchestrator.metrics.RecordSweepPair(ctx, "generated")
	}

	log.InfoContext(ctx, "sweep finished",
		"generated", summary.Generated,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

// supportSet loads the model-language relation as a membership set.
func (s *Sweeper) supportSet(ctx context.Context) (map[catalog.ModelLanguage]bool, error) {
	pairs, err := s.catalog.ModelLanguagePairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: model languages: %w", err)
	}
	set := make(map[catalog.ModelLanguage]bool, len(pairs))
	for _, p := range pairs {
		set[p] = true
	}
	return set, nil
}

// cachedSet loads the already-generated pairs as a membership set.
func (s *Sweeper) cachedSet(ctx context.Context) (map[catalog.ModelSentence]bool, error) {
	pairs, err := s.catalog.CachedPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: cached pairs: %w", err)
	}
	set := make(map[catalog.ModelSentence]bool, len(pairs))
	for _, p := range pairs {
		set[p] = true
	}
	return set, nil
}
