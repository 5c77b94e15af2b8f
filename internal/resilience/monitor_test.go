package resilience

import (
	"context"
	"testing"
)

func TestMonitorWarnsAtThreshold(t *testing.T) {
	type warning struct {
		provider string
		count    int
	}
	var warnings []warning
	m := NewMonitor(WithThresholdHook(func(provider string, count int) {
		warnings = append(warnings, warning{provider, count})
	}))

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		m.RecordFailure(ctx, "acme")
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings before threshold = %v, want none", warnings)
	}

	m.RecordFailure(ctx, "acme")
	if len(warnings) != 1 || warnings[0] != (warning{"acme", 5}) {
		t.Fatalf("warnings at threshold = %v, want exactly [{acme 5}]", warnings)
	}
}

func TestMonitorKeepsWarningPastThreshold(t *testing.T) {
	var counts []int
	m := NewMonitor(WithThresholdHook(func(_ string, count int) {
		counts = append(counts, count)
	}))

	ctx := context.Background()
	for i := 0; i < 7; i++ {
		m.RecordFailure(ctx, "acme")
	}
	want := []int{5, 6, 7}
	if len(counts) != len(want) {
		t.Fatalf("warning counts = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("warning %d count = %d, want %d", i, counts[i], want[i])
		}
	}
}

func TestMonitorResetsOnSuccess(t *testing.T) {
	warned := 0
	m := NewMonitor(WithThresholdHook(func(string, int) { warned++ }))

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		m.RecordFailure(ctx, "acme")
	}
	if warned != 2 {
		t.Fatalf("warnings before reset = %d, want 2", warned)
	}

	m.RecordSuccess("acme")
	if got := m.Failures("acme"); got != 0 {
		t.Fatalf("Failures after success = %d, want 0", got)
	}

	// One failure after a reset must not re-trigger the warning.
	m.RecordFailure(ctx, "acme")
	if warned != 2 {
		t.Errorf("warnings after post-reset failure = %d, want still 2", warned)
	}
	if got := m.Failures("acme"); got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}
}

func TestMonitorTracksProvidersIndependently(t *testing.T) {
	var providers []string
	m := NewMonitor(WithThreshold(2), WithThresholdHook(func(provider string, _ int) {
		providers = append(providers, provider)
	}))

	ctx := context.Background()
	m.RecordFailure(ctx, "acme")
	m.RecordFailure(ctx, "globex")
	if len(providers) != 0 {
		t.Fatalf("warnings = %v, want none yet", providers)
	}

	m.RecordFailure(ctx, "globex")
	if len(providers) != 1 || providers[0] != "globex" {
		t.Fatalf("warnings = %v, want [globex]", providers)
	}
	if got := m.Failures("acme"); got != 1 {
		t.Errorf("acme failures = %d, want 1", got)
	}
}
