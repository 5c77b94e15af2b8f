package resilience

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultFailureThreshold is the consecutive-failure count at which a
// provider outage warning is raised.
const DefaultFailureThreshold = 5

// Monitor tracks consecutive vendor failures per provider and raises an
// operational warning once a provider crosses the threshold. It is purely
// observational: it never blocks, disables, or reroutes calls. It exists
// to surface vendor outages to operators, not to enforce availability.
//
// State is process-local and never persisted; a restart clears all
// counters. Monitor is safe for concurrent use.
type Monitor struct {
	threshold int

	// onThreshold, when non-nil, is invoked on every failure at or past
	// the threshold. Tests use it to observe warnings.
	onThreshold func(provider string, count int)

	mu       sync.Mutex
	failures map[string]int
}

// MonitorOption configures a [Monitor].
type MonitorOption func(*Monitor)

// WithThreshold overrides the warning threshold. Values < 1 are ignored.
func WithThreshold(n int) MonitorOption {
	return func(m *Monitor) {
		if n >= 1 {
			m.threshold = n
		}
	}
}

// WithThresholdHook installs fn to be called whenever a failure is
// recorded at or past the threshold.
func WithThresholdHook(fn func(provider string, count int)) MonitorOption {
	return func(m *Monitor) {
		m.onThreshold = fn
	}
}

// NewMonitor creates a [Monitor] with the default threshold of 5.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		threshold: DefaultFailureThreshold,
		failures:  make(map[string]int),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// RecordFailure increments the consecutive-failure counter for provider.
// Once the counter reaches the threshold, a warning is logged on this and
// every further failure until a success resets the counter, so a sustained
// outage stays visible instead of warning once and going quiet.
func (m *Monitor) RecordFailure(ctx context.Context, provider string) {
	m.mu.Lock()
	m.failures[provider]++
	count := m.failures[provider]
	hook := m.onThreshold
	threshold := m.threshold
	m.mu.Unlock()

	if count >= threshold {
		slog.WarnContext(ctx, "provider failing repeatedly, possible vendor outage",
			"provider", provider,
			"consecutive_failures", count,
		)
		if hook != nil {
			hook(provider, count)
		}
	}
}

// RecordSuccess resets the consecutive-failure counter for provider.
func (m *Monitor) RecordSuccess(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, provider)
}

// Failures returns the current consecutive-failure count for provider.
func (m *Monitor) Failures(provider string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[provider]
}
