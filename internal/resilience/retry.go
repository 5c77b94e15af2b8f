// Package resilience wraps single vendor-adapter invocations with a hard
// per-attempt deadline and a fixed retry schedule, and tracks per-provider
// consecutive failures through an observational [Monitor].
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

const (
	// DefaultAttemptTimeout is the hard deadline for one adapter attempt.
	DefaultAttemptTimeout = 30 * time.Second
)

// DefaultSchedule holds the waits between attempts: one retry after 1s and
// a second after 3s, then give up.
var DefaultSchedule = []time.Duration{time.Second, 3 * time.Second}

// CallConfig tunes a [Call]. Zero-value fields use the defaults above.
type CallConfig struct {
	// Provider is the provider slug, used for log context and timeout
	// error attribution.
	Provider string

	// VendorModelID annotates timeout errors. Optional.
	VendorModelID string

	// AttemptTimeout is the per-attempt deadline. Default: 30s.
	AttemptTimeout time.Duration

	// Schedule holds the waits before each retry; its length caps the
	// retry count. Default: [1s, 3s].
	Schedule []time.Duration

	// sleep is the wait implementation, injectable by tests. Default:
	// context-aware sleep.
	sleep func(context.Context, time.Duration) error
}

// WithSleep returns a copy of cfg that waits using fn instead of a real
// timer. Used by tests to observe retry waits without slowing the suite.
func (c CallConfig) WithSleep(fn func(context.Context, time.Duration) error) CallConfig {
	c.sleep = fn
	return c
}

// attemptResult carries the outcome of one attempt out of its goroutine.
type attemptResult struct {
	result *tts.Result
	err    error
}

// Call invokes fn with retries. Each attempt runs under its own deadline;
// an attempt that neither returns nor honors cancellation is abandoned at
// the deadline and reported as a transient timeout error rather than hung
// on. Only transient failures (timeouts, connection resets, vendor 5xx,
// classified by the typed error rather than message text) are retried; all
// others propagate immediately. After exhausting the schedule the last
// error is propagated unchanged.
func Call(ctx context.Context, cfg CallConfig, fn func(context.Context) (*tts.Result, error)) (*tts.Result, error) {
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = DefaultSchedule
	}
	sleep := cfg.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := runAttempt(ctx, timeout, cfg, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !tts.Retryable(err) || attempt >= len(schedule) {
			return nil, lastErr
		}

		wait := schedule[attempt]
		slog.Warn("vendor call failed, retrying",
			"provider", cfg.Provider,
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)
		if err := sleep(ctx, wait); err != nil {
			// Caller cancelled during the wait; the last vendor error is
			// more useful than a bare context error.
			return nil, lastErr
		}
	}
}

// runAttempt executes fn once under a fresh deadline. fn runs in its own
// goroutine so that a non-returning adapter cannot hang the caller: the
// deadline also cancels the attempt context, which aborts any in-flight
// network call the adapter started.
func runAttempt(ctx context.Context, timeout time.Duration, cfg CallConfig, fn func(context.Context) (*tts.Result, error)) (*tts.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		result, err := fn(attemptCtx)
		done <- attemptResult{result: result, err: err}
	}()

	select {
	case res := <-done:
		return res.result, res.err
	case <-attemptCtx.Done():
		return nil, &tts.Error{
			Provider:      cfg.Provider,
			VendorModelID: cfg.VendorModelID,
			Latency:       timeout,
			Kind:          tts.KindTransient,
			Err:           attemptCtx.Err(),
		}
	}
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
