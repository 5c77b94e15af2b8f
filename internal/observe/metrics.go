// Package observe provides application-wide observability primitives for
// voxarena: OpenTelemetry metrics, tracing helpers, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxarena metrics.
const meterName = "github.com/voxarena/voxarena"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// TTSDuration tracks the wall-clock latency of one synthesis call,
	// retries included. Use with attribute.String("provider", ...).
	TTSDuration metric.Float64Histogram

	// ProviderRequests counts vendor API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts vendor failures. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// CacheHits counts generation requests served from the audio cache.
	CacheHits metric.Int64Counter

	// BreakerTrips counts failures recorded at or past the outage
	// threshold, per provider.
	BreakerTrips metric.Int64Counter

	// SweepPairs counts pre-generation sweep outcomes. Use with
	// attribute.String("outcome", "generated"|"skipped"|"error").
	SweepPairs metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// vendor synthesis latencies, which run from sub-second into the retried
// tens of seconds.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 40,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TTSDuration, err = m.Float64Histogram("voxarena.tts.duration",
		metric.WithDescription("Latency of one text-to-speech synthesis call, retries included."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("voxarena.provider.requests",
		metric.WithDescription("Total vendor API requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("voxarena.provider.errors",
		metric.WithDescription("Total vendor errors by provider and error kind."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("voxarena.cache.hits",
		metric.WithDescription("Generation requests served from the audio cache."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTrips, err = m.Int64Counter("voxarena.breaker.trips",
		metric.WithDescription("Failures recorded at or past the provider outage threshold."),
	); err != nil {
		return nil, err
	}
	if met.SweepPairs, err = m.Int64Counter("voxarena.sweep.pairs",
		metric.WithDescription("Pre-generation sweep outcomes by outcome."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxarena.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTTSDuration records the latency in seconds of one synthesis call.
func (m *Metrics) RecordTTSDuration(ctx context.Context, provider string, seconds float64) {
	m.TTSDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordProviderRequest records one vendor API call with its outcome.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records one vendor failure by error kind.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordCacheHit records a generation request served from the cache.
func (m *Metrics) RecordCacheHit(ctx context.Context, provider string) {
	m.CacheHits.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordBreakerTrip records a failure at or past the outage threshold.
func (m *Metrics) RecordBreakerTrip(ctx context.Context, provider string) {
	m.BreakerTrips.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordSweepPair records one sweep pair outcome.
func (m *Metrics) RecordSweepPair(ctx context.Context, outcome string) {
	m.SweepPairs.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
