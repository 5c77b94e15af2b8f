package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestTTSDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	opts := metric.WithAttributes(attribute.String("provider", "elevenlabs"))
	m.TTSDuration.Record(ctx, 0.8, opts)
	m.TTSDuration.Record(ctx, 2.4, opts)

	rm := collect(t, reader)
	met := findMetric(rm, "voxarena.tts.duration")
	if met == nil {
		t.Fatal("metric voxarena.tts.duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric is %T, want histogram", met.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "deepgram", "ok")
	m.RecordProviderRequest(ctx, "deepgram", "error")
	m.RecordProviderError(ctx, "deepgram", "transient")
	m.RecordCacheHit(ctx, "deepgram")
	m.RecordBreakerTrip(ctx, "deepgram")
	m.RecordSweepPair(ctx, "generated")

	rm := collect(t, reader)

	counters := []struct {
		name string
		want int64
	}{
		{"voxarena.provider.requests", 2},
		{"voxarena.provider.errors", 1},
		{"voxarena.cache.hits", 1},
		{"voxarena.breaker.trips", 1},
		{"voxarena.sweep.pairs", 1},
	}
	for _, tc := range counters {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is %T, want sum", tc.name, met.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			if total != tc.want {
				t.Errorf("total = %d, want %d", total, tc.want)
			}
		})
	}
}

func TestProviderErrorAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordProviderError(context.Background(), "cartesia", "validation")

	rm := collect(t, reader)
	met := findMetric(rm, "voxarena.provider.errors")
	if met == nil {
		t.Fatal("metric voxarena.provider.errors not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(sum.DataPoints))
	}
	attrs := sum.DataPoints[0].Attributes
	if got, _ := attrs.Value(attribute.Key("provider")); got.AsString() != "cartesia" {
		t.Errorf("provider attribute = %q, want cartesia", got.AsString())
	}
	if got, _ := attrs.Value(attribute.Key("kind")); got.AsString() != "validation" {
		t.Errorf("kind attribute = %q, want validation", got.AsString())
	}
}
