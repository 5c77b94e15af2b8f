// Command voxarena runs the audio generation daemon: it fills and serves
// the clip cache over every configured vendor, exposes Prometheus metrics,
// and serves signed audio downloads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxarena/voxarena/internal/catalog"
	catalogpg "github.com/voxarena/voxarena/internal/catalog/postgres"
	"github.com/voxarena/voxarena/internal/config"
	"github.com/voxarena/voxarena/internal/generate"
	"github.com/voxarena/voxarena/internal/objectstore"
	"github.com/voxarena/voxarena/internal/observe"
	"github.com/voxarena/voxarena/internal/resilience"
	"github.com/voxarena/voxarena/pkg/provider/tts"
	"github.com/voxarena/voxarena/pkg/provider/tts/azure"
	"github.com/voxarena/voxarena/pkg/provider/tts/cartesia"
	"github.com/voxarena/voxarena/pkg/provider/tts/coqui"
	"github.com/voxarena/voxarena/pkg/provider/tts/deepgram"
	"github.com/voxarena/voxarena/pkg/provider/tts/elevenlabs"
	"github.com/voxarena/voxarena/pkg/provider/tts/google"
	"github.com/voxarena/voxarena/pkg/provider/tts/lmnt"
	"github.com/voxarena/voxarena/pkg/provider/tts/murf"
	"github.com/voxarena/voxarena/pkg/provider/tts/neuphonic"
	oaitts "github.com/voxarena/voxarena/pkg/provider/tts/openai"
	"github.com/voxarena/voxarena/pkg/provider/tts/playht"
	"github.com/voxarena/voxarena/pkg/provider/tts/wellsaid"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	sweep := flag.Bool("sweep", false, "run one pre-generation sweep and exit")
	sweepLanguage := flag.Int64("sweep-language", 0, "restrict the sweep to one catalog language id (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxarena: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxarena: %v\n", err)
		}
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.Level(),
	}))
	slog.SetDefault(logger)

	slog.Info("voxarena starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Catalog ───────────────────────────────────────────────────────────────
	cat, err := catalogpg.NewStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		slog.Error("failed to connect to catalog database", "err", err)
		return 1
	}
	defer cat.Close()

	// ── Object store ──────────────────────────────────────────────────────────
	nc, err := nats.Connect(cfg.ObjectStore.NATSURL, nats.Name("voxarena"))
	if err != nil {
		slog.Error("failed to connect to NATS", "url", cfg.ObjectStore.NATSURL, "err", err)
		return 1
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		slog.Error("failed to open JetStream context", "err", err)
		return 1
	}
	signer := objectstore.NewURLSigner(cfg.ObjectStore.PublicBaseURL, []byte(cfg.ObjectStore.SigningSecret))
	objects, err := objectstore.NewNATSStore(js, cfg.ObjectStore.Bucket, signer)
	if err != nil {
		slog.Error("failed to open object store bucket", "err", err)
		return 1
	}

	// ── Adapters and pipeline ─────────────────────────────────────────────────
	registry, err := buildRegistry(cfg.Providers)
	if err != nil {
		slog.Error("failed to build adapter registry", "err", err)
		return 1
	}
	slog.Info("adapters registered", "slugs", strings.Join(registry.Slugs(), ", "))

	monitor := resilience.NewMonitor(resilience.WithThresholdHook(func(provider string, _ int) {
		metrics.RecordBreakerTrip(context.Background(), provider)
	}))
	callCfg := resilience.CallConfig{AttemptTimeout: cfg.Generation.AttemptTimeout}
	orch := generate.NewOrchestrator(cat, objects, registry, monitor, metrics, callCfg)

	// ── One-shot sweep mode ───────────────────────────────────────────────────
	if *sweep {
		return runSweep(ctx, cat, orch, cfg, *sweepLanguage)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/audio/", downloadHandler(signer, objects))

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runSweep executes one pre-generation sweep and reports its summary.
func runSweep(ctx context.Context, cat catalog.Store, orch *generate.Orchestrator, cfg *config.Config, languageID int64) int {
	opts := generate.SweepOptions{
		MaxPairs:   cfg.Generation.SweepMaxPairs,
		LanguageID: languageID,
	}
	summary, err := generate.NewSweeper(cat, orch).PreGenerate(ctx, opts)
	if err != nil {
		slog.Error("sweep failed", "err", err)
		return 1
	}
	slog.Info("sweep complete",
		"generated", summary.Generated,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors),
	)
	for _, line := range summary.Errors {
		slog.Warn("sweep error", "detail", line)
	}
	if len(summary.Errors) > 0 {
		return 1
	}
	return 0
}

// buildRegistry constructs the configured vendor adapters and registers
// each under its slug and aliases.
func buildRegistry(entries []config.ProviderEntry) (*tts.Registry, error) {
	registry := tts.NewRegistry()
	for _, entry := range entries {
		adapter, err := newAdapter(entry.Slug)
		if err != nil {
			return nil, err
		}
		registry.Register(adapter, append([]string{entry.Slug}, entry.Aliases...)...)
	}
	return registry, nil
}

// newAdapter maps a builtin slug to its adapter constructor.
func newAdapter(slug string) (tts.Adapter, error) {
	switch slug {
	case "elevenlabs":
		return elevenlabs.New(), nil
	case "openai":
		return oaitts.New(), nil
	case "google":
		return google.New(), nil
	case "azure":
		return azure.New(), nil
	case "deepgram":
		return deepgram.New(), nil
	case "cartesia":
		return cartesia.New(), nil
	case "playht":
		return playht.New(), nil
	case "lmnt":
		return lmnt.New(), nil
	case "neuphonic":
		return neuphonic.New(), nil
	case "coqui":
		return coqui.New(), nil
	case "murf":
		return murf.New(), nil
	case "wellsaid":
		return wellsaid.New(), nil
	default:
		return nil, fmt.Errorf("no builtin adapter for slug %q", slug)
	}
}

// downloadHandler serves stored audio after verifying the HMAC signature
// minted by the URL signer. Keys are everything after the /audio/ prefix.
func downloadHandler(signer *objectstore.URLSigner, objects objectstore.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/audio/")
		if key == "" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if err := signer.Verify(key, q.Get("expires"), q.Get("sig")); err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		data, err := objects.Download(r.Context(), key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentTypeForKey(key))
		w.Header().Set("Cache-Control", "private, max-age=3600")
		_, _ = w.Write(data)
	})
}

// contentTypeForKey maps a storage key extension to its media type.
func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(key, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(key, ".pcm"):
		return "application/octet-stream"
	default:
		return "audio/mpeg"
	}
}
