// Command kiosk-server runs the kiosk orchestration core: session
// lifecycle, the conversation pipeline, clock sync, playout scheduling, and
// the datachannel control-message router, behind a single HTTP API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/omkarlalla-code/kiosk-project/internal/config"
	"github.com/omkarlalla-code/kiosk-project/internal/datachannel"
	"github.com/omkarlalla-code/kiosk-project/internal/httpapi"
	"github.com/omkarlalla-code/kiosk-project/internal/images"
	"github.com/omkarlalla-code/kiosk-project/internal/llm"
	"github.com/omkarlalla-code/kiosk-project/internal/logger"
	"github.com/omkarlalla-code/kiosk-project/internal/metrics"
	"github.com/omkarlalla-code/kiosk-project/internal/pipeline"
	"github.com/omkarlalla-code/kiosk-project/internal/session"
	"github.com/omkarlalla-code/kiosk-project/internal/telemetry"
	"github.com/omkarlalla-code/kiosk-project/internal/tts"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfgPath := os.Getenv("KIOSK_CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("build tracer provider: %w", err)
	}
	telemetry.Install(tp)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer provider shutdown failed", "error", err)
		}
	}()

	registerer := prometheus.NewRegistry()
	metrics.MustRegister(registerer)

	store, err := images.NewStore(cfg.ImageCataloguePath)
	if err != nil {
		return fmt.Errorf("load image catalogue: %w", err)
	}
	resolver := images.NewResolver(store)

	router := datachannel.NewRouter()

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		backplane := datachannel.NewBackplane(client, "kiosk:datachannel", router)
		go backplane.Run(ctx)
		logger.Info("datachannel backplane enabled", "redis_addr", cfg.RedisAddr)
	}

	minter := session.NewLiveKitMinter(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
	registry := session.NewRegistry(
		cfg.SessionIdleTimeout(),
		cfg.SessionDuration(),
		cfg.SessionSweepInterval(),
		minter,
		cfg.PersonaPrompt,
		session.WithRoomReleaser(datachannel.NewRoomReleaser(router)),
	)
	defer registry.Close()

	llmAdapter := llm.NewHTTPAdapter(cfg.LLMEndpoint, cfg.LLMTimeout())

	ttsService, err := buildTTSService(cfg)
	if err != nil {
		return fmt.Errorf("build tts service: %w", err)
	}

	pipe := pipeline.New(registry, llmAdapter, ttsService, resolver, router,
		cfg.AnchorLead(), cfg.PreloadLead(), cfg.ShowCrossfade())

	server := httpapi.NewServer(registry, pipe,
		httpapi.WithAddr(cfg.HTTPAddr),
		httpapi.WithRegisterer(registerer),
		httpapi.WithLiveKitURL(cfg.LiveKitURL),
	)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("kiosk-server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildTTSService assembles the fallback chain from spec §4.4: primary
// cloud voice, secondary cloud voice, local system voice, then the
// constant-sine placeholder, wrapped in the content-addressed cache when
// enabled.
func buildTTSService(cfg config.Config) (tts.Service, error) {
	var tiers []tts.Service
	if cfg.TTSPrimaryEndpoint != "" {
		tiers = append(tiers, tts.NewHTTPTier("primary-cloud-voice", cfg.TTSPrimaryEndpoint, cfg.TTSTimeout(), 22050, 1, 70))
	}
	if cfg.TTSSecondaryEndpoint != "" {
		tiers = append(tiers, tts.NewHTTPTier("secondary-cloud-voice", cfg.TTSSecondaryEndpoint, cfg.TTSTimeout(), 22050, 1, 70))
	}
	if cfg.TTSLocalEndpoint != "" {
		tiers = append(tiers, tts.NewHTTPTier("local-system-voice", cfg.TTSLocalEndpoint, cfg.TTSTimeout(), 16000, 1, 80))
	}
	tiers = append(tiers, tts.NewPlaceholderTier())

	synth := tts.NewTieredSynthesiser(tiers...)
	if !cfg.TTSCacheEnabled {
		return synth, nil
	}
	return tts.NewCache(synth, cfg.TTSCacheDir)
}
