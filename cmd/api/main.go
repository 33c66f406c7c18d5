package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tryon/internal/http/handlers"
	httpapi "tryon/internal/http/httpapi"
	"tryon/internal/imagegen"
	"tryon/internal/infra"
	"tryon/internal/metrics"
	imageprovider "tryon/internal/providers/image"
	"tryon/internal/session"
	"tryon/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	provider, err := imageprovider.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image provider")
	}

	assets, err := storage.NewFileStore(cfg.AssetDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open asset directory")
	}
	reference := storage.NewReferenceAsset(assets, cfg.ReferenceAsset)
	if _, err := reference.Load(context.Background()); err != nil {
		// Not fatal: the wizard still loads and generation reports the asset as unavailable.
		logger.Warn().Err(err).Str("asset", cfg.ReferenceAsset).Msg("reference pattern could not be loaded")
	}

	template, err := imagegen.LoadInstructionTemplate(cfg.InstructionTemplateFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load instruction template")
	}

	registry := metrics.NewRegistry()
	pipeline, err := imagegen.NewPipeline(imagegen.Options{
		Provider:  provider,
		Reference: reference,
		Template:  template,
		Logger:    &logger,
		Metrics:   registry,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build generation pipeline")
	}

	sessions := session.NewStore(cfg.SessionTTL, cfg.MaxSessions)
	sessions.OnEvict(func(id string) {
		logger.Debug().Str("session_id", id).Msg("session expired")
	})

	app := handlers.NewApp(cfg, logger, pipeline, sessions, registry)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("provider", cfg.ImageProvider).
			Int("max_sessions", cfg.MaxSessions).
			Bool("trust_proxy_headers", cfg.TrustProxyHeaders).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// In-flight generations may take up to PROVIDER_TIMEOUT.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ProviderTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
