package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"videomorph/internal/adapter/repo"
	"videomorph/internal/config"
	"videomorph/internal/domain"
	"videomorph/internal/http/handlers"
	"videomorph/internal/http/httpapi"
	"videomorph/internal/infra"
	"videomorph/internal/providers/processor"
	"videomorph/internal/service"
	"videomorph/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var jobs domain.JobRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: db connection failed")
		}
		defer pool.Close()
		pg := repo.NewJobRepository(pool)
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("api: migration failed")
		}
		jobs = pg
	} else {
		logger.Warn().Msg("api: DATABASE_URL missing, using in-memory job store")
		jobs = repo.NewMemory()
	}

	if cfg.RedisAddr != "" {
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: redis connection failed")
		}
		defer rdb.Close()
		jobs = repo.NewCachedJobRepository(jobs, rdb, logger)
	}

	var proc domain.Processor
	if cfg.ProcessorBaseURL != "" {
		client, err := processor.NewClient(processor.Options{
			BaseURL: cfg.ProcessorBaseURL,
			APIKey:  cfg.ProcessorAPIKey,
			Logger:  &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("api: processor client failed")
		}
		proc = client
	} else {
		logger.Warn().Msg("api: PROCESSOR_BASE_URL missing, using synthetic processor")
		proc = processor.NewFake()
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	orch := service.NewOrchestrator(jobs, proc, cfg.WebhookURL(), logger)
	app := handlers.NewApp(orch, fileStore, cfg.StorageBaseURL, cfg.MaxUploadBytes, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       fileStore.BasePath(),
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
