package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"videomorph/internal/adapter/repo"
	"videomorph/internal/config"
	"videomorph/internal/infra"
	"videomorph/internal/poller"
	"videomorph/internal/providers/processor"
	"videomorph/internal/service"
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

	// The poll daemon needs the shared store; an in-memory repository
	// would poll against a job set the API never sees.
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("poller: DATABASE_URL is required")
	}
	pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("poller: db connection failed")
	}
	defer pool.Close()
	jobs := repo.NewJobRepository(pool)
	if err := jobs.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("poller: migration failed")
	}

	if cfg.ProcessorBaseURL == "" {
		logger.Fatal().Msg("poller: PROCESSOR_BASE_URL is required")
	}
	proc, err := processor.NewClient(processor.Options{
		BaseURL: cfg.ProcessorBaseURL,
		APIKey:  cfg.ProcessorAPIKey,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("poller: processor client failed")
	}

	orch := service.NewOrchestrator(jobs, proc, cfg.WebhookURL(), logger)
	p := poller.New(jobs, proc, orch, cfg.PollInterval(), cfg.PollBatchSize, logger)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("poller: stopped with error")
	}
	logger.Info().Msg("poller: stopped")
}
