// Package main provides the outbox publisher that polls unprocessed outbox
// rows and publishes them to the broker.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"

	"github.com/notcrow/TransacoesFinanceiras/internal/broker"
	"github.com/notcrow/TransacoesFinanceiras/internal/config"
	"github.com/notcrow/TransacoesFinanceiras/internal/logger"
	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/repository"
	"github.com/notcrow/TransacoesFinanceiras/internal/retry"
	"github.com/notcrow/TransacoesFinanceiras/internal/service"
)

const (
	signalBufferSize = 1
	exitCode         = 1
)

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, signalBufferSize)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received, stopping publisher")
		cancel()
	}()

	return ctx, cancel
}

// drainOutbox processes batches back to back until one comes up short, so a
// backlog clears at publish speed instead of one batch per tick.
func drainOutbox(ctx context.Context, outboxService service.OutboxService, batchSize int) {
	for ctx.Err() == nil {
		fetched, err := outboxService.ProcessUnprocessed(ctx, batchSize)
		if err != nil {
			slog.Error("error processing outbox messages", slog.String("error", err.Error()))
			return
		}

		if fetched < batchSize {
			return
		}
	}
}

func runPublisherLoop(
	ctx context.Context,
	outboxService service.OutboxService,
	pollInterval time.Duration,
	batchSize int,
) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("publisher stopped")
			return
		case <-ticker.C:
			drainOutbox(ctx, outboxService, batchSize)
		}
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	slog.SetDefault(logger.Setup(cfg.LogLevel, "publisher"))

	dbPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer dbPool.Close()

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	topics := broker.NewTopicTable(map[string]string{
		model.EventTypeTransactionAuthorized: cfg.AuthorizedTopic,
		model.EventTypeTransactionSettled:    cfg.SettledTopic,
	})

	outboxRepo := repository.NewOutboxRepositoryImpl(dbPool)
	publisher := broker.NewStreamPublisher(redisClient)
	policy := retry.Policy{MaxAttempts: cfg.PublishMaxAttempts, BaseDelay: cfg.PublishBaseDelay}
	outboxService := service.NewOutboxServiceImpl(
		outboxRepo, publisher, topics, cfg.DeadLetterTopic, policy,
	)

	ctx, cancel := setupSignalHandling()
	defer cancel()

	slog.Info("starting outbox publisher",
		slog.Duration("poll_interval", cfg.PublisherPollInterval),
		slog.Int("batch_size", cfg.PublisherBatchSize),
	)

	runPublisherLoop(ctx, outboxService, cfg.PublisherPollInterval, cfg.PublisherBatchSize)
}
