// Package main provides the settlement consumer: it applies authorized
// transactions to account balances and emits settled events.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

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
	consumerSource   = "settlement-worker"
	signalBufferSize = 1
	exitCode         = 1
)

// MessageHandler processes authorized-transaction messages to a terminal
// outcome: settled, or dead-lettered.
type MessageHandler struct {
	settlement  service.SettlementService
	deadLetters *broker.DeadLetterPublisher
	policy      retry.Policy
}

// NewMessageHandler creates a new message handler instance.
func NewMessageHandler(
	settlement service.SettlementService,
	deadLetters *broker.DeadLetterPublisher,
	policy retry.Policy,
) *MessageHandler {
	return &MessageHandler{
		settlement:  settlement,
		deadLetters: deadLetters,
		policy:      policy,
	}
}

// Handle settles one authorized event. Malformed payloads and exhausted
// retries are dead-lettered so the consumer can advance; a nil return lets
// the message be acknowledged.
func (h *MessageHandler) Handle(ctx context.Context, msg *broker.Message) error {
	if msg.EventType != model.EventTypeTransactionAuthorized {
		slog.Error("unexpected event type on authorized topic",
			slog.String("message_id", msg.ID),
			slog.String("event_type", msg.EventType),
			slog.String("error", model.ErrUnknownEventType.Error()),
		)

		return h.deadLetters.Publish(ctx, msg, model.ErrUnknownEventType.Error())
	}

	evt, err := model.DecodeTransactionAuthorized(msg.Payload)
	if err != nil {
		return h.deadLetters.Publish(ctx, msg, err.Error())
	}

	err = retry.Do(ctx, h.policy, func(ctx context.Context) error {
		return h.settlement.Settle(ctx, evt)
	})
	if err != nil {
		slog.Error("settlement attempts exhausted",
			slog.String("transaction_id", evt.TransactionID.String()),
			slog.String("error", err.Error()),
		)

		return h.deadLetters.Publish(ctx, msg, err.Error())
	}

	return nil
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, signalBufferSize)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received, stopping consumer")
		cancel()
	}()

	return ctx, cancel
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	slog.SetDefault(logger.Setup(cfg.LogLevel, consumerSource))

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

	accountRepo := repository.NewAccountRepositoryImpl(dbPool)
	transactionRepo := repository.NewTransactionRepositoryImpl(dbPool)
	transactionMgr := repository.NewTransactionManagerImpl(dbPool)
	publisher := broker.NewStreamPublisher(redisClient)

	publishPolicy := retry.Policy{MaxAttempts: cfg.PublishMaxAttempts, BaseDelay: cfg.PublishBaseDelay}
	consumePolicy := retry.Policy{MaxAttempts: cfg.ConsumeMaxAttempts, BaseDelay: cfg.ConsumeBaseDelay}

	settlementService := service.NewSettlementServiceImpl(
		accountRepo, transactionRepo, transactionMgr, publisher, cfg.SettledTopic, publishPolicy,
	)

	deadLetters := broker.NewDeadLetterPublisher(
		publisher, cfg.DeadLetterTopic, consumerSource, publishPolicy,
	)
	handler := NewMessageHandler(settlementService, deadLetters, consumePolicy)

	consumer := broker.NewStreamConsumer(
		redisClient, cfg.AuthorizedTopic, cfg.SettlementGroup, cfg.ConsumerName,
	)

	ctx, cancel := setupSignalHandling()
	defer cancel()

	consumer.EnsureGroup(ctx)

	slog.Info("starting settlement consumer",
		slog.String("stream", cfg.AuthorizedTopic),
		slog.String("group", cfg.SettlementGroup),
		slog.String("consumer", cfg.ConsumerName),
	)

	consumer.Run(ctx, handler.Handle)
}
