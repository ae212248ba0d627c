// Package main provides the projection consumer: it folds settled events
// into the account-statement read model.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/rueidis"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/notcrow/TransacoesFinanceiras/internal/broker"
	"github.com/notcrow/TransacoesFinanceiras/internal/config"
	"github.com/notcrow/TransacoesFinanceiras/internal/logger"
	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/repository"
	"github.com/notcrow/TransacoesFinanceiras/internal/retry"
	"github.com/notcrow/TransacoesFinanceiras/internal/service"
)

const (
	consumerSource   = "projection-worker"
	signalBufferSize = 1
	exitCode         = 1
)

// MessageHandler processes settled-transaction messages to a terminal
// outcome: projected, or dead-lettered. The give-up policy matches the
// settlement consumer so at-least-once semantics are uniform.
type MessageHandler struct {
	projection  service.ProjectionService
	deadLetters *broker.DeadLetterPublisher
	policy      retry.Policy
}

// NewMessageHandler creates a new message handler instance.
func NewMessageHandler(
	projection service.ProjectionService,
	deadLetters *broker.DeadLetterPublisher,
	policy retry.Policy,
) *MessageHandler {
	return &MessageHandler{
		projection:  projection,
		deadLetters: deadLetters,
		policy:      policy,
	}
}

// Handle applies one settled event to the read model. A nil return lets the
// message be acknowledged.
func (h *MessageHandler) Handle(ctx context.Context, msg *broker.Message) error {
	if msg.EventType != model.EventTypeTransactionSettled {
		slog.Error("unexpected event type on settled topic",
			slog.String("message_id", msg.ID),
			slog.String("event_type", msg.EventType),
			slog.String("error", model.ErrUnknownEventType.Error()),
		)

		return h.deadLetters.Publish(ctx, msg, model.ErrUnknownEventType.Error())
	}

	evt, err := model.DecodeTransactionSettled(msg.Payload)
	if err != nil {
		return h.deadLetters.Publish(ctx, msg, err.Error())
	}

	err = retry.Do(ctx, h.policy, func(ctx context.Context) error {
		return h.projection.Apply(ctx, evt)
	})
	if err != nil {
		slog.Error("projection attempts exhausted",
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

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		slog.Error("failed to connect to MongoDB", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	statementRepo := repository.NewStatementRepositoryImpl(mongoClient.Database(cfg.MongoDatabase))
	projectionService := service.NewProjectionServiceImpl(statementRepo)

	publisher := broker.NewStreamPublisher(redisClient)
	publishPolicy := retry.Policy{MaxAttempts: cfg.PublishMaxAttempts, BaseDelay: cfg.PublishBaseDelay}
	consumePolicy := retry.Policy{MaxAttempts: cfg.ConsumeMaxAttempts, BaseDelay: cfg.ConsumeBaseDelay}

	deadLetters := broker.NewDeadLetterPublisher(
		publisher, cfg.DeadLetterTopic, consumerSource, publishPolicy,
	)
	handler := NewMessageHandler(projectionService, deadLetters, consumePolicy)

	consumer := broker.NewStreamConsumer(
		redisClient, cfg.SettledTopic, cfg.ProjectionGroup, cfg.ConsumerName,
	)

	ctx, cancel := setupSignalHandling()
	defer cancel()

	consumer.EnsureGroup(ctx)

	slog.Info("starting projection consumer",
		slog.String("stream", cfg.SettledTopic),
		slog.String("group", cfg.ProjectionGroup),
		slog.String("consumer", cfg.ConsumerName),
	)

	consumer.Run(ctx, handler.Handle)
}
