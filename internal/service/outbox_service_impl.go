package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/notcrow/TransacoesFinanceiras/internal/broker"
	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/repository"
	"github.com/notcrow/TransacoesFinanceiras/internal/retry"
)

const outboxSource = "outbox-publisher"

// OutboxServiceImpl implements OutboxService: it drains unprocessed outbox
// rows to the broker, dead-lettering what cannot be delivered.
type OutboxServiceImpl struct {
	outboxRepo      repository.OutboxRepository
	publisher       broker.Publisher
	topics          *broker.TopicTable
	deadLetterTopic string
	policy          retry.Policy
}

// NewOutboxServiceImpl creates a new OutboxService implementation.
func NewOutboxServiceImpl(
	outboxRepo repository.OutboxRepository,
	publisher broker.Publisher,
	topics *broker.TopicTable,
	deadLetterTopic string,
	policy retry.Policy,
) OutboxService {
	return &OutboxServiceImpl{
		outboxRepo:      outboxRepo,
		publisher:       publisher,
		topics:          topics,
		deadLetterTopic: deadLetterTopic,
		policy:          policy,
	}
}

// ProcessUnprocessed publishes up to limit pending outbox messages, oldest
// first, and returns how many it fetched. A message is marked processed only
// after some successful publish: either to its destination topic or, on
// retry exhaustion, to the dead-letter topic. When even the dead-letter
// publish fails the row stays unprocessed for a future pass.
func (s *OutboxServiceImpl) ProcessUnprocessed(ctx context.Context, limit int) (int, error) {
	messages, err := s.outboxRepo.ListUnprocessed(ctx, limit)
	if err != nil {
		return 0, err
	}

	for _, message := range messages {
		if ctx.Err() != nil {
			return len(messages), ctx.Err()
		}

		if !s.processMessage(ctx, message) {
			continue
		}

		if err := s.outboxRepo.MarkProcessed(ctx, message.ID); err != nil {
			slog.Error("failed to mark outbox message processed",
				slog.String("outbox_id", message.ID.String()),
				slog.String("error", err.Error()),
			)
			// Downstream idempotency absorbs the duplicate publish on the
			// next pass.
		}
	}

	return len(messages), nil
}

// processMessage reports whether the message reached some topic and may be
// marked processed.
func (s *OutboxServiceImpl) processMessage(ctx context.Context, message *model.OutboxMessage) bool {
	topic, err := s.topics.Resolve(message.EventType)
	if err != nil {
		// Misconfiguration, not a transient failure: the row stays
		// unprocessed until the mapping is fixed.
		slog.Error("no topic mapping for outbox message",
			slog.String("outbox_id", message.ID.String()),
			slog.String("event_type", message.EventType),
			slog.String("error", err.Error()),
		)

		return false
	}

	key := outboxKey(message)
	correlationID := extractCorrelationID(message.Payload)
	if correlationID == "" {
		correlationID = key
	}

	headers := map[string]string{
		broker.HeaderCorrelationID: correlationID,
		broker.HeaderEventType:     message.EventType,
	}

	publishErr := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, topic, key, message.Payload, headers)
	})
	if publishErr == nil {
		slog.Info("outbox message published",
			slog.String("outbox_id", message.ID.String()),
			slog.String("event_type", message.EventType),
			slog.String("topic", topic),
		)

		return true
	}

	slog.Warn("publish attempts exhausted, dead-lettering outbox message",
		slog.String("outbox_id", message.ID.String()),
		slog.String("event_type", message.EventType),
		slog.String("error", publishErr.Error()),
	)

	return s.deadLetter(ctx, message, key, headers, publishErr)
}

func (s *OutboxServiceImpl) deadLetter(
	ctx context.Context,
	message *model.OutboxMessage,
	key string,
	headers map[string]string,
	cause error,
) bool {
	wrapper := model.DeadLetterEvent{
		Reason:            cause.Error(),
		OriginalEventType: message.EventType,
		OriginalKey:       key,
		Payload:           json.RawMessage(message.Payload),
		OccurredAtUtc:     time.Now().UTC(),
	}

	payload, err := json.Marshal(wrapper)
	if err != nil {
		slog.Error("failed to marshal dead-letter wrapper",
			slog.String("outbox_id", message.ID.String()),
			slog.String("error", err.Error()),
		)

		return false
	}

	dltHeaders := map[string]string{
		broker.HeaderCorrelationID:     headers[broker.HeaderCorrelationID],
		broker.HeaderEventType:         message.EventType,
		broker.HeaderOriginalEventType: message.EventType,
		broker.HeaderSource:            outboxSource,
	}

	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, s.deadLetterTopic, key, payload, dltHeaders)
	})
	if err != nil {
		slog.Error("failed to publish to dead-letter topic, keeping message unprocessed",
			slog.String("outbox_id", message.ID.String()),
			slog.String("error", err.Error()),
		)

		return false
	}

	return true
}

func outboxKey(message *model.OutboxMessage) string {
	return hex.EncodeToString(message.ID[:])
}

func extractCorrelationID(payload []byte) string {
	var probe struct {
		CorrelationID string `json:"correlationId"`
	}

	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}

	return probe.CorrelationID
}
