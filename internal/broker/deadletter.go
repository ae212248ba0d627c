package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/retry"
)

// DeadLetterPublisher hands messages that exhausted their retries (or can
// never succeed, like malformed payloads) to the dead-letter topic so the
// consumer can advance past them.
type DeadLetterPublisher struct {
	publisher Publisher
	topic     string
	source    string
	policy    retry.Policy
}

// NewDeadLetterPublisher creates a dead-letter hand-off for one consumer,
// identified by source in the message headers.
func NewDeadLetterPublisher(publisher Publisher, topic, source string, policy retry.Policy) *DeadLetterPublisher {
	return &DeadLetterPublisher{
		publisher: publisher,
		topic:     topic,
		source:    source,
		policy:    policy,
	}
}

// Publish wraps the original message with the failure reason and publishes
// it to the dead-letter topic. A nil return means the message reached the
// dead-letter topic and may be acknowledged.
func (d *DeadLetterPublisher) Publish(ctx context.Context, msg *Message, reason string) error {
	wrapper := model.DeadLetterEvent{
		Reason:            reason,
		OriginalEventType: msg.EventType,
		OriginalKey:       msg.Key,
		Payload:           json.RawMessage(msg.Payload),
		OccurredAtUtc:     time.Now().UTC(),
	}

	payload, err := json.Marshal(wrapper)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter wrapper: %w", err)
	}

	headers := map[string]string{
		HeaderCorrelationID:     msg.Headers[HeaderCorrelationID],
		HeaderEventType:         msg.EventType,
		HeaderOriginalEventType: msg.EventType,
		HeaderSource:            d.source,
	}

	err = retry.Do(ctx, d.policy, func(ctx context.Context) error {
		return d.publisher.Publish(ctx, d.topic, msg.Key, payload, headers)
	})
	if err != nil {
		return fmt.Errorf("failed to publish to dead-letter topic: %w", err)
	}

	slog.Warn("message dead-lettered",
		slog.String("message_id", msg.ID),
		slog.String("event_type", msg.EventType),
		slog.String("reason", reason),
	)

	return nil
}
