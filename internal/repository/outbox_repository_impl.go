package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

// OutboxRepositoryImpl implements OutboxRepository using PostgreSQL.
type OutboxRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewOutboxRepositoryImpl creates a new OutboxRepository implementation.
func NewOutboxRepositoryImpl(pool *pgxpool.Pool) OutboxRepository {
	return &OutboxRepositoryImpl{pool: pool}
}

// Create stages an outbox message. Called inside the same managed
// transaction as the business write it describes.
func (r *OutboxRepositoryImpl) Create(ctx context.Context, message *model.OutboxMessage) error {
	q := querierFrom(ctx, r.pool)

	_, err := q.Exec(ctx,
		`INSERT INTO outbox (id, event_type, payload, occurred_at, processed)
		 VALUES ($1, $2, $3, $4, $5)`,
		message.ID, message.EventType, message.Payload, message.OccurredAt, message.Processed,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// ListUnprocessed retrieves unprocessed messages oldest first, so delivery
// is roughly FIFO across polling passes.
func (r *OutboxRepositoryImpl) ListUnprocessed(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	q := querierFrom(ctx, r.pool)

	rows, err := q.Query(ctx,
		`SELECT id, event_type, payload, occurred_at, processed
		 FROM outbox WHERE NOT processed
		 ORDER BY occurred_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.OutboxMessage

	for rows.Next() {
		var message model.OutboxMessage
		if err := rows.Scan(
			&message.ID, &message.EventType, &message.Payload, &message.OccurredAt, &message.Processed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}

		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox messages: %w", err)
	}

	return messages, nil
}

// MarkProcessed flips the processed flag, exactly once per message.
func (r *OutboxRepositoryImpl) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	q := querierFrom(ctx, r.pool)

	if _, err := q.Exec(ctx, `UPDATE outbox SET processed = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark outbox message processed: %w", err)
	}

	return nil
}
