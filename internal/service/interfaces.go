// Package service provides business logic layer implementations.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

// AuthorizationService defines business logic for transaction authorization.
type AuthorizationService interface {
	// CreateTransaction validates the request and atomically persists the
	// transaction together with its outbox event, when one is staged.
	CreateTransaction(ctx context.Context, params *model.CreateTransactionParams) (*model.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
}

// OutboxService defines business logic for outbox event publishing.
type OutboxService interface {
	// ProcessUnprocessed drains up to limit pending messages and reports how
	// many it fetched, so callers can tell a full batch from a drained outbox.
	ProcessUnprocessed(ctx context.Context, limit int) (int, error)
}

// SettlementService defines business logic for settling authorized transactions.
type SettlementService interface {
	Settle(ctx context.Context, evt *model.TransactionAuthorizedEvent) error
}

// ProjectionService defines business logic for the statement read model.
type ProjectionService interface {
	Apply(ctx context.Context, evt *model.TransactionSettledEvent) error
}
