// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

// AccountRepository defines methods for account data access.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// ApplyBalance writes the new balance guarded by the expected version,
	// returning model.ErrVersionConflict when a concurrent write won.
	ApplyBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, expectedVersion int32) error
}

// TransactionRepository defines methods for transaction data access.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *model.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus, updatedAt time.Time) error
}

// OutboxRepository defines methods for outbox message data access.
type OutboxRepository interface {
	Create(ctx context.Context, message *model.OutboxMessage) error
	ListUnprocessed(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}

// StatementRepository defines access to the account-statement read model.
type StatementRepository interface {
	// Apply records one settled transaction idempotently: it creates the
	// statement, appends a new entry, or no-ops on a replayed transaction id.
	// The returned bool reports whether the statement changed.
	Apply(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal, entry model.StatementEntry) (bool, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.AccountStatement, error)
}

// TransactionManager defines methods for database transaction management.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
