package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

// TransactionRepositoryImpl implements TransactionRepository using PostgreSQL.
type TransactionRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewTransactionRepositoryImpl creates a new TransactionRepository implementation.
func NewTransactionRepositoryImpl(pool *pgxpool.Pool) TransactionRepository {
	return &TransactionRepositoryImpl{pool: pool}
}

// Create inserts a new transaction row.
func (r *TransactionRepositoryImpl) Create(ctx context.Context, transaction *model.Transaction) error {
	q := querierFrom(ctx, r.pool)

	_, err := q.Exec(ctx,
		`INSERT INTO transactions (id, account_id, amount, type, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		transaction.ID,
		transaction.AccountID,
		transaction.Amount.String(),
		string(transaction.Type),
		string(transaction.Status),
		transaction.CreatedAt,
		transaction.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	q := querierFrom(ctx, r.pool)

	var (
		transaction model.Transaction
		amountText  string
		txType      string
		status      string
	)

	err := q.QueryRow(ctx,
		`SELECT id, account_id, amount::text, type, status, created_at, updated_at
		 FROM transactions WHERE id = $1`,
		id,
	).Scan(
		&transaction.ID,
		&transaction.AccountID,
		&amountText,
		&txType,
		&status,
		&transaction.CreatedAt,
		&transaction.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTransactionNotFound
		}

		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	transaction.Amount, err = decimal.NewFromString(amountText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction amount: %w", err)
	}

	transaction.Type = model.TransactionType(txType)
	transaction.Status = model.TransactionStatus(status)

	return &transaction, nil
}

// UpdateStatus moves a transaction to a new lifecycle status.
func (r *TransactionRepositoryImpl) UpdateStatus(
	ctx context.Context, id uuid.UUID, status model.TransactionStatus, updatedAt time.Time,
) error {
	q := querierFrom(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`UPDATE transactions SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrTransactionNotFound
	}

	return nil
}
