package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

// AccountRepositoryImpl implements AccountRepository using PostgreSQL.
type AccountRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewAccountRepositoryImpl creates a new AccountRepository implementation.
func NewAccountRepositoryImpl(pool *pgxpool.Pool) AccountRepository {
	return &AccountRepositoryImpl{pool: pool}
}

// Create inserts a new account. Accounts start at version 0 and are only
// mutated by the settlement path afterwards.
func (r *AccountRepositoryImpl) Create(ctx context.Context, account *model.Account) error {
	q := querierFrom(ctx, r.pool)

	_, err := q.Exec(ctx,
		`INSERT INTO accounts (id, holder_name, balance, version, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.HolderName, account.Balance.String(), account.Version, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	q := querierFrom(ctx, r.pool)

	var (
		account     model.Account
		balanceText string
	)

	err := q.QueryRow(ctx,
		`SELECT id, holder_name, balance::text, version, created_at
		 FROM accounts WHERE id = $1`,
		id,
	).Scan(&account.ID, &account.HolderName, &balanceText, &account.Version, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}

		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	account.Balance, err = decimal.NewFromString(balanceText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account balance: %w", err)
	}

	return &account, nil
}

// ApplyBalance writes the balance computed from the version it was read at.
// The version predicate is the only guard against concurrent settlements.
func (r *AccountRepositoryImpl) ApplyBalance(
	ctx context.Context, id uuid.UUID, balance decimal.Decimal, expectedVersion int32,
) error {
	q := querierFrom(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`UPDATE accounts SET balance = $2, version = version + 1
		 WHERE id = $1 AND version = $3`,
		id, balance.String(), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrVersionConflict
	}

	return nil
}
