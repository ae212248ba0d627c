package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/repository"
)

// ProjectionServiceImpl implements ProjectionService: it folds settled
// events into the account-statement read model.
type ProjectionServiceImpl struct {
	statementRepo repository.StatementRepository
}

// NewProjectionServiceImpl creates a new ProjectionService implementation.
func NewProjectionServiceImpl(statementRepo repository.StatementRepository) ProjectionService {
	return &ProjectionServiceImpl{statementRepo: statementRepo}
}

// Apply upserts the settled transaction into the account's statement. The
// transaction id is the idempotency key: a replayed event leaves the
// statement untouched.
func (s *ProjectionServiceImpl) Apply(ctx context.Context, evt *model.TransactionSettledEvent) error {
	entry := model.StatementEntry{
		TransactionID: evt.TransactionID,
		BalanceAfter:  evt.CurrentBalance,
		ProcessedAt:   time.Now().UTC(),
	}

	applied, err := s.statementRepo.Apply(ctx, evt.AccountID, evt.CurrentBalance, entry)
	if err != nil {
		return err
	}

	if !applied {
		slog.Info("settled event already projected",
			slog.String("transaction_id", evt.TransactionID.String()),
			slog.String("account_id", evt.AccountID.String()),
		)

		return nil
	}

	slog.Info("statement projection updated",
		slog.String("transaction_id", evt.TransactionID.String()),
		slog.String("account_id", evt.AccountID.String()),
		slog.String("balance", evt.CurrentBalance.String()),
	)

	return nil
}
