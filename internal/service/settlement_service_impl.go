package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/notcrow/TransacoesFinanceiras/internal/broker"
	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/repository"
	"github.com/notcrow/TransacoesFinanceiras/internal/retry"
)

// SettlementServiceImpl implements SettlementService: it applies authorized
// transactions to account balances and emits the settled event.
type SettlementServiceImpl struct {
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	transactionMgr  repository.TransactionManager
	publisher       broker.Publisher
	settledTopic    string
	publishPolicy   retry.Policy
}

// NewSettlementServiceImpl creates a new SettlementService implementation.
func NewSettlementServiceImpl(
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	transactionMgr repository.TransactionManager,
	publisher broker.Publisher,
	settledTopic string,
	publishPolicy retry.Policy,
) SettlementService {
	return &SettlementServiceImpl{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		transactionMgr:  transactionMgr,
		publisher:       publisher,
		settledTopic:    settledTopic,
		publishPolicy:   publishPolicy,
	}
}

// Settle moves a transaction to Settled and applies its amount to the
// account balance, then emits a TransactionSettled event. A replayed event
// against an already-settled transaction is a no-op and emits nothing.
// Version conflicts restart from a fresh read and never surface.
func (s *SettlementServiceImpl) Settle(ctx context.Context, evt *model.TransactionAuthorizedEvent) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		transaction, err := s.transactionRepo.GetByID(ctx, evt.TransactionID)
		if err != nil {
			return err
		}

		if transaction.Status == model.TransactionStatusSettled {
			slog.Info("transaction already settled",
				slog.String("transaction_id", evt.TransactionID.String()),
			)

			return nil
		}

		account, err := s.accountRepo.GetByID(ctx, evt.AccountID)
		if err != nil {
			return err
		}

		delta := evt.Amount
		if evt.Type == model.TransactionTypeDebit {
			delta = delta.Neg()
		}

		newBalance := account.Balance.Add(delta)
		settledAt := time.Now().UTC()

		err = s.transactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.accountRepo.ApplyBalance(ctx, account.ID, newBalance, account.Version); err != nil {
				return err
			}

			return s.transactionRepo.UpdateStatus(
				ctx, transaction.ID, model.TransactionStatusSettled, settledAt,
			)
		})
		if errors.Is(err, model.ErrVersionConflict) {
			slog.Debug("account version conflict, retrying from fresh read",
				slog.String("account_id", account.ID.String()),
			)

			continue
		}
		if err != nil {
			return err
		}

		return s.emitSettled(ctx, evt, newBalance, settledAt)
	}
}

func (s *SettlementServiceImpl) emitSettled(
	ctx context.Context,
	evt *model.TransactionAuthorizedEvent,
	newBalance decimal.Decimal,
	settledAt time.Time,
) error {
	settled := model.TransactionSettledEvent{
		TransactionID:  evt.TransactionID,
		AccountID:      evt.AccountID,
		CurrentBalance: newBalance,
		CorrelationID:  evt.CorrelationID,
		OccurredAtUtc:  settledAt,
	}

	payload, err := json.Marshal(settled)
	if err != nil {
		return fmt.Errorf("failed to marshal settled event payload: %w", err)
	}

	key := hex.EncodeToString(evt.TransactionID[:])
	headers := map[string]string{
		broker.HeaderCorrelationID: evt.CorrelationID,
		broker.HeaderEventType:     model.EventTypeTransactionSettled,
	}

	err = retry.Do(ctx, s.publishPolicy, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, s.settledTopic, key, payload, headers)
	})
	if err != nil {
		return fmt.Errorf("failed to publish settled event: %w", err)
	}

	slog.Info("transaction settled",
		slog.String("transaction_id", evt.TransactionID.String()),
		slog.String("account_id", evt.AccountID.String()),
		slog.String("new_balance", newBalance.String()),
	)

	return nil
}
