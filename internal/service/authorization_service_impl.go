package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/repository"
)

// AuthorizationServiceImpl implements AuthorizationService.
type AuthorizationServiceImpl struct {
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	outboxRepo      repository.OutboxRepository
	transactionMgr  repository.TransactionManager
	reviewThreshold decimal.Decimal
}

// NewAuthorizationServiceImpl creates a new AuthorizationService
// implementation. Debits at or above reviewThreshold are held for review
// instead of being authorized.
func NewAuthorizationServiceImpl(
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	outboxRepo repository.OutboxRepository,
	transactionMgr repository.TransactionManager,
	reviewThreshold decimal.Decimal,
) AuthorizationService {
	return &AuthorizationServiceImpl{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		transactionMgr:  transactionMgr,
		reviewThreshold: reviewThreshold,
	}
}

// CreateTransaction authorizes one money movement. Validation happens before
// any write, and the transaction row plus its outbox row (absent for
// PendingReview) commit as a single unit, so a rejected request leaves no
// state behind.
func (s *AuthorizationServiceImpl) CreateTransaction(
	ctx context.Context, params *model.CreateTransactionParams,
) (*model.Transaction, error) {
	txType, err := params.Validate()
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, params.AccountID)
	if err != nil {
		return nil, err
	}

	status := model.TransactionStatusAuthorized

	if txType == model.TransactionTypeDebit {
		if account.Balance.LessThan(params.Amount) {
			return nil, model.ErrInsufficientFunds
		}

		if params.Amount.GreaterThanOrEqual(s.reviewThreshold) {
			status = model.TransactionStatusPendingReview
		}
	}

	now := time.Now().UTC()

	transaction := &model.Transaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		Amount:    params.Amount,
		Type:      txType,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var outboxMessage *model.OutboxMessage

	if status == model.TransactionStatusAuthorized {
		outboxMessage, err = s.stageAuthorizedEvent(transaction, now)
		if err != nil {
			return nil, err
		}
	}

	err = s.transactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.transactionRepo.Create(ctx, transaction); err != nil {
			return err
		}

		if outboxMessage != nil {
			return s.outboxRepo.Create(ctx, outboxMessage)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// GetTransaction retrieves a transaction by ID.
func (s *AuthorizationServiceImpl) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, id)
}

func (*AuthorizationServiceImpl) stageAuthorizedEvent(
	transaction *model.Transaction, now time.Time,
) (*model.OutboxMessage, error) {
	evt := model.TransactionAuthorizedEvent{
		TransactionID: transaction.ID,
		AccountID:     transaction.AccountID,
		Amount:        transaction.Amount,
		Type:          transaction.Type,
		CorrelationID: model.NewCorrelationID(),
		OccurredAtUtc: now,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authorized event payload: %w", err)
	}

	return &model.OutboxMessage{
		ID:         uuid.New(),
		EventType:  model.EventTypeTransactionAuthorized,
		Payload:    payload,
		OccurredAt: now,
		Processed:  false,
	}, nil
}
