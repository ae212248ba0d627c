package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notcrow/TransacoesFinanceiras/internal/broker"
	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/retry"
	"github.com/notcrow/TransacoesFinanceiras/internal/service"
)

const testSettledTopic = "transaction-settled"

type settlementFixture struct {
	accounts     *fakeAccountRepo
	transactions *fakeTransactionRepo
	publisher    *fakePublisher
	service      service.SettlementService
}

func newSettlementFixture() *settlementFixture {
	accounts := newFakeAccountRepo()
	transactions := newFakeTransactionRepo()
	publisher := newFakePublisher()

	return &settlementFixture{
		accounts:     accounts,
		transactions: transactions,
		publisher:    publisher,
		service: service.NewSettlementServiceImpl(
			accounts, transactions, &fakeTxManager{}, publisher, testSettledTopic,
			retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		),
	}
}

func (f *settlementFixture) seed(
	t *testing.T, balance, amount int64, txType model.TransactionType, status model.TransactionStatus,
) (*model.Account, *model.Transaction) {
	t.Helper()

	now := time.Now().UTC()

	account := &model.Account{
		ID:         uuid.New(),
		HolderName: "Maria Silva",
		Balance:    decimal.NewFromInt(balance),
		CreatedAt:  now,
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))

	transaction := &model.Transaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(amount),
		Type:      txType,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.transactions.Create(context.Background(), transaction))

	return account, transaction
}

func authorizedEvent(account *model.Account, transaction *model.Transaction) *model.TransactionAuthorizedEvent {
	return &model.TransactionAuthorizedEvent{
		TransactionID: transaction.ID,
		AccountID:     account.ID,
		Amount:        transaction.Amount,
		Type:          transaction.Type,
		CorrelationID: "corr-test",
		OccurredAtUtc: time.Now().UTC(),
	}
}

func TestSettleDebitAppliesBalanceAndEmitsSettledEvent(t *testing.T) {
	f := newSettlementFixture()
	account, transaction := f.seed(t, 20000, 50, model.TransactionTypeDebit, model.TransactionStatusAuthorized)

	require.NoError(t, f.service.Settle(context.Background(), authorizedEvent(account, transaction)))

	updatedAccount, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updatedAccount.Balance.Equal(decimal.NewFromInt(19950)),
		"expected 19950, got %s", updatedAccount.Balance)
	assert.Equal(t, int32(1), updatedAccount.Version)

	updatedTx, err := f.transactions.GetByID(context.Background(), transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusSettled, updatedTx.Status)

	calls := f.publisher.callsTo(testSettledTopic)
	require.Len(t, calls, 1)
	assert.Equal(t, "corr-test", calls[0].headers[broker.HeaderCorrelationID])
	assert.Equal(t, model.EventTypeTransactionSettled, calls[0].headers[broker.HeaderEventType])

	settled, err := model.DecodeTransactionSettled(calls[0].payload)
	require.NoError(t, err)
	assert.Equal(t, transaction.ID, settled.TransactionID)
	assert.True(t, settled.CurrentBalance.Equal(decimal.NewFromInt(19950)))
	assert.Equal(t, "corr-test", settled.CorrelationID)
}

func TestSettleCreditAddsToBalance(t *testing.T) {
	f := newSettlementFixture()
	account, transaction := f.seed(t, 100, 40, model.TransactionTypeCredit, model.TransactionStatusAuthorized)

	require.NoError(t, f.service.Settle(context.Background(), authorizedEvent(account, transaction)))

	updatedAccount, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updatedAccount.Balance.Equal(decimal.NewFromInt(140)))
}

func TestSettleAlreadySettledIsNoOpAndEmitsNothing(t *testing.T) {
	f := newSettlementFixture()
	account, transaction := f.seed(t, 500, 50, model.TransactionTypeDebit, model.TransactionStatusSettled)

	require.NoError(t, f.service.Settle(context.Background(), authorizedEvent(account, transaction)))

	updatedAccount, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updatedAccount.Balance.Equal(decimal.NewFromInt(500)))
	assert.Empty(t, f.publisher.callsTo(testSettledTopic))
}

func TestSettleDuplicateDeliveryEmitsOneSettledEvent(t *testing.T) {
	f := newSettlementFixture()
	account, transaction := f.seed(t, 20000, 50, model.TransactionTypeDebit, model.TransactionStatusAuthorized)
	evt := authorizedEvent(account, transaction)

	require.NoError(t, f.service.Settle(context.Background(), evt))
	require.NoError(t, f.service.Settle(context.Background(), evt))

	updatedAccount, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updatedAccount.Balance.Equal(decimal.NewFromInt(19950)))
	assert.Len(t, f.publisher.callsTo(testSettledTopic), 1)
}

func TestSettleRetriesVersionConflictFromFreshRead(t *testing.T) {
	f := newSettlementFixture()
	account, transaction := f.seed(t, 1000, 100, model.TransactionTypeDebit, model.TransactionStatusAuthorized)
	f.accounts.applyErrs = []error{model.ErrVersionConflict}

	require.NoError(t, f.service.Settle(context.Background(), authorizedEvent(account, transaction)))

	updatedAccount, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updatedAccount.Balance.Equal(decimal.NewFromInt(900)))
	assert.GreaterOrEqual(t, f.accounts.loads, 3, "conflict must trigger a fresh account read")
	assert.Len(t, f.publisher.callsTo(testSettledTopic), 1)
}

func TestSettleSettledForPendingReviewTransaction(t *testing.T) {
	// PendingReview is the other valid source state for settlement.
	f := newSettlementFixture()
	account, transaction := f.seed(t, 50000, 10000, model.TransactionTypeDebit, model.TransactionStatusPendingReview)

	require.NoError(t, f.service.Settle(context.Background(), authorizedEvent(account, transaction)))

	updatedTx, err := f.transactions.GetByID(context.Background(), transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusSettled, updatedTx.Status)
}

func TestSettleUnknownTransactionFails(t *testing.T) {
	f := newSettlementFixture()

	err := f.service.Settle(context.Background(), &model.TransactionAuthorizedEvent{
		TransactionID: uuid.New(),
		AccountID:     uuid.New(),
		Amount:        decimal.NewFromInt(10),
		Type:          model.TransactionTypeDebit,
	})

	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}
