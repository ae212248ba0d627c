package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

// In-memory fakes implementing the repository interfaces and the broker
// publisher capability.

type fakeAccountRepo struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]*model.Account
	applyErrs []error // consumed one per ApplyBalance call
	loads     int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*model.Account)}
}

func (f *fakeAccountRepo) Create(_ context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := *account
	f.accounts[account.ID] = &clone

	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loads++

	account, ok := f.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}

	clone := *account

	return &clone, nil
}

func (f *fakeAccountRepo) ApplyBalance(
	_ context.Context, id uuid.UUID, balance decimal.Decimal, expectedVersion int32,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.applyErrs) > 0 {
		err := f.applyErrs[0]
		f.applyErrs = f.applyErrs[1:]

		if err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				// Simulate the concurrent writer that won the race.
				f.accounts[id].Version++
			}

			return err
		}
	}

	account, ok := f.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}

	if account.Version != expectedVersion {
		return model.ErrVersionConflict
	}

	account.Balance = balance
	account.Version++

	return nil
}

type fakeTransactionRepo struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*model.Transaction
	createErr    error
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: make(map[uuid.UUID]*model.Transaction)}
}

func (f *fakeTransactionRepo) Create(_ context.Context, transaction *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	clone := *transaction
	f.transactions[transaction.ID] = &clone

	return nil
}

func (f *fakeTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	transaction, ok := f.transactions[id]
	if !ok {
		return nil, model.ErrTransactionNotFound
	}

	clone := *transaction

	return &clone, nil
}

func (f *fakeTransactionRepo) UpdateStatus(
	_ context.Context, id uuid.UUID, status model.TransactionStatus, updatedAt time.Time,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	transaction, ok := f.transactions[id]
	if !ok {
		return model.ErrTransactionNotFound
	}

	transaction.Status = status
	transaction.UpdatedAt = updatedAt

	return nil
}

type fakeOutboxRepo struct {
	mu       sync.Mutex
	messages []*model.OutboxMessage
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{}
}

func (f *fakeOutboxRepo) Create(_ context.Context, message *model.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := *message
	f.messages = append(f.messages, &clone)

	return nil
}

func (f *fakeOutboxRepo) ListUnprocessed(_ context.Context, limit int) ([]*model.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var unprocessed []*model.OutboxMessage

	for _, message := range f.messages {
		if message.Processed {
			continue
		}

		clone := *message
		unprocessed = append(unprocessed, &clone)

		if len(unprocessed) == limit {
			break
		}
	}

	return unprocessed, nil
}

func (f *fakeOutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, message := range f.messages {
		if message.ID == id {
			message.Processed = true
			return nil
		}
	}

	return errors.New("outbox message not found")
}

func (f *fakeOutboxRepo) processedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, message := range f.messages {
		if message.Processed {
			count++
		}
	}

	return count
}

// fakeTxManager runs the closure without a real database transaction.
type fakeTxManager struct {
	beginErr error
}

func (f *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}

	return fn(ctx)
}

type publishCall struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

// fakePublisher records publishes and fails a configured number of times per
// topic before succeeding.
type fakePublisher struct {
	mu           sync.Mutex
	calls        []publishCall
	failuresLeft map[string]int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failuresLeft: make(map[string]int)}
}

func (f *fakePublisher) failTopic(topic string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failuresLeft[topic] = times
}

func (f *fakePublisher) Publish(
	_ context.Context, topic, key string, payload []byte, headers map[string]string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failuresLeft[topic] > 0 {
		f.failuresLeft[topic]--
		return errors.New("broker unavailable")
	}

	headersCopy := make(map[string]string, len(headers))
	for name, value := range headers {
		headersCopy[name] = value
	}

	f.calls = append(f.calls, publishCall{
		topic:   topic,
		key:     key,
		payload: append([]byte(nil), payload...),
		headers: headersCopy,
	})

	return nil
}

func (f *fakePublisher) callsTo(topic string) []publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var calls []publishCall
	for _, call := range f.calls {
		if call.topic == topic {
			calls = append(calls, call)
		}
	}

	return calls
}

// fakeStatementRepo mirrors the document store's idempotent apply semantics
// in memory.
type fakeStatementRepo struct {
	mu         sync.Mutex
	statements map[uuid.UUID]*model.AccountStatement
	applyErr   error
}

func newFakeStatementRepo() *fakeStatementRepo {
	return &fakeStatementRepo{statements: make(map[uuid.UUID]*model.AccountStatement)}
}

func (f *fakeStatementRepo) Apply(
	_ context.Context, accountID uuid.UUID, balance decimal.Decimal, entry model.StatementEntry,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.applyErr != nil {
		return false, f.applyErr
	}

	statement, ok := f.statements[accountID]
	if !ok {
		f.statements[accountID] = &model.AccountStatement{
			AccountID:      accountID,
			CurrentBalance: balance,
			Entries:        []model.StatementEntry{entry},
			LastUpdated:    entry.ProcessedAt,
		}

		return true, nil
	}

	for _, existing := range statement.Entries {
		if existing.TransactionID == entry.TransactionID {
			return false, nil
		}
	}

	statement.CurrentBalance = balance
	statement.Entries = append(statement.Entries, entry)
	statement.LastUpdated = entry.ProcessedAt

	return true, nil
}

func (f *fakeStatementRepo) GetByAccountID(
	_ context.Context, accountID uuid.UUID,
) (*model.AccountStatement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	statement, ok := f.statements[accountID]
	if !ok {
		return nil, model.ErrAccountNotFound
	}

	clone := *statement
	clone.Entries = append([]model.StatementEntry(nil), statement.Entries...)

	return &clone, nil
}
