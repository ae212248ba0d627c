package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

const statementCollection = "account_statements"

// Balances are stored as canonical decimal strings; BSON doubles would lose
// precision on money.
type statementDoc struct {
	AccountID      string              `bson:"_id"`
	HolderName     string              `bson:"holder_name"`
	CurrentBalance string              `bson:"current_balance"`
	Entries        []statementEntryDoc `bson:"entries"`
	LastUpdated    time.Time           `bson:"last_updated"`
}

type statementEntryDoc struct {
	TransactionID string    `bson:"transaction_id"`
	BalanceAfter  string    `bson:"balance_after"`
	ProcessedAt   time.Time `bson:"processed_at"`
}

// StatementRepositoryImpl implements StatementRepository using MongoDB.
type StatementRepositoryImpl struct {
	collection *mongo.Collection
}

// NewStatementRepositoryImpl creates a new StatementRepository implementation.
func NewStatementRepositoryImpl(db *mongo.Database) StatementRepository {
	return &StatementRepositoryImpl{collection: db.Collection(statementCollection)}
}

// Apply upserts one settled transaction into the account's statement without
// a read-then-write window. The guarded update only matches a statement that
// does not yet contain the transaction id; when nothing matches, the insert
// either creates the document or collides with the existing one, which means
// the entry was already applied.
func (r *StatementRepositoryImpl) Apply(
	ctx context.Context, accountID uuid.UUID, balance decimal.Decimal, entry model.StatementEntry,
) (bool, error) {
	entryDoc := statementEntryDoc{
		TransactionID: entry.TransactionID.String(),
		BalanceAfter:  entry.BalanceAfter.String(),
		ProcessedAt:   entry.ProcessedAt,
	}

	filter := bson.M{
		"_id":                    accountID.String(),
		"entries.transaction_id": bson.M{"$ne": entryDoc.TransactionID},
	}
	update := bson.M{
		"$set": bson.M{
			"current_balance": balance.String(),
			"last_updated":    entry.ProcessedAt,
		},
		"$push": bson.M{"entries": entryDoc},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update account statement: %w", err)
	}

	if result.ModifiedCount > 0 {
		return true, nil
	}

	doc := statementDoc{
		AccountID:      accountID.String(),
		CurrentBalance: balance.String(),
		Entries:        []statementEntryDoc{entryDoc},
		LastUpdated:    entry.ProcessedAt,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil // statement exists and already holds this transaction
		}

		return false, fmt.Errorf("failed to insert account statement: %w", err)
	}

	return true, nil
}

// GetByAccountID retrieves the statement projection for an account.
func (r *StatementRepositoryImpl) GetByAccountID(
	ctx context.Context, accountID uuid.UUID,
) (*model.AccountStatement, error) {
	var doc statementDoc

	err := r.collection.FindOne(ctx, bson.M{"_id": accountID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrAccountNotFound
		}

		return nil, fmt.Errorf("failed to load account statement: %w", err)
	}

	return statementFromDoc(&doc)
}

func statementFromDoc(doc *statementDoc) (*model.AccountStatement, error) {
	accountID, err := uuid.Parse(doc.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement account id: %w", err)
	}

	balance, err := decimal.NewFromString(doc.CurrentBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement balance: %w", err)
	}

	statement := &model.AccountStatement{
		AccountID:      accountID,
		HolderName:     doc.HolderName,
		CurrentBalance: balance,
		Entries:        make([]model.StatementEntry, 0, len(doc.Entries)),
		LastUpdated:    doc.LastUpdated,
	}

	for _, entryDoc := range doc.Entries {
		transactionID, err := uuid.Parse(entryDoc.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse statement transaction id: %w", err)
		}

		balanceAfter, err := decimal.NewFromString(entryDoc.BalanceAfter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse statement entry balance: %w", err)
		}

		statement.Entries = append(statement.Entries, model.StatementEntry{
			TransactionID: transactionID,
			BalanceAfter:  balanceAfter,
			ProcessedAt:   entryDoc.ProcessedAt,
		})
	}

	return statement, nil
}
