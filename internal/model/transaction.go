// Package model defines domain models and data structures.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money leaving from money entering an account.
type TransactionType string

const (
	// TransactionTypeDebit removes funds from the account on settlement.
	TransactionTypeDebit TransactionType = "Debit"
	// TransactionTypeCredit adds funds to the account on settlement.
	TransactionTypeCredit TransactionType = "Credit"
)

// ParseTransactionType parses a case-insensitive type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch {
	case strings.EqualFold(s, string(TransactionTypeDebit)):
		return TransactionTypeDebit, nil
	case strings.EqualFold(s, string(TransactionTypeCredit)):
		return TransactionTypeCredit, nil
	default:
		return "", ErrInvalidTransactionType
	}
}

// TransactionStatus is the lifecycle state of a transaction. Transitions are
// monotonic: Authorized and PendingReview may move to Settled; Settled and
// Rejected are terminal.
type TransactionStatus string

const (
	// TransactionStatusPending marks a transaction not yet evaluated.
	TransactionStatusPending TransactionStatus = "Pending"
	// TransactionStatusAuthorized marks a transaction cleared for settlement.
	TransactionStatusAuthorized TransactionStatus = "Authorized"
	// TransactionStatusRejected marks a transaction that failed authorization.
	TransactionStatusRejected TransactionStatus = "Rejected"
	// TransactionStatusSettled marks a transaction applied to the balance.
	TransactionStatusSettled TransactionStatus = "Settled"
	// TransactionStatusPendingReview marks a high-value debit held for review.
	TransactionStatusPendingReview TransactionStatus = "PendingReview"
)

// Transaction represents a single money movement against one account.
type Transaction struct {
	ID        uuid.UUID         `json:"id"`
	AccountID uuid.UUID         `json:"accountId"`
	Amount    decimal.Decimal   `json:"amount"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// CreateTransactionParams represents parameters for creating a new transaction.
type CreateTransactionParams struct {
	AccountID uuid.UUID       `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
}

// Validate checks the request-level rules: positive amount first, then a
// parseable type. Account existence and funds are checked by the service.
func (p *CreateTransactionParams) Validate() (TransactionType, error) {
	if !p.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	txType, err := ParseTransactionType(p.Type)
	if err != nil {
		return "", err
	}

	return txType, nil
}
