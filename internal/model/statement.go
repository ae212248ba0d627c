package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementEntry is one applied transaction inside an account statement.
// A transaction id appears at most once per statement.
type StatementEntry struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	ProcessedAt   time.Time       `json:"processedAt"`
}

// AccountStatement is the denormalized read model derived from settled
// events. It is eventually consistent and may lag the relational store.
type AccountStatement struct {
	AccountID      uuid.UUID        `json:"accountId"`
	HolderName     string           `json:"holderName"`
	CurrentBalance decimal.Decimal  `json:"currentBalance"`
	Entries        []StatementEntry `json:"entries"`
	LastUpdated    time.Time        `json:"lastUpdated"`
}
