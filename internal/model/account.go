package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the source of truth for a customer's balance. Only the
// settlement path mutates balance and version after creation.
type Account struct {
	ID         uuid.UUID       `json:"id"`
	HolderName string          `json:"holderName"`
	Balance    decimal.Decimal `json:"balance"`
	Version    int32           `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// CreateAccountParams represents parameters for opening a new account.
type CreateAccountParams struct {
	HolderName     string          `json:"holderName"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

// Validate checks the request-level rules for opening an account.
func (p *CreateAccountParams) Validate() error {
	if strings.TrimSpace(p.HolderName) == "" {
		return ErrInvalidHolderName
	}

	if p.InitialBalance.IsNegative() {
		return ErrInvalidInitialBalance
	}

	return nil
}
