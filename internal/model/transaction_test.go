package model_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		input   string
		want    model.TransactionType
		wantErr bool
	}{
		{input: "Debit", want: model.TransactionTypeDebit},
		{input: "debit", want: model.TransactionTypeDebit},
		{input: "CREDIT", want: model.TransactionTypeCredit},
		{input: "Credit", want: model.TransactionTypeCredit},
		{input: "Transfer", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := model.ParseTransactionType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalidTransactionType)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateTransactionParamsValidate(t *testing.T) {
	params := &model.CreateTransactionParams{
		AccountID: uuid.New(),
		Amount:    decimal.NewFromInt(50),
		Type:      "Debit",
	}

	txType, err := params.Validate()
	require.NoError(t, err)
	assert.Equal(t, model.TransactionTypeDebit, txType)
}

func TestCreateTransactionParamsValidateAmountCheckedFirst(t *testing.T) {
	// Non-positive amount must win over a bad type.
	params := &model.CreateTransactionParams{
		AccountID: uuid.New(),
		Amount:    decimal.Zero,
		Type:      "Transfer",
	}

	_, err := params.Validate()
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestCreateTransactionParamsValidateNegativeAmount(t *testing.T) {
	params := &model.CreateTransactionParams{
		AccountID: uuid.New(),
		Amount:    decimal.NewFromInt(-10),
		Type:      "Credit",
	}

	_, err := params.Validate()
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}
