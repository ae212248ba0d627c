package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

func TestCreateAccountParamsValidate(t *testing.T) {
	params := &model.CreateAccountParams{
		HolderName:     "Maria Silva",
		InitialBalance: decimal.NewFromInt(20000),
	}

	assert.NoError(t, params.Validate())
}

func TestCreateAccountParamsValidateRejectsBlankHolderName(t *testing.T) {
	params := &model.CreateAccountParams{
		HolderName:     "   ",
		InitialBalance: decimal.NewFromInt(100),
	}

	assert.ErrorIs(t, params.Validate(), model.ErrInvalidHolderName)
}

func TestCreateAccountParamsValidateRejectsNegativeBalance(t *testing.T) {
	params := &model.CreateAccountParams{
		HolderName:     "Maria Silva",
		InitialBalance: decimal.NewFromInt(-1),
	}

	assert.ErrorIs(t, params.Validate(), model.ErrInvalidInitialBalance)
}

func TestCreateAccountParamsValidateAllowsZeroBalance(t *testing.T) {
	params := &model.CreateAccountParams{
		HolderName:     "Maria Silva",
		InitialBalance: decimal.Zero,
	}

	assert.NoError(t, params.Validate())
}
