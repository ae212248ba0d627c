package model

import "errors"

var (
	// ErrInvalidAmount is returned when the transaction amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than 0")
	// ErrInvalidTransactionType is returned when the type is neither Debit nor Credit.
	ErrInvalidTransactionType = errors.New("invalid transaction type (Debit or Credit)")
	// ErrInsufficientFunds is returned when a debit exceeds the account balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidHolderName is returned when an account is opened without a holder name.
	ErrInvalidHolderName = errors.New("holder name is required")
	// ErrInvalidInitialBalance is returned when an account is opened with a negative balance.
	ErrInvalidInitialBalance = errors.New("initial balance must not be negative")
	// ErrAccountNotFound is returned when the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTransactionNotFound is returned when the referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrVersionConflict is returned when an optimistic-concurrency write lost the race.
	// Callers reload and retry; it never surfaces to the API.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrUnknownEventType is returned when an event type has no known decoder or topic.
	ErrUnknownEventType = errors.New("unknown event type")
)

// IsValidation reports whether err rejects the request itself rather than
// signaling an infrastructure problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidTransactionType) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidHolderName) ||
		errors.Is(err, ErrInvalidInitialBalance)
}

// IsNotFound reports whether err refers to a missing account or transaction.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrTransactionNotFound)
}
