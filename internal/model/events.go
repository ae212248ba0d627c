package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type tags carried in outbox rows and message headers. The set is
// closed: anything else is rejected with ErrUnknownEventType.
const (
	// EventTypeTransactionAuthorized tags events emitted after authorization.
	EventTypeTransactionAuthorized = "TransactionAuthorized"
	// EventTypeTransactionSettled tags events emitted after settlement.
	EventTypeTransactionSettled = "TransactionSettled"
)

// TransactionAuthorizedEvent is published once a transaction clears
// authorization and is staged in the outbox.
type TransactionAuthorizedEvent struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	AccountID     uuid.UUID       `json:"accountId"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	CorrelationID string          `json:"correlationId"`
	OccurredAtUtc time.Time       `json:"occurredAtUtc"`
}

// TransactionSettledEvent is published after the balance change and status
// transition have been committed.
type TransactionSettledEvent struct {
	TransactionID  uuid.UUID       `json:"transactionId"`
	AccountID      uuid.UUID       `json:"accountId"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	CorrelationID  string          `json:"correlationId"`
	OccurredAtUtc  time.Time       `json:"occurredAtUtc"`
}

// DeadLetterEvent wraps a message that exhausted its retries so it can be
// inspected or replayed from the dead-letter topic.
type DeadLetterEvent struct {
	Reason            string          `json:"reason"`
	OriginalEventType string          `json:"originalEventType"`
	OriginalKey       string          `json:"originalKey"`
	Payload           json.RawMessage `json:"payload"`
	OccurredAtUtc     time.Time       `json:"occurredAtUtc"`
}

// DecodeTransactionAuthorized parses a TransactionAuthorizedEvent payload.
func DecodeTransactionAuthorized(payload []byte) (*TransactionAuthorizedEvent, error) {
	var evt TransactionAuthorizedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", EventTypeTransactionAuthorized, err)
	}

	return &evt, nil
}

// DecodeTransactionSettled parses a TransactionSettledEvent payload.
func DecodeTransactionSettled(payload []byte) (*TransactionSettledEvent, error) {
	var evt TransactionSettledEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", EventTypeTransactionSettled, err)
	}

	return &evt, nil
}

// NewCorrelationID generates a compact hex correlation id propagated across
// every event derived from one request.
func NewCorrelationID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
