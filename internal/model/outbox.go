package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxMessage represents an outbox row for reliable event delivery. It is
// written in the same database transaction as the business state it
// describes and flipped to processed exactly once by the publisher.
type OutboxMessage struct {
	ID         uuid.UUID `json:"id"`
	EventType  string    `json:"event_type"`
	Payload    []byte    `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
	Processed  bool      `json:"processed"`
}
