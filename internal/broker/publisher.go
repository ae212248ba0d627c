// Package broker provides publish and consume primitives over Redis Streams.
package broker

import (
	"context"

	"github.com/redis/rueidis"
)

// Message header names carried as stream fields alongside the payload.
const (
	HeaderCorrelationID     = "CorrelationId"
	HeaderEventType         = "EventType"
	HeaderOriginalEventType = "OriginalEventType"
	HeaderSource            = "Source"
)

// Stream fields reserved for the message body; everything else is a header.
const (
	fieldKey     = "key"
	fieldPayload = "payload"
)

// Publisher is the capability every component that emits events depends on.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error
}

// StreamPublisher publishes messages to Redis Streams via XADD.
type StreamPublisher struct {
	client rueidis.Client
}

// NewStreamPublisher creates a Publisher backed by the given Redis client.
func NewStreamPublisher(client rueidis.Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

// Publish appends one message to the topic stream. The key and headers are
// stored as fields next to the payload so consumers can route without
// deserializing.
func (p *StreamPublisher) Publish(
	ctx context.Context, topic, key string, payload []byte, headers map[string]string,
) error {
	fv := p.client.B().Xadd().Key(topic).Id("*").
		FieldValue().
		FieldValue(fieldKey, key).
		FieldValue(fieldPayload, string(payload))

	for name, value := range headers {
		fv = fv.FieldValue(name, value)
	}

	return p.client.Do(ctx, fv.Build()).Error()
}
