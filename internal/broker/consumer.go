package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/rueidis"
)

const (
	readBlockTimeout = 1000 // milliseconds
	errorRetryDelay  = 1 * time.Second

	// newMessagesID asks XREADGROUP for entries never delivered to the
	// group; backlogStart asks for this consumer's own pending entries.
	newMessagesID = ">"
	backlogStart  = "0"
)

// Message is one delivery from a topic stream.
type Message struct {
	ID        string
	Key       string
	EventType string
	Payload   []byte
	Headers   map[string]string
}

// Handler processes one message to a terminal outcome. Returning nil means
// the message may be acknowledged: it was either fully processed or
// explicitly dead-lettered. Returning an error leaves it unacknowledged.
type Handler func(ctx context.Context, msg *Message) error

// StreamConsumer reads one message at a time from a Redis Stream consumer
// group, invoking a handler and acknowledging only after terminal handling.
type StreamConsumer struct {
	client   rueidis.Client
	stream   string
	group    string
	consumer string
}

// NewStreamConsumer creates a consumer bound to one stream and group.
func NewStreamConsumer(client rueidis.Client, stream, group, consumer string) *StreamConsumer {
	return &StreamConsumer{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

// EnsureGroup creates the consumer group, tolerating one that already exists.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) {
	cmd := c.client.B().XgroupCreate().Key(c.stream).Group(c.group).Id("0").Mkstream().Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		slog.Info("consumer group creation result (may already exist)",
			slog.String("stream", c.stream),
			slog.String("group", c.group),
			slog.String("error", err.Error()),
		)
	}
}

// Run consumes sequentially until ctx is cancelled. The in-flight message is
// always handled to completion before the loop observes cancellation. Any
// messages left unacknowledged by a previous run are reprocessed first.
func (c *StreamConsumer) Run(ctx context.Context, handler Handler) {
	c.DrainBacklog(ctx, handler)

	for {
		select {
		case <-ctx.Done():
			slog.Info("consumer stopped", slog.String("stream", c.stream))
			return
		default:
			if err := c.consume(ctx, handler); err != nil {
				slog.Error("error consuming messages",
					slog.String("stream", c.stream),
					slog.String("error", err.Error()),
				)
				sleepContext(ctx, errorRetryDelay)
			}
		}
	}
}

// DrainBacklog reprocesses messages this consumer received but never
// acknowledged, such as deliveries interrupted by shutdown. Redis Streams
// never hand pending entries back through the new-messages cursor, so they
// must be asked for explicitly; Run does this once before reading new
// messages.
func (c *StreamConsumer) DrainBacklog(ctx context.Context, handler Handler) {
	cursor := backlogStart

	for {
		if ctx.Err() != nil {
			return
		}

		entries, err := c.read(ctx, cursor)
		if err != nil {
			slog.Error("error reading pending messages",
				slog.String("stream", c.stream),
				slog.String("error", err.Error()),
			)
			sleepContext(ctx, errorRetryDelay)

			continue
		}

		if len(entries) == 0 {
			return
		}

		for _, entry := range entries {
			c.dispatch(ctx, entry, handler)
			cursor = entry.ID
		}
	}
}

func (c *StreamConsumer) consume(ctx context.Context, handler Handler) error {
	entries, err := c.read(ctx, newMessagesID)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		c.dispatch(ctx, entry, handler)
	}

	return nil
}

func (c *StreamConsumer) dispatch(ctx context.Context, entry rueidis.XRangeEntry, handler Handler) {
	msg := messageFromEntry(entry)

	if err := handler(ctx, msg); err != nil {
		slog.Error("failed to process message",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)

		return // stays in the pending list, reprocessed by the next backlog drain
	}

	c.acknowledge(ctx, msg.ID)
}

func (c *StreamConsumer) read(ctx context.Context, id string) ([]rueidis.XRangeEntry, error) {
	cmd := c.client.B().Xreadgroup().Group(c.group, c.consumer).
		Count(1).
		Block(readBlockTimeout).
		Streams().
		Key(c.stream).
		Id(id).
		Build()

	result := c.client.Do(ctx, cmd)
	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil // block timeout, nothing pending
		}

		return nil, err
	}

	streams, err := result.AsXRead()
	if err != nil {
		return nil, err
	}

	return streams[c.stream], nil
}

func (c *StreamConsumer) acknowledge(ctx context.Context, messageID string) {
	cmd := c.client.B().Xack().Key(c.stream).Group(c.group).Id(messageID).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		slog.Error("failed to ACK message",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Debug("ACKed message", slog.String("message_id", messageID))
	}
}

func messageFromEntry(entry rueidis.XRangeEntry) *Message {
	msg := &Message{
		ID:      entry.ID,
		Headers: make(map[string]string),
	}

	for field, value := range entry.FieldValues {
		switch field {
		case fieldKey:
			msg.Key = value
		case fieldPayload:
			msg.Payload = []byte(value)
		default:
			msg.Headers[field] = value
		}
	}

	msg.EventType = msg.Headers[HeaderEventType]

	return msg
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
