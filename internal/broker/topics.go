package broker

import (
	"fmt"

	"github.com/notcrow/TransacoesFinanceiras/internal/model"
)

// TopicTable is the closed mapping from event type to destination topic.
// A missing mapping is a configuration error for that message, never a
// silent skip.
type TopicTable struct {
	byEventType map[string]string
}

// NewTopicTable builds the event-type routing table.
func NewTopicTable(mapping map[string]string) *TopicTable {
	byEventType := make(map[string]string, len(mapping))
	for eventType, topic := range mapping {
		byEventType[eventType] = topic
	}

	return &TopicTable{byEventType: byEventType}
}

// Resolve returns the topic for an event type or ErrUnknownEventType.
func (t *TopicTable) Resolve(eventType string) (string, error) {
	topic, ok := t.byEventType[eventType]
	if !ok {
		return "", fmt.Errorf("%w: no topic mapping for %q", model.ErrUnknownEventType, eventType)
	}

	return topic, nil
}
