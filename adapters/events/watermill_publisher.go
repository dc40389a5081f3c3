package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
)

// DefaultTopicPrefix is prepended to the event type to form the topic
const DefaultTopicPrefix = "tradeauth."

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher   message.Publisher
	topicPrefix string
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher, topicPrefix string) *WatermillPublisher {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	return &WatermillPublisher{
		publisher:   publisher,
		topicPrefix: topicPrefix,
	}
}

// Topic returns the topic an event type is published on
func (p *WatermillPublisher) Topic(eventType core.EventType) string {
	return p.topicPrefix + string(eventType)
}

// Publish publishes an authentication event
func (p *WatermillPublisher) Publish(ctx context.Context, event core.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.Topic(event.Type), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the underlying publisher
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
