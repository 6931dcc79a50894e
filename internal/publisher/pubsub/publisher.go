// Package pubsub publishes analysis events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Attributer is implemented by payloads that carry their own message attributes, such as
// analysis.Event.
type Attributer interface {
	Attributes() map[string]string
}

// Publisher sends JSON payloads through a topic publisher.
type Publisher struct {
	publisher *pubsub.Publisher
}

// New wraps a topic publisher created with Client.Publisher.
func New(publisher *pubsub.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// Publish blocks until the server acknowledges the message and returns its id. The topic
// argument is only reported in errors since the wrapped publisher is bound to one topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p.publisher == nil {
		return "", errors.New("pubsub publisher is not configured")
	}
	msg, err := encode(payload)
	if err != nil {
		return "", err
	}
	id, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return id, nil
}

func encode(payload any) (*pubsub.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	attrs := map[string]string{"content_type": "application/json"}
	if a, ok := payload.(Attributer); ok {
		maps.Copy(attrs, a.Attributes())
	}
	return &pubsub.Message{Data: data, Attributes: attrs}, nil
}
