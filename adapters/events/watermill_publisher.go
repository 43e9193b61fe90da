package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/d1c-app/d1c-gateway/ports"
)

// Topics for authentication lifecycle events.
const (
	TopicSignIn      = "auth.signin"
	TopicMFAVerified = "auth.mfa_verified"
	TopicLogout      = "auth.logout"
)

// AuthEvent is the payload published on every auth topic.
type AuthEvent struct {
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
}

// WatermillPublisher implements EventPublisher using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill-backed event publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) PublishSignIn(ctx context.Context, address string) error {
	return p.publish(TopicSignIn, address)
}

func (p *WatermillPublisher) PublishMFAVerified(ctx context.Context, address string) error {
	return p.publish(TopicMFAVerified, address)
}

func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string) error {
	return p.publish(TopicLogout, address)
}

func (p *WatermillPublisher) publish(topic, address string) error {
	payload, err := json.Marshal(AuthEvent{
		Address:   address,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal auth event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}

	return nil
}

// NoopPublisher discards all events. Used when eventing is disabled.
type NoopPublisher struct{}

func NewNoopPublisher() ports.EventPublisher { return NoopPublisher{} }

func (NoopPublisher) PublishSignIn(ctx context.Context, address string) error      { return nil }
func (NoopPublisher) PublishMFAVerified(ctx context.Context, address string) error { return nil }
func (NoopPublisher) PublishLogout(ctx context.Context, address string) error      { return nil }
