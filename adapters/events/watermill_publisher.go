package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/cleardesk/walletauth/ports"
)

const (
	// TopicLogin carries successful authentication events.
	TopicLogin = "walletauth.login"
	// TopicLogout carries sign-out events so other instances can drop any
	// cached state for the address.
	TopicLogout = "walletauth.logout"
)

// LoginEvent is published after a session has been established.
type LoginEvent struct {
	Address   string `json:"address"`
	SessionID string `json:"session_id"`
}

// LogoutEvent is published after the sessions for an address were deleted.
type LogoutEvent struct {
	Address string `json:"address"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address, sessionID string) error {
	return p.publish(TopicLogin, LoginEvent{Address: address, SessionID: sessionID})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string) error {
	return p.publish(TopicLogout, LogoutEvent{Address: address})
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

// PublishLogin implements ports.EventPublisher.
func (NopPublisher) PublishLogin(ctx context.Context, address, sessionID string) error { return nil }

// PublishLogout implements ports.EventPublisher.
func (NopPublisher) PublishLogout(ctx context.Context, address string) error { return nil }
