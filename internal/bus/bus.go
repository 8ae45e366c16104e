// Package bus provides event bus implementations for broadcasting chat
// pipeline events to downstream consumers.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "chat.answered").
	Type string `json:"type"`

	// Source is the service that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created.
	Timestamp int64 `json:"timestamp"`

	// SessionID links events belonging to one conversation.
	SessionID string `json:"session_id,omitempty"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(eventType, sessionID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "raid-chat",
		Timestamp: time.Now().Unix(),
		SessionID: sessionID,
		Payload:   payload,
	}
}

// Topics for chat pipeline events.
const (
	// TopicChatAnswered carries one event per completed request.
	TopicChatAnswered = "chat.answered"

	// TopicChatFailed carries requests that degraded to an error reply.
	TopicChatFailed = "chat.failed"

	// TopicFeedback carries user feedback attached to a turn.
	TopicFeedback = "chat.feedback"
)
