package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	// EventPromptResponse carries a ConversationEvent. The name matches the
	// event the assistant backend has always emitted.
	EventPromptResponse EventType = "prompt_response"

	EventClientConnected    EventType = "client.connected"
	EventClientDisconnected EventType = "client.disconnected"
	EventHistoryPruned      EventType = "history.pruned"
)

// Event is the envelope published on the event bus and pushed to relay clients.
type Event struct {
	ID        string          `json:"id,omitempty"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewConversationEvent wraps ev in a prompt_response envelope.
func NewConversationEvent(id string, ev ConversationEvent, at time.Time) (Event, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Event{}, WrapOp("NewConversationEvent", err)
	}
	return Event{ID: id, Type: EventPromptResponse, Timestamp: at, Payload: payload}, nil
}

// Conversation decodes a prompt_response payload and validates its role.
func (e Event) Conversation() (ConversationEvent, error) {
	if e.Type != EventPromptResponse {
		return ConversationEvent{}, NewDomainError("Event.Conversation", ErrInvalidInput, "event type "+string(e.Type))
	}
	var ev ConversationEvent
	if err := json.Unmarshal(e.Payload, &ev); err != nil {
		return ConversationEvent{}, NewDomainError("Event.Conversation", ErrInvalidInput, err.Error())
	}
	if err := ev.Validate(); err != nil {
		return ConversationEvent{}, err
	}
	return ev, nil
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// HistoryStore persists conversation events for replay.
type HistoryStore interface {
	Append(ctx context.Context, rec HistoryRecord) error
	// Recent returns up to limit records, oldest first.
	Recent(ctx context.Context, limit int) ([]HistoryRecord, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
