package domain

import (
	"fmt"
	"time"
)

// Role tags who produced a conversation message.
type Role string

// Role constants for conversation events.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole converts a wire tag into a Role. Unknown tags are rejected
// rather than mapped to a default label.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ConversationEvent is one role-tagged message received from the event source.
// Content may be empty and may contain newlines.
type ConversationEvent struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate checks the role tag.
func (e ConversationEvent) Validate() error {
	if !e.Role.Valid() {
		return NewDomainError("ConversationEvent.Validate", ErrUnknownRole, fmt.Sprintf("role %q", e.Role))
	}
	return nil
}

// HistoryRecord is a conversation event as persisted by the relay.
type HistoryRecord struct {
	ID         string            `json:"id"`
	Event      ConversationEvent `json:"event"`
	ReceivedAt time.Time         `json:"received_at"`
}
