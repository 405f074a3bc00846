package uxerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"

	"jarvis-hud/internal/domain"
)

func TestHumanize(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		title string
	}{
		{"breaker open", fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, gobreaker.ErrOpenState), "Relay Unreachable"},
		{"auth sentinel", domain.ErrGatewayAuthFailed, "Token Rejected"},
		{"handshake 401", fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, errors.New("expected handshake response status code 101 but got 401")), "Token Rejected"},
		{"refused", fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")), "Relay Offline"},
		{"timeout", errors.New("context deadline exceeded"), "Relay Timed Out"},
		{"closed", fmt.Errorf("%w: %w", domain.ErrSourceClosed, errors.New("EOF")), "Connection Lost"},
		{"unknown role", domain.ErrUnknownRole, "Event Ignored"},
		{"fallback", errors.New("boom"), "Unexpected Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := Humanize(tt.err)
			assert.Equal(t, tt.title, fe.Title)
			assert.Equal(t, tt.err.Error(), fe.Raw)
		})
	}
}

func TestHumanizeNil(t *testing.T) {
	assert.Equal(t, "Unknown Error", Humanize(nil).Title)
}

func TestFriendlyErrorRendering(t *testing.T) {
	fe := FriendlyError{Title: "Relay Offline", Message: "Could not reach the relay.", Hints: []string{"a", "b"}}
	assert.Contains(t, fe.Short(), "Relay Offline")
	assert.Contains(t, fe.Short(), "a")
	assert.NotContains(t, fe.Short(), "b")

	out := fe.Render()
	assert.Contains(t, out, "Could not reach the relay.")
	assert.Contains(t, out, "Suggestions:")
	assert.Contains(t, out, "b")

	assert.Equal(t, "Bare", FriendlyError{Title: "Bare"}.Short())
}
