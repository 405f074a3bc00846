// Package uxerror translates relay connection errors into short messages with
// recovery hints for the HUD status line.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sony/gobreaker/v2"

	"jarvis-hud/internal/adapter/tui/theme"
	"jarvis-hud/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Relay Offline"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Short renders the title and first hint on one line for the status bar.
func (fe FriendlyError) Short() string {
	if len(fe.Hints) == 0 {
		return fe.Title
	}
	return fe.Title + " " + theme.Symbols.Bullet + " " + fe.Hints[0]
}

// Render formats the FriendlyError over several lines.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.Symbols.Bullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Sentinel errors first so errors.Is works through wrapping.
	{
		match:   func(err error) bool { return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) },
		produce: constantError("Relay Unreachable", "Repeated connection failures; waiting before the next attempt.", []string{"start the relay with 'jarvis relay'", "check hud.server_url in config"}),
	},
	{
		match:   func(err error) bool { return errors.Is(err, domain.ErrGatewayAuthFailed) },
		produce: constantError("Token Rejected", "The relay refused the HUD's token.", []string{"set hud.token to one of relay.auth.tokens"}),
	},
	{
		match:   func(err error) bool { return errors.Is(err, domain.ErrUnknownRole) },
		produce: constantError("Event Ignored", "The relay sent a message with an unknown role.", []string{"the backend must send role user or assistant"}),
	},

	// Dial failures surface as plain strings from the websocket library.
	{
		match:   containsAny("401", "403", "unauthorized", "authentication failed"),
		produce: constantError("Token Rejected", "The relay refused the HUD's token.", []string{"set hud.token to one of relay.auth.tokens"}),
	},
	{
		match:   containsAny("connection refused", "no such host", "dial tcp"),
		produce: constantError("Relay Offline", "Could not reach the relay.", []string{"start the relay with 'jarvis relay'", "check hud.server_url in config"}),
	},
	{
		match:   containsAny("deadline exceeded", "timeout"),
		produce: constantError("Relay Timed Out", "The relay did not answer in time.", []string{"check the network between HUD and relay"}),
	},
	{
		match:   func(err error) bool { return errors.Is(err, domain.ErrSourceClosed) },
		produce: constantError("Connection Lost", "The relay closed the connection.", []string{"reconnecting automatically"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"see hud.log_file for details"},
		Raw:     err.Error(),
	}
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
