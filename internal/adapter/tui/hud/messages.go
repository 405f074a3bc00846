// Package hud implements the terminal HUD: an animated avatar, a clock panel
// and a transcript that reveals relayed conversation character by character.
package hud

import (
	"time"

	"jarvis-hud/internal/domain"
	"jarvis-hud/internal/usecase/presentation"
)

// ConversationMsg carries one relayed event into the update loop.
type ConversationMsg struct {
	Event domain.ConversationEvent
}

// RevealStepMsg asks the session to append the next unit of a reveal task.
type RevealStepMsg struct {
	Task presentation.TaskID
}

// FrameMsg drives one animation frame.
type FrameMsg struct {
	Time time.Time
}

// ClockMsg refreshes the clock panel.
type ClockMsg struct {
	Time time.Time
}

// BootDoneMsg ends the boot splash.
type BootDoneMsg struct{}

// StatusMsg reports a relay connection change. Err explains a disconnect.
type StatusMsg struct {
	Status string
	Err    error
}

// QuitMsg signals the program to exit.
type QuitMsg struct{}
