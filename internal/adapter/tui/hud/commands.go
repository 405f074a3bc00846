package hud

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"jarvis-hud/internal/usecase/presentation"
)

// revealCmd honours a Schedule returned by the session. The zero Schedule
// needs no command.
func revealCmd(s presentation.Schedule) tea.Cmd {
	if !s.Pending() {
		return nil
	}
	return tea.Tick(s.After, func(time.Time) tea.Msg {
		return RevealStepMsg{Task: s.Task}
	})
}

func frameCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return FrameMsg{Time: t}
	})
}

// clockCmd fires on the next whole second.
func clockCmd(now time.Time) tea.Cmd {
	wait := now.Truncate(time.Second).Add(time.Second).Sub(now)
	return tea.Tick(wait, func(t time.Time) tea.Msg {
		return ClockMsg{Time: t}
	})
}

func bootCmd(delay time.Duration) tea.Cmd {
	if delay <= 0 {
		return func() tea.Msg { return BootDoneMsg{} }
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return BootDoneMsg{}
	})
}
