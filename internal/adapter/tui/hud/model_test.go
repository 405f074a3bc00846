package hud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis-hud/internal/domain"
	"jarvis-hud/internal/usecase/presentation"
)

var fixedNow = time.Date(2026, time.October, 18, 21, 7, 42, 0, time.Local)

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(Options{
		Reveal: presentation.EngineConfig{Cadence: time.Millisecond},
		Seed:   7,
		Now:    func() time.Time { return fixedNow },
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// runReveal executes reveal step commands until none are left.
func runReveal(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 10000, "reveal did not finish")
		msg := cmd()
		step, ok := msg.(RevealStepMsg)
		require.True(t, ok, "unexpected message %T", msg)
		m, cmd = update(t, m, step)
	}
	return m
}

func TestModelConversationFlow(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, domain.StateIdle, m.State())

	m, cmd := update(t, m, ConversationMsg{Event: domain.ConversationEvent{Role: domain.RoleUser, Content: "hi"}})
	assert.Equal(t, domain.StateThinking, m.State())
	assert.Equal(t, "Y", m.Transcript().Text(), "first unit appears immediately")

	m = runReveal(t, m, cmd)
	assert.Equal(t, "You: hi\n", m.Transcript().Text())
	assert.False(t, m.Session().Finished())

	m, _ = update(t, m, FrameMsg{})
	assert.Equal(t, domain.StateThinking, m.State())
	glow, mode := m.Avatar().Glow()
	assert.Equal(t, presentation.GlowIdle, glow)
	assert.Equal(t, domain.GlowPulsing, mode)

	m, cmd = update(t, m, ConversationMsg{Event: domain.ConversationEvent{Role: domain.RoleAssistant, Content: "Good evening."}})
	assert.Equal(t, domain.StateAnswering, m.State())
	m = runReveal(t, m, cmd)
	assert.Equal(t, "You: hi\nJARVIS: Good evening.\n", m.Transcript().Text())
	assert.True(t, m.Session().Finished())

	m, _ = update(t, m, FrameMsg{})
	assert.Equal(t, domain.StateIdle, m.State())
	assert.False(t, m.Session().Finished())
	assert.Equal(t, "waiting", m.StatusBar().State)
	glow, mode = m.Avatar().Glow()
	assert.Equal(t, presentation.GlowIdle, glow)
	assert.Equal(t, domain.GlowSteady, mode)
}

func TestModelEmptyAnswerDoesNotFinish(t *testing.T) {
	m := newTestModel(t)
	m, cmd := update(t, m, ConversationMsg{Event: domain.ConversationEvent{Role: domain.RoleAssistant}})
	m = runReveal(t, m, cmd)
	assert.Equal(t, "JARVIS: \n", m.Transcript().Text())
	assert.False(t, m.Session().Finished())

	m, _ = update(t, m, FrameMsg{})
	assert.Equal(t, domain.StateAnswering, m.State())
}

func TestModelRejectsUnknownRole(t *testing.T) {
	m := newTestModel(t)
	m, cmd := update(t, m, ConversationMsg{Event: domain.ConversationEvent{Role: "narrator", Content: "x"}})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.Rejected())
	assert.Equal(t, domain.StateIdle, m.State())
	assert.Empty(t, m.Transcript().Text())
	assert.Contains(t, m.StatusBar().Extra, "Event Ignored")
}

func TestModelPulseFollowsFrameTime(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, ConversationMsg{Event: domain.ConversationEvent{Role: domain.RoleUser, Content: "status?"}})

	m, _ = update(t, m, FrameMsg{Time: time.Unix(0, 0)})
	assert.InDelta(t, 1.0, m.Avatar().Brightness(), 1e-9)
	m, _ = update(t, m, FrameMsg{Time: time.Unix(1, 0)})
	assert.InDelta(t, 0.35, m.Avatar().Brightness(), 1e-9)

	m, _ = update(t, m, ConversationMsg{Event: domain.ConversationEvent{Role: domain.RoleAssistant, Content: "All good."}})
	m, _ = update(t, m, FrameMsg{Time: time.Unix(1, 0)})
	assert.Equal(t, 1.0, m.Avatar().Brightness())
}

func TestModelFrameMotion(t *testing.T) {
	m := newTestModel(t)
	m, cmd := update(t, m, FrameMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, uint64(1), m.Frames())

	core, inner, outer := m.Avatar().Rotation()
	assert.InDelta(t, 0.003, core, 1e-9)
	assert.InDelta(t, -0.003, inner, 1e-9)
	assert.Zero(t, outer)

	m, _ = update(t, m, ConversationMsg{Event: domain.ConversationEvent{Role: domain.RoleAssistant, Content: "long answer"}})
	m, _ = update(t, m, FrameMsg{})
	core, inner, outer = m.Avatar().Rotation()
	assert.InDelta(t, 0.006+0.06, core, 1e-9)
	assert.InDelta(t, -0.006-1, inner, 1e-9)
	assert.InDelta(t, -1, outer, 1e-9)
	glow, mode := m.Avatar().Glow()
	assert.Equal(t, presentation.GlowAnswering, glow)
	assert.Equal(t, domain.GlowSteady, mode)
}

func TestModelClock(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, "21:07", m.Clock().HourMinute())
	assert.Equal(t, "42", m.Clock().Seconds())

	later := time.Date(2026, time.March, 5, 9, 3, 8, 0, time.Local)
	m, cmd := update(t, m, ClockMsg{Time: later})
	assert.NotNil(t, cmd)
	assert.Equal(t, "09:03", m.Clock().HourMinute())
	assert.Equal(t, "08", m.Clock().Seconds())
	month, day := m.Clock().Date()
	assert.Equal(t, "March", month)
	assert.Equal(t, "5", day)
}

func TestClockPowerRange(t *testing.T) {
	for seed := uint64(1); seed <= 200; seed++ {
		c := NewClock(fixedNow, rand.New(rand.NewPCG(seed, seed)))
		require.GreaterOrEqual(t, c.Power(), 91)
		require.LessOrEqual(t, c.Power(), 100)
	}
}

func TestModelBootSplash(t *testing.T) {
	m := newTestModel(t)
	assert.True(t, m.Booting())
	assert.Contains(t, m.View(), "initializing systems")

	m, _ = update(t, m, BootDoneMsg{})
	assert.False(t, m.Booting())
	view := m.View()
	assert.Contains(t, view, "POWER")
	assert.Contains(t, view, "OCTOBER 18")
	assert.Contains(t, view, "21:07")
	assert.Contains(t, view, "J . A . R . V . I . S")
}

func TestModelViewShowsTranscript(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, BootDoneMsg{})
	m, cmd := update(t, m, ConversationMsg{Event: domain.ConversationEvent{Role: domain.RoleUser, Content: "status report"}})
	m = runReveal(t, m, cmd)
	assert.Contains(t, m.View(), "You: status report")
}

func TestModelNarrowLayoutHidesAvatar(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 50, Height: 20})
	m, _ = update(t, m, BootDoneMsg{})
	view := m.View()
	assert.Contains(t, view, "POWER")
	assert.NotContains(t, view, "J . A . R . V . I . S")
}

func TestModelStatus(t *testing.T) {
	m := newTestModel(t)
	refused := fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, errors.New("dial tcp: connection refused"))
	m, cmd := update(t, m, StatusMsg{Status: "disconnected", Err: refused})
	assert.Equal(t, "disconnected", m.StatusBar().Connection)
	assert.Contains(t, m.StatusBar().Extra, "Relay Offline")
	assert.NotNil(t, cmd, "first failure raises an alert")

	m, cmd = update(t, m, StatusMsg{Status: "connecting"})
	assert.NotEmpty(t, m.StatusBar().Extra)
	assert.Nil(t, cmd)

	m, cmd = update(t, m, StatusMsg{Status: "disconnected", Err: refused})
	assert.Nil(t, cmd, "same cause does not alert again")

	m, cmd = update(t, m, StatusMsg{Status: "connected"})
	assert.Equal(t, "connected", m.StatusBar().Connection)
	assert.Empty(t, m.StatusBar().Extra)
	assert.NotNil(t, cmd, "recovery raises an alert")

	m, cmd = update(t, m, StatusMsg{Status: "connected"})
	assert.Nil(t, cmd)
}

func TestModelQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		m := newTestModel(t)
		m, cmd := update(t, m, key)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, m.View())
	}

	m := newTestModel(t)
	_, cmd := update(t, m, QuitMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModelInit(t *testing.T) {
	m := newTestModel(t)
	assert.NotNil(t, m.Init())
}

func TestDisplayLifecycle(t *testing.T) {
	d := NewDisplay(Options{Seed: 3, BootDelay: time.Hour}, testLogger(),
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	d.SetStatus("connected", nil)
	d.Deliver(domain.ConversationEvent{Role: domain.RoleUser, Content: "ping"})
	require.NoError(t, d.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("display did not stop")
	}

	// Sends after exit must not block.
	d.Deliver(domain.ConversationEvent{Role: domain.RoleUser, Content: "late"})
}

func TestDisplayStopsOnCancel(t *testing.T) {
	d := NewDisplay(Options{Seed: 3}, testLogger(),
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("display did not stop")
	}
}
