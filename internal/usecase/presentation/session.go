// Package presentation holds the HUD's conversation-driven state: the visual
// state machine, the completion flag and the paced reveal of messages.
//
// A Session is not safe for concurrent use. The driver must call HandleEvent,
// Step and Tick from one goroutine; in the terminal HUD that is Bubble Tea's
// update loop.
package presentation

import (
	"log/slog"
	"time"

	"jarvis-hud/internal/domain"
)

// Config configures a Session.
type Config struct {
	Engine EngineConfig
}

// Session owns the current visual state, the completion flag and the reveal engine.
type Session struct {
	state    domain.VisualState
	finished bool
	pulsing  bool

	engine *Engine
	cues   domain.CueSink
	logger *slog.Logger

	completions int
}

// NewSession creates a session in StateIdle.
func NewSession(surface domain.Surface, cues domain.CueSink, cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		engine: NewEngine(surface, cfg.Engine),
		cues:   cues,
		logger: logger,
	}
	s.engine.OnComplete(s.revealDone)
	return s
}

// HandleEvent applies an inbound conversation event: it clears the
// completion flag, moves to the role's state and starts the reveal.
// Events with an unknown role are rejected without touching any state.
func (s *Session) HandleEvent(ev domain.ConversationEvent) (Schedule, error) {
	if err := ev.Validate(); err != nil {
		return Schedule{}, err
	}

	s.finished = false
	switch ev.Role {
	case domain.RoleUser:
		s.switchState(domain.StateThinking)
	case domain.RoleAssistant:
		s.switchState(domain.StateAnswering)
	}
	return s.engine.Start(ev.Content, ev.Role)
}

// Step advances the reveal task id by one unit.
func (s *Session) Step(id TaskID) Schedule {
	return s.engine.Step(id)
}

// Tick runs once per frame with the frame's time. A raised completion flag
// is consumed here and returns the session to StateIdle; then the current
// state's cues are applied.
func (s *Session) Tick(now time.Time) Cues {
	if s.finished {
		s.finished = false
		s.switchState(domain.StateIdle)
	}
	c := CuesFor(s.state, s.pulsing, now)
	s.pulsing = c.Pulsing
	if s.cues != nil {
		c.apply(s.cues)
	}
	return c
}

// State returns the current visual state.
func (s *Session) State() domain.VisualState { return s.state }

// Finished reports whether the last assistant reveal finished and has not
// been consumed by a tick yet.
func (s *Session) Finished() bool { return s.finished }

// Pulsing reports whether a pulsing glow is active.
func (s *Session) Pulsing() bool { return s.pulsing }

// Completions counts how many times the completion flag was raised.
func (s *Session) Completions() int { return s.completions }

// Engine exposes the reveal engine for inspection.
func (s *Session) Engine() *Engine { return s.engine }

func (s *Session) switchState(next domain.VisualState) {
	if next != s.state {
		s.logger.Debug("presentation state change", "from", s.state.String(), "to", next.String())
	}
	s.state = next
	if s.cues == nil {
		return
	}
	s.cues.SetColor(domain.ColorAccent)
	// A running pulse keeps animating over the baseline glow.
	mode := domain.GlowSteady
	if s.pulsing {
		mode = domain.GlowPulsing
	}
	s.cues.SetGlow(GlowIdle, mode)
}

// revealDone raises the flag for a finished assistant reveal, unless another
// assistant reveal is still running or queued.
func (s *Session) revealDone(t *RevealTask) {
	if !t.Signals() {
		return
	}
	if s.engine.InFlightFor(domain.RoleAssistant) > 0 {
		s.logger.Debug("assistant reveal finished with another in flight", "task", uint64(t.ID))
		return
	}
	s.finished = true
	s.completions++
}
