package domain

// VisualState is the conversation phase shown by the avatar.
type VisualState int

const (
	StateIdle      VisualState = iota // waiting for the next exchange
	StateThinking                     // user spoke, assistant has not answered
	StateAnswering                    // assistant answer is being shown
)

func (s VisualState) String() string {
	switch s {
	case StateIdle:
		return "waiting"
	case StateThinking:
		return "thinking"
	case StateAnswering:
		return "answering"
	default:
		return "unknown"
	}
}

// GlowMode selects between a steady and a pulsing glow.
type GlowMode int

const (
	GlowSteady GlowMode = iota
	GlowPulsing
)

func (m GlowMode) String() string {
	if m == GlowPulsing {
		return "pulsing"
	}
	return "steady"
}

// ColorToken names a palette entry understood by the renderer.
type ColorToken string

// ColorAccent is the avatar's base colour (#00b3ff).
const ColorAccent ColorToken = "accent"

// RotationDelta nudges the avatar's decorative parts by fixed amounts.
// Core is the centre sphere's spin; Inner and Outer are the two rings.
type RotationDelta struct {
	Core  float64
	Inner float64
	Outer float64
}

// IsZero reports whether applying d would change nothing.
func (d RotationDelta) IsZero() bool {
	return d.Core == 0 && d.Inner == 0 && d.Outer == 0
}

// CueSink receives visual cues from the presentation session.
// Implementations belong to the renderer.
type CueSink interface {
	SetGlow(intensity float64, mode GlowMode)
	ApplyDecorativeRotation(delta RotationDelta)
	SetColor(token ColorToken)
}

// Surface is an append-only text sink with a scroll position.
type Surface interface {
	AppendText(s string)
	AppendBreak()
	ScrollToBottom()
	// ContentHeight and VisibleHeight are in the surface's own units (lines for a terminal).
	ContentHeight() int
	VisibleHeight() int
}
