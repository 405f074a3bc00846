package presentation

import (
	"math"
	"time"

	"jarvis-hud/internal/domain"
)

// Glow intensities, measured in shadow layers as the avatar draws them.
const (
	GlowIdle      = 3.0
	GlowAnswering = 8.0
)

// PulsePeriod is one full swing of a pulsing glow.
const PulsePeriod = 2 * time.Second

// AnsweringRotation is applied on every tick spent in StateAnswering.
var AnsweringRotation = domain.RotationDelta{Core: 0.06, Inner: -1, Outer: -1}

// Cues is what one tick asks of the renderer.
type Cues struct {
	State domain.VisualState

	// EmitGlow is false when the tick leaves the glow untouched.
	EmitGlow bool
	Glow     float64
	Mode     domain.GlowMode

	Rotation domain.RotationDelta

	// Pulsing is the pulse state after this tick.
	Pulsing bool
	// Brightness scales the glow for this frame: 1 unless pulsing.
	Brightness float64
}

// PulseBrightness is the glow multiplier of a pulse at frame time t. It
// swings between 0.35 and 1 once per PulsePeriod.
func PulseBrightness(t time.Time) float64 {
	phase := float64(t.UnixNano()%int64(PulsePeriod)) / float64(PulsePeriod)
	return 0.675 + 0.325*math.Cos(2*math.Pi*phase)
}

// CuesFor computes the cues for the frame at frameTime in state, given
// whether the glow is already pulsing. It has no side effects.
func CuesFor(state domain.VisualState, pulsing bool, frameTime time.Time) Cues {
	c := cuesFor(state, pulsing)
	c.Brightness = 1
	if c.Pulsing {
		c.Brightness = PulseBrightness(frameTime)
	}
	return c
}

func cuesFor(state domain.VisualState, pulsing bool) Cues {
	switch state {
	case domain.StateThinking:
		if pulsing {
			return Cues{State: state, Pulsing: true}
		}
		return Cues{State: state, EmitGlow: true, Glow: GlowIdle, Mode: domain.GlowPulsing, Pulsing: true}
	case domain.StateAnswering:
		return Cues{
			State:    state,
			EmitGlow: true,
			Glow:     GlowAnswering,
			Mode:     domain.GlowSteady,
			Rotation: AnsweringRotation,
		}
	default:
		return Cues{State: domain.StateIdle, EmitGlow: true, Glow: GlowIdle, Mode: domain.GlowSteady}
	}
}

func (c Cues) apply(sink domain.CueSink) {
	if c.EmitGlow {
		sink.SetGlow(c.Glow, c.Mode)
	}
	if !c.Rotation.IsZero() {
		sink.ApplyDecorativeRotation(c.Rotation)
	}
}
