package hud

import (
	"io"
	"log/slog"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"jarvis-hud/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ domain.CueSink = (*Avatar)(nil)

func TestAvatarParticlesDeterministic(t *testing.T) {
	a, b := NewAvatar(42), NewAvatar(42)
	assert.Len(t, a.lines, lineCount)
	assert.Equal(t, a.lines, b.lines)
	for _, p := range a.lines {
		assert.True(t, p.x >= -25 && p.x <= 25)
		assert.True(t, p.z >= -25 && p.z <= 25)
		assert.True(t, p.length >= 1 && p.length <= 6)
	}
}

func TestAvatarDriftWraps(t *testing.T) {
	a := NewAvatar(1)
	a.lines[0].z = 29.95
	a.lines[1].z = 0

	a.Drift()
	assert.Equal(t, lineRestart, a.lines[0].z)
	assert.InDelta(t, 0.1, a.lines[1].z, 1e-9)
	core, inner, outer := a.Rotation()
	assert.InDelta(t, baseSpin, core, 1e-9)
	assert.InDelta(t, -baseSpin, inner, 1e-9)
	assert.Zero(t, outer)
}

func TestAvatarCues(t *testing.T) {
	a := NewAvatar(1)
	a.SetGlow(8, domain.GlowSteady)
	a.ApplyDecorativeRotation(domain.RotationDelta{Core: 0.06, Inner: -1, Outer: -1})
	a.SetColor(domain.ColorAccent)

	glow, mode := a.Glow()
	assert.Equal(t, 8.0, glow)
	assert.Equal(t, domain.GlowSteady, mode)
	core, inner, outer := a.Rotation()
	assert.InDelta(t, 0.06, core, 1e-9)
	assert.InDelta(t, -1, inner, 1e-9)
	assert.InDelta(t, -1, outer, 1e-9)
}

func TestAvatarBrightness(t *testing.T) {
	a := NewAvatar(1)
	assert.Equal(t, 1.0, a.Brightness())

	a.SetBrightness(0.35)
	assert.Equal(t, 0.35, a.Brightness())
	a.SetBrightness(1.7)
	assert.Equal(t, 1.0, a.Brightness())
	a.SetBrightness(-0.2)
	assert.Zero(t, a.Brightness())
}

func TestAvatarRenderSize(t *testing.T) {
	a := NewAvatar(9)
	out := a.Render(60, 24)
	assert.Equal(t, 24, lipgloss.Height(out))
	assert.Equal(t, 60, lipgloss.Width(out))
	assert.NotEmpty(t, a.Title())

	assert.Empty(t, a.Render(2, 2))
}
