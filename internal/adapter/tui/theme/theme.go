// Package theme provides the HUD's palette and styles.
//
// NO_COLOR (https://no-color.org/) is respected automatically by lipgloss via
// its color profile detection; when set, all color output is suppressed.
package theme

import (
	"math"

	"github.com/charmbracelet/lipgloss"

	"jarvis-hud/internal/domain"
)

// --- Palette ---

var (
	// ColorAccentHex is the avatar's base colour.
	ColorAccentHex = "#00b3ff"

	ColorAccent = lipgloss.Color(ColorAccentHex)
	ColorBright = lipgloss.Color("#00e5ff")
	ColorDeep   = lipgloss.Color("#004573")

	ColorError = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorOK    = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorMuted = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
	ColorFg    = lipgloss.AdaptiveColor{Light: "#212121", Dark: "#e0e0e0"}
	ColorFgDim = lipgloss.AdaptiveColor{Light: "#9e9e9e", Dark: "#757575"}
	ColorBgAlt = lipgloss.AdaptiveColor{Light: "#f5f5f5", Dark: "#0b1a2a"}
)

// accentTokens maps renderer colour tokens to palette entries.
var accentTokens = map[domain.ColorToken]lipgloss.Color{
	domain.ColorAccent: ColorAccent,
}

// TokenColor resolves a colour token. Unknown tokens fall back to the accent.
func TokenColor(tok domain.ColorToken) lipgloss.Color {
	if c, ok := accentTokens[tok]; ok {
		return c
	}
	return ColorAccent
}

// GlowRamp runs from barely lit to full glow. Index 0 is the darkest.
var GlowRamp = []lipgloss.Color{
	"#002b45",
	"#003a5c",
	"#004573",
	"#00598f",
	"#006fab",
	"#0086c7",
	"#009be0",
	ColorAccent,
	"#33c9ff",
	ColorBright,
}

// MaxGlow is the intensity that maps to the top of GlowRamp.
const MaxGlow = 8.0

// GlowLevel converts an intensity in shadow layers into a GlowRamp index.
// brightness scales the result and is clamped to [0,1].
func GlowLevel(intensity, brightness float64) int {
	brightness = math.Max(0, math.Min(1, brightness))
	top := float64(len(GlowRamp) - 1)
	lvl := int(math.Round(intensity / MaxGlow * top * brightness))
	return Clamp(lvl, 0, len(GlowRamp)-1)
}

// GlowStyle returns the foreground style for a GlowRamp index.
func GlowStyle(level int) lipgloss.Style {
	level = Clamp(level, 0, len(GlowRamp)-1)
	s := lipgloss.NewStyle().Foreground(GlowRamp[level])
	if level >= len(GlowRamp)-2 {
		s = s.Bold(true)
	}
	return s
}

// --- Base styles ---

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextError  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextOK     = lipgloss.NewStyle().Foreground(ColorOK)
	TextAccent = lipgloss.NewStyle().Foreground(ColorAccent)
	TextMuted  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// --- Panels ---

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDeep)

	PanelActive = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent)
)

// --- Transcript labels ---

var (
	UserLabel = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Bold(true)

	AssistantLabel = lipgloss.NewStyle().
			Foreground(ColorBright).
			Bold(true)
)

// --- Clock panel ---

var (
	ClockTime = lipgloss.NewStyle().
			Foreground(ColorBright).
			Bold(true)

	ClockSeconds = lipgloss.NewStyle().
			Foreground(ColorAccent)

	ClockDate = lipgloss.NewStyle().
			Foreground(ColorFg)

	ClockPower = lipgloss.NewStyle().
			Foreground(ColorOK).
			Bold(true)
)

// --- Status bar ---

var (
	StatusBar = lipgloss.NewStyle().
			Foreground(ColorFgDim).
			Background(ColorBgAlt).
			Padding(0, 1)

	StatusKey = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)
)

// --- Boot splash ---

var (
	SplashTitle = lipgloss.NewStyle().
			Foreground(ColorBright).
			Bold(true).
			Padding(0, 0, 1, 0)

	SplashText = lipgloss.NewStyle().
			Foreground(ColorAccent)
)

// MinSideWidth is the narrowest terminal that shows the avatar beside the transcript.
const MinSideWidth = 80

// Clamp returns v clamped to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
