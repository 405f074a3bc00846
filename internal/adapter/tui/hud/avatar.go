package hud

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"jarvis-hud/internal/adapter/tui/theme"
	"jarvis-hud/internal/domain"
)

// Scene constants in world units. The camera sits at z=30 looking down -z.
const (
	cameraZ      = 30.0
	lineCount    = 100
	lineSpread   = 50.0
	lineDrift    = 0.1
	lineWrapAt   = 30.0
	lineRestart  = -50.0
	baseSpin     = 0.003
	sceneExtent  = 13.5 // outer ring radius plus its tube
	sphereRadius = 5.0
)

// ring is one of the three tori around the sphere.
type ring struct {
	radius float64
	marks  int // rotating markers drawn on the ring
	angle  float64
}

type particle struct {
	x, y, z float64
	length  float64
}

// Avatar is the decorative centrepiece: a wireframe sphere inside three
// rings, with particle lines streaming towards the viewer. It implements
// domain.CueSink; the session drives its glow and extra rotation and the
// HUD calls Drift once per frame for the base motion.
type Avatar struct {
	glow       float64
	mode       domain.GlowMode
	brightness float64
	color      domain.ColorToken

	core  float64 // sphere spin
	outer ring    // 12.36, follows RotationDelta.Outer
	mid   ring    // 10, static
	inner ring    // 8, follows RotationDelta.Inner and the base spin

	lines []particle
}

// NewAvatar creates an avatar whose particle field is generated from seed.
func NewAvatar(seed uint64) *Avatar {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	a := &Avatar{
		glow:       3,
		brightness: 1,
		color:      domain.ColorAccent,
		outer: ring{radius: 12.36, marks: 6},
		mid:   ring{radius: 10, marks: 4},
		inner: ring{radius: 8, marks: 3},
		lines: make([]particle, lineCount),
	}
	for i := range a.lines {
		a.lines[i] = particle{
			x:      (rng.Float64() - 0.5) * lineSpread,
			y:      (rng.Float64() - 0.5) * lineSpread,
			z:      (rng.Float64() - 0.5) * lineSpread,
			length: rng.Float64()*5 + 1,
		}
	}
	return a
}

// SetGlow implements domain.CueSink.
func (a *Avatar) SetGlow(intensity float64, mode domain.GlowMode) {
	a.glow = intensity
	a.mode = mode
}

// ApplyDecorativeRotation implements domain.CueSink.
func (a *Avatar) ApplyDecorativeRotation(d domain.RotationDelta) {
	a.core += d.Core
	a.inner.angle += d.Inner
	a.outer.angle += d.Outer
}

// SetColor implements domain.CueSink.
func (a *Avatar) SetColor(tok domain.ColorToken) { a.color = tok }

// Drift applies one frame of base motion: the sphere and inner ring spin
// slowly and every particle line moves towards the viewer, wrapping back
// behind the scene once it passes the camera plane.
func (a *Avatar) Drift() {
	a.core += baseSpin
	a.inner.angle -= baseSpin
	for i := range a.lines {
		p := &a.lines[i]
		p.z += lineDrift
		if p.z > lineWrapAt {
			p.z = lineRestart
		}
	}
}

// Glow returns the current intensity and mode.
func (a *Avatar) Glow() (float64, domain.GlowMode) { return a.glow, a.mode }

// Rotation returns the sphere, inner ring and outer ring angles.
func (a *Avatar) Rotation() (core, inner, outer float64) {
	return a.core, a.inner.angle, a.outer.angle
}

// SetBrightness sets the glow multiplier for the current frame, clamped to [0, 1].
func (a *Avatar) SetBrightness(b float64) { a.brightness = math.Max(0, math.Min(1, b)) }

// Brightness returns the glow multiplier of the current frame.
func (a *Avatar) Brightness() float64 { return a.brightness }

// Canvas cell kinds, in drawing priority order.
const (
	kindEmpty = iota
	kindParticle
	kindOutline
	kindGlow
)

type cell struct {
	r     rune
	kind  int
	level int // GlowRamp index for kindGlow
}

// Render draws the avatar into a w×h character block.
func (a *Avatar) Render(w, h int) string {
	if w < 4 || h < 3 {
		return ""
	}
	grid := make([][]cell, h)
	for y := range grid {
		grid[y] = make([]cell, w)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' ', kind: kindEmpty}
		}
	}

	// Terminal cells are about twice as tall as they are wide.
	sy := float64(h-1) / 2 / sceneExtent
	sx := sy * 2
	if fit := float64(w-1) / 2 / sceneExtent; sx > fit {
		sx = fit
		sy = fit / 2
	}
	cx, cy := float64(w-1)/2, float64(h-1)/2
	plot := func(x, y float64, c cell) {
		col := int(math.Round(cx + x*sx))
		row := int(math.Round(cy - y*sy))
		if row < 0 || row >= h || col < 0 || col >= w {
			return
		}
		old := grid[row][col]
		if c.kind < old.kind || (c.kind == old.kind && c.level < old.level) {
			return
		}
		grid[row][col] = c
	}

	sym := theme.Symbols
	lvl := theme.GlowLevel(a.glow, a.brightness)

	for _, p := range a.lines {
		depth := cameraZ - p.z
		if depth < 1 {
			continue
		}
		f := cameraZ / depth
		r := sym.Particle
		if f > 1.5 {
			r = sym.ParticleNear
		}
		plot(p.x*f*0.5, p.y*f*0.5, cell{r: r, kind: kindParticle})
	}

	for _, rg := range []ring{a.outer, a.mid, a.inner} {
		steps := int(2 * math.Pi * rg.radius * sx)
		for i := 0; i < steps; i++ {
			t := 2 * math.Pi * float64(i) / float64(steps)
			plot(rg.radius*math.Cos(t), rg.radius*math.Sin(t), cell{r: sym.Ring, kind: kindOutline})
		}
		for i := 0; i < rg.marks; i++ {
			t := rg.angle + 2*math.Pi*float64(i)/float64(rg.marks)
			plot(rg.radius*math.Cos(t), rg.radius*math.Sin(t), cell{r: sym.RingMark, kind: kindGlow, level: lvl})
		}
	}

	// Sphere: meridians turn with the core angle, parallels stay put.
	for m := 0; m < 8; m++ {
		lon := a.core + float64(m)*math.Pi/4
		front := math.Cos(lon)
		if front < 0 {
			continue
		}
		r := sym.Sphere
		if front > 0.9 {
			r = sym.SphereBright
		}
		for lat := -80.0; lat <= 80; lat += 10 {
			phi := lat * math.Pi / 180
			plot(sphereRadius*math.Cos(phi)*math.Sin(lon), sphereRadius*math.Sin(phi), cell{r: r, kind: kindGlow, level: lvl})
		}
	}
	for _, lat := range []float64{-45, 0, 45} {
		phi := lat * math.Pi / 180
		rr := sphereRadius * math.Cos(phi)
		for t := 0.0; t < 2*math.Pi; t += 0.15 {
			plot(rr*math.Cos(t), sphereRadius*math.Sin(phi)+rr*math.Sin(t)*0.15, cell{r: sym.Sphere, kind: kindGlow, level: max(lvl-1, 0)})
		}
	}

	particleStyle := theme.GlowStyle(2)
	outlineStyle := lipgloss.NewStyle().Foreground(theme.TokenColor(a.color)).Faint(true)
	var b strings.Builder
	for y, row := range grid {
		for _, c := range row {
			switch c.kind {
			case kindEmpty:
				b.WriteRune(' ')
			case kindParticle:
				b.WriteString(particleStyle.Render(string(c.r)))
			case kindOutline:
				b.WriteString(outlineStyle.Render(string(c.r)))
			default:
				b.WriteString(theme.GlowStyle(c.level).Render(string(c.r)))
			}
		}
		if y < h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Title renders the avatar's name with the current glow.
func (a *Avatar) Title() string {
	return theme.GlowStyle(theme.GlowLevel(a.glow, a.brightness)).
		Bold(true).
		Render("J . A . R . V . I . S")
}
