package presentation

import (
	"sort"
	"strings"
	"time"

	"jarvis-hud/internal/domain"
)

// fakeSurface records appended units; a break is stored as '\n'.
type fakeSurface struct {
	buf     strings.Builder
	units   []string
	visible int
	scrolls int
}

func (f *fakeSurface) AppendText(s string) {
	f.buf.WriteString(s)
	f.units = append(f.units, s)
}

func (f *fakeSurface) AppendBreak() {
	f.buf.WriteByte('\n')
	f.units = append(f.units, "<br>")
}

func (f *fakeSurface) ScrollToBottom() { f.scrolls++ }

func (f *fakeSurface) ContentHeight() int { return strings.Count(f.buf.String(), "\n") + 1 }

func (f *fakeSurface) VisibleHeight() int {
	if f.visible == 0 {
		return 1000
	}
	return f.visible
}

func (f *fakeSurface) String() string { return f.buf.String() }

type glowCall struct {
	intensity float64
	mode      domain.GlowMode
}

type fakeCues struct {
	glows     []glowCall
	rotations []domain.RotationDelta
	colors    []domain.ColorToken
}

func (f *fakeCues) SetGlow(intensity float64, mode domain.GlowMode) {
	f.glows = append(f.glows, glowCall{intensity, mode})
}

func (f *fakeCues) ApplyDecorativeRotation(d domain.RotationDelta) {
	f.rotations = append(f.rotations, d)
}

func (f *fakeCues) SetColor(token domain.ColorToken) { f.colors = append(f.colors, token) }

// clock drives reveal steps on virtual time, in due order, ties in
// scheduling order.
type clock struct {
	now     time.Duration
	seq     int
	pending []pendingStep
}

type pendingStep struct {
	due time.Duration
	seq int
	id  TaskID
}

func (c *clock) schedule(s Schedule) {
	if !s.Pending() {
		return
	}
	c.seq++
	c.pending = append(c.pending, pendingStep{due: c.now + s.After, seq: c.seq, id: s.Task})
}

// next pops the earliest step. ok is false when nothing is pending.
func (c *clock) next() (TaskID, bool) {
	if len(c.pending) == 0 {
		return 0, false
	}
	sort.Slice(c.pending, func(i, j int) bool {
		if c.pending[i].due != c.pending[j].due {
			return c.pending[i].due < c.pending[j].due
		}
		return c.pending[i].seq < c.pending[j].seq
	})
	p := c.pending[0]
	c.pending = c.pending[1:]
	c.now = p.due
	return p.id, true
}

// runSession steps every pending reveal to completion.
func (c *clock) runSession(s *Session) {
	for {
		id, ok := c.next()
		if !ok {
			return
		}
		c.schedule(s.Step(id))
	}
}
