package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultMaxLines caps the transcript; the oldest lines are dropped first.
const DefaultMaxLines = 2000

// Transcript is the scrolling conversation log. It is append-only: the
// reveal engine adds one character or line break at a time and asks for a
// scroll when the content outgrows the visible area.
//
// Transcript implements domain.Surface with heights measured in terminal rows
// after wrapping.
type Transcript struct {
	Viewport viewport.Model
	labels   map[string]lipgloss.Style

	lines    []string // raw text; the last entry is the line being written
	rendered []string // wrapped and styled form of lines[:len(lines)-1]
	joined   string   // rendered joined by newlines
	heights  []int    // row count of each rendered entry
	done     int      // sum of heights
	maxLines int
	width    int
}

// NewTranscript creates a transcript with an initial size. The size is
// replaced on the first WindowSizeMsg.
func NewTranscript(w, h int) *Transcript {
	vp := viewport.New(w, h)
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3
	return &Transcript{
		Viewport: vp,
		labels:   make(map[string]lipgloss.Style),
		lines:    []string{""},
		maxLines: DefaultMaxLines,
		width:    w,
	}
}

// SetLabelStyle styles prefix wherever a line starts with it.
func (t *Transcript) SetLabelStyle(prefix string, style lipgloss.Style) {
	t.labels[prefix] = style
	t.rerender()
}

// SetMaxLines sets the ring buffer capacity. Values below 1 are ignored.
func (t *Transcript) SetMaxLines(n int) {
	if n < 1 {
		return
	}
	t.maxLines = n
	t.trim()
	t.rerender()
}

// SetSize sets the viewport dimensions and rewraps the content.
func (t *Transcript) SetSize(w, h int) {
	w = max(w, 1)
	h = max(h, 1)
	t.Viewport.Width = w
	t.Viewport.Height = h
	if w != t.width {
		t.width = w
		t.rerender()
		return
	}
	t.refresh()
}

// AppendText adds s to the line being written.
func (t *Transcript) AppendText(s string) {
	t.lines[len(t.lines)-1] += s
	t.refresh()
}

// AppendBreak finishes the current line.
func (t *Transcript) AppendBreak() {
	last := t.renderLine(t.lines[len(t.lines)-1])
	t.push(last)
	t.lines = append(t.lines, "")
	t.trim()
	t.refresh()
}

// ScrollToBottom shows the newest content.
func (t *Transcript) ScrollToBottom() { t.Viewport.GotoBottom() }

// ContentHeight returns the wrapped row count of the whole transcript. An
// empty line after the last break takes no room.
func (t *Transcript) ContentHeight() int {
	h := t.done
	if last := t.lines[len(t.lines)-1]; last != "" {
		h += lipgloss.Height(t.renderLine(last))
	}
	return h
}

// VisibleHeight returns the number of rows on screen.
func (t *Transcript) VisibleHeight() int { return t.Viewport.Height }

// Text returns the raw transcript, line breaks included.
func (t *Transcript) Text() string { return strings.Join(t.lines, "\n") }

// Lines returns the raw lines; the last one may be partial.
func (t *Transcript) Lines() []string { return append([]string(nil), t.lines...) }

// Update handles viewport scrolling (pgup/pgdown, arrows, mouse wheel).
func (t *Transcript) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.Viewport, cmd = t.Viewport.Update(msg)
	return cmd
}

// View renders the viewport.
func (t *Transcript) View() string { return t.Viewport.View() }

func (t *Transcript) renderLine(line string) string {
	for prefix, style := range t.labels {
		if strings.HasPrefix(line, prefix) {
			line = style.Render(prefix) + line[len(prefix):]
			break
		}
	}
	return lipgloss.NewStyle().Width(t.width).Render(line)
}

func (t *Transcript) trim() {
	extra := len(t.lines) - t.maxLines
	if extra <= 0 {
		return
	}
	extra = min(extra, len(t.rendered))
	cut := 0
	for i, h := range t.heights[:extra] {
		t.done -= h
		cut += len(t.rendered[i]) + 1
	}
	t.joined = t.joined[min(cut, len(t.joined)):]
	t.lines = t.lines[extra:]
	t.rendered = t.rendered[extra:]
	t.heights = t.heights[extra:]
}

func (t *Transcript) rerender() {
	t.rendered = t.rendered[:0]
	t.heights = t.heights[:0]
	t.joined = ""
	t.done = 0
	for _, line := range t.lines[:len(t.lines)-1] {
		t.push(t.renderLine(line))
	}
	t.refresh()
}

// push records a finished, rendered line.
func (t *Transcript) push(r string) {
	if len(t.rendered) > 0 {
		t.joined += "\n"
	}
	t.joined += r
	h := lipgloss.Height(r)
	t.rendered = append(t.rendered, r)
	t.heights = append(t.heights, h)
	t.done += h
}

func (t *Transcript) refresh() { t.Viewport.SetContent(t.content()) }

// content is the finished lines plus the line being written. Only the
// partial line is rendered here.
func (t *Transcript) content() string {
	content := t.joined
	if last := t.lines[len(t.lines)-1]; last != "" || len(t.rendered) == 0 {
		if len(t.rendered) > 0 {
			content += "\n"
		}
		content += t.renderLine(last)
	}
	return content
}

