package presentation

import (
	"fmt"
	"time"

	"jarvis-hud/internal/domain"
)

// DefaultCadence is the delay between two revealed units.
const DefaultCadence = 30 * time.Millisecond

// RevealMode decides what happens when a reveal starts while another is in flight.
type RevealMode string

const (
	// ModeInterleave steps every task on its own timer; overlapping reveals
	// mix at the character level on the shared surface.
	ModeInterleave RevealMode = "interleave"
	// ModeSerial queues tasks and reveals them one after another.
	ModeSerial RevealMode = "serial"
)

// ParseRevealMode converts a config string into a RevealMode. Empty means interleave.
func ParseRevealMode(s string) (RevealMode, error) {
	switch RevealMode(s) {
	case "", ModeInterleave:
		return ModeInterleave, nil
	case ModeSerial:
		return ModeSerial, nil
	default:
		return "", fmt.Errorf("%w: reveal mode %q", domain.ErrInvalidInput, s)
	}
}

var labels = map[domain.Role]string{
	domain.RoleUser:      "You: ",
	domain.RoleAssistant: "JARVIS: ",
}

// Label returns the transcript prefix for role.
func Label(role domain.Role) (string, error) {
	l, ok := labels[role]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	return l, nil
}

// TaskID identifies a reveal task within one Engine.
type TaskID uint64

// Schedule tells the driver which task to step next and after how long.
// The zero Schedule means nothing needs to be scheduled.
type Schedule struct {
	Task  TaskID
	After time.Duration
}

// Pending reports whether the driver has to schedule a step.
func (s Schedule) Pending() bool { return s.Task != 0 }

// RevealTask is one in-progress disclosure of a labelled message.
type RevealTask struct {
	ID   TaskID
	Role domain.Role

	units   []rune
	pos     int
	signals bool // completion raises the session's finished flag
}

func newRevealTask(id TaskID, content string, role domain.Role) (*RevealTask, error) {
	label, err := Label(role)
	if err != nil {
		return nil, err
	}
	return &RevealTask{
		ID:      id,
		Role:    role,
		units:   []rune(label + content + "\n"),
		signals: role == domain.RoleAssistant && content != "",
	}, nil
}

// Done reports whether every unit has been appended.
func (t *RevealTask) Done() bool { return t.pos >= len(t.units) }

// Remaining returns the number of units not yet revealed.
func (t *RevealTask) Remaining() int { return len(t.units) - t.pos }

// Revealed returns the text disclosed so far.
func (t *RevealTask) Revealed() string { return string(t.units[:t.pos]) }

// Signals reports whether finishing this task raises the completion flag.
func (t *RevealTask) Signals() bool { return t.signals }

// step appends the next unit to s and scrolls when the content overflows.
func (t *RevealTask) step(s domain.Surface) {
	if t.Done() {
		return
	}
	r := t.units[t.pos]
	t.pos++
	if r == '\n' {
		s.AppendBreak()
	} else {
		s.AppendText(string(r))
	}
	if s.ContentHeight() > s.VisibleHeight() {
		s.ScrollToBottom()
	}
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Cadence time.Duration
	Mode    RevealMode
}

// Engine paces reveal tasks onto a single surface. It never blocks: each Step
// appends one unit and returns the Schedule for the next one, which the
// driver honours with its own timer.
type Engine struct {
	surface domain.Surface
	cadence time.Duration
	mode    RevealMode

	tasks  map[TaskID]*RevealTask
	queue  []TaskID // serial mode only; head is the active task
	nextID TaskID

	onComplete func(t *RevealTask)
}

// NewEngine creates an engine writing to surface.
func NewEngine(surface domain.Surface, cfg EngineConfig) *Engine {
	cadence := cfg.Cadence
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeInterleave
	}
	return &Engine{
		surface: surface,
		cadence: cadence,
		mode:    mode,
		tasks:   make(map[TaskID]*RevealTask),
	}
}

// OnComplete registers fn to run after a task's final unit is appended.
func (e *Engine) OnComplete(fn func(t *RevealTask)) { e.onComplete = fn }

// Cadence returns the delay between units.
func (e *Engine) Cadence() time.Duration { return e.cadence }

// Mode returns the engine's reveal mode.
func (e *Engine) Mode() RevealMode { return e.mode }

// Start registers a reveal of content prefixed by role's label. When the task
// may run now, its first unit is appended immediately, as the source did.
func (e *Engine) Start(content string, role domain.Role) (Schedule, error) {
	e.nextID++
	t, err := newRevealTask(e.nextID, content, role)
	if err != nil {
		return Schedule{}, err
	}
	e.tasks[t.ID] = t

	if e.mode == ModeSerial {
		e.queue = append(e.queue, t.ID)
		if len(e.queue) > 1 {
			return Schedule{}, nil
		}
	}
	return e.Step(t.ID), nil
}

// Step appends one unit of task id. Unknown or finished ids are ignored.
func (e *Engine) Step(id TaskID) Schedule {
	t, ok := e.tasks[id]
	if !ok {
		return Schedule{}
	}
	t.step(e.surface)
	if !t.Done() {
		return Schedule{Task: id, After: e.cadence}
	}
	return e.finish(t)
}

func (e *Engine) finish(t *RevealTask) Schedule {
	delete(e.tasks, t.ID)

	var next Schedule
	if e.mode == ModeSerial && len(e.queue) > 0 && e.queue[0] == t.ID {
		e.queue = e.queue[1:]
		if len(e.queue) > 0 {
			next = Schedule{Task: e.queue[0], After: e.cadence}
		}
	}

	if e.onComplete != nil {
		e.onComplete(t)
	}
	return next
}

// Task returns the in-flight task with the given id.
func (e *Engine) Task(id TaskID) (*RevealTask, bool) {
	t, ok := e.tasks[id]
	return t, ok
}

// InFlight returns the number of started or queued tasks.
func (e *Engine) InFlight() int { return len(e.tasks) }

// InFlightFor counts in-flight tasks for role.
func (e *Engine) InFlightFor(role domain.Role) int {
	n := 0
	for _, t := range e.tasks {
		if t.Role == role {
			n++
		}
	}
	return n
}
