package hud

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.dalton.dog/bubbleup"

	"jarvis-hud/internal/adapter/tui/components"
	"jarvis-hud/internal/adapter/tui/theme"
	"jarvis-hud/internal/adapter/tui/uxerror"
	"jarvis-hud/internal/domain"
	"jarvis-hud/internal/usecase/presentation"
)

// Defaults for Options.
const (
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultBootDelay     = 3 * time.Second
)

const (
	alertWidth   = 36
	alertSeconds = 3
)

// Options configures the HUD model.
type Options struct {
	Reveal        presentation.EngineConfig
	FrameInterval time.Duration
	BootDelay     time.Duration
	// Seed fixes the particle field and power reading; 0 picks one at random.
	Seed   uint64
	Now    func() time.Time
	Logger *slog.Logger
}

// Model is the root Bubble Tea model. Every message, relayed events and
// reveal steps included, is handled on Bubble Tea's update goroutine, so the
// presentation session needs no locking.
type Model struct {
	opts   Options
	logger *slog.Logger

	session    *presentation.Session
	transcript *components.Transcript
	avatar     *Avatar
	clock      Clock
	statusBar  components.StatusBarModel
	spinner    spinner.Model
	alert      bubbleup.AlertModel

	booting  bool
	quitting bool
	width    int
	height   int
	avatarW  int
	bodyH    int
	frames   uint64
	rejected int
}

// NewModel creates the HUD model in the boot splash.
func NewModel(opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed>>1))

	transcript := components.NewTranscript(40, 10)
	userLabel, _ := presentation.Label(domain.RoleUser)
	assistantLabel, _ := presentation.Label(domain.RoleAssistant)
	transcript.SetLabelStyle(userLabel, theme.UserLabel)
	transcript.SetLabelStyle(assistantLabel, theme.AssistantLabel)

	avatar := NewAvatar(opts.Seed)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorAccent)

	alert := bubbleup.NewAlertModel(alertWidth, false, alertSeconds)

	sb := components.NewStatusBar()
	sb.Hints = defaultHints()
	sb.Connection = "disconnected"
	sb.State = domain.StateIdle.String()

	return Model{
		opts:       opts,
		logger:     opts.Logger,
		session:    presentation.NewSession(transcript, avatar, presentation.Config{Engine: opts.Reveal}, opts.Logger),
		transcript: transcript,
		avatar:     avatar,
		clock:      NewClock(opts.Now(), rng),
		statusBar:  sb,
		spinner:    s,
		alert:      *alert,
		booting:    true,
	}
}

func defaultHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "q", Desc: "quit"},
		{Key: "pgup/pgdn", Desc: "scroll"},
	}
}

// Init starts the frame, clock and boot timers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		frameCmd(m.opts.FrameInterval),
		clockCmd(m.opts.Now()),
		bootCmd(m.opts.BootDelay),
		m.alert.Init(),
	)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m, m.transcript.Update(msg)

	case ConversationMsg:
		return m.handleConversation(msg.Event)

	case RevealStepMsg:
		return m, revealCmd(m.session.Step(msg.Task))

	case FrameMsg:
		m.avatar.Drift()
		cues := m.session.Tick(msg.Time)
		m.avatar.SetBrightness(cues.Brightness)
		m.statusBar.State = cues.State.String()
		m.frames++
		return m, frameCmd(m.opts.FrameInterval)

	case ClockMsg:
		m.clock.Set(msg.Time)
		return m, clockCmd(msg.Time)

	case BootDoneMsg:
		m.booting = false
		return m, nil

	case StatusMsg:
		return m.handleStatus(msg)

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.booting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Alert lifecycle messages.
	out, cmd := m.alert.Update(msg)
	m.alert = out.(bubbleup.AlertModel)
	return m, cmd
}

// handleStatus updates the status bar and flashes an alert when the
// connection is lost or comes back. Repeated failures with the same cause
// only update the status bar.
func (m Model) handleStatus(msg StatusMsg) (tea.Model, tea.Cmd) {
	wasConnected := m.statusBar.Connection == "connected"
	m.statusBar.Connection = msg.Status

	switch {
	case msg.Err != nil:
		fe := uxerror.Humanize(msg.Err)
		short := fe.Short()
		if short == m.statusBar.Extra {
			return m, nil
		}
		m.statusBar.Extra = short
		return m, m.alert.NewAlertCmd(bubbleup.ErrorKey, fe.Title)
	case msg.Status == "connected":
		recovered := m.statusBar.Extra != ""
		m.statusBar.Extra = ""
		if recovered && !wasConnected {
			return m, m.alert.NewAlertCmd(bubbleup.InfoKey, "Relay connected")
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, m.transcript.Update(msg)
}

// handleConversation starts revealing ev. Unknown roles were already
// dropped by the event source; anything that still fails validation is
// logged and shown on the status line without touching the transcript.
func (m Model) handleConversation(ev domain.ConversationEvent) (tea.Model, tea.Cmd) {
	sched, err := m.session.HandleEvent(ev)
	if err != nil {
		m.rejected++
		m.logger.Warn("hud: rejected conversation event", "role", string(ev.Role), "error", err)
		m.statusBar.Extra = uxerror.Humanize(err).Short()
		return m, nil
	}
	m.statusBar.State = m.session.State().String()
	return m, revealCmd(sched)
}

func (m *Model) layout() {
	statusH := 1
	m.bodyH = max(m.height-statusH, 6)
	m.statusBar.SetWidth(m.width)

	sideW := m.width
	m.avatarW = 0
	if m.width >= theme.MinSideWidth {
		m.avatarW = m.width * 3 / 5
		sideW = m.width - m.avatarW
	}

	// Clock panel: three lines plus border; transcript panel: border only.
	clockH := 3 + 2
	m.transcript.SetSize(sideW-2, m.bodyH-clockH-2)
}

// View renders the HUD.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "  Initializing..."
	}
	if m.booting {
		return m.splashView()
	}

	sideW := m.width - m.avatarW

	clockPanel := theme.Panel.Width(sideW - 2).Render(m.clock.View(sideW - 2))
	transcriptPanel := theme.PanelActive.Render(m.transcript.View())
	side := lipgloss.JoinVertical(lipgloss.Left, clockPanel, transcriptPanel)

	body := side
	if m.avatarW > 0 {
		avatar := lipgloss.JoinVertical(lipgloss.Center,
			m.avatar.Render(m.avatarW, m.bodyH-1),
			m.avatar.Title(),
		)
		avatar = lipgloss.NewStyle().Width(m.avatarW).Align(lipgloss.Center).Render(avatar)
		body = lipgloss.JoinHorizontal(lipgloss.Top, avatar, side)
	}

	return m.alert.Render(lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar.View()))
}

func (m Model) splashView() string {
	splash := lipgloss.JoinVertical(lipgloss.Center,
		theme.SplashTitle.Render("J . A . R . V . I . S"),
		m.spinner.View()+" "+theme.SplashText.Render("initializing systems"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, splash)
}

// State returns the presentation state.
func (m Model) State() domain.VisualState { return m.session.State() }

// Session exposes the presentation session.
func (m Model) Session() *presentation.Session { return m.session }

// Transcript exposes the transcript surface.
func (m Model) Transcript() *components.Transcript { return m.transcript }

// Avatar exposes the avatar.
func (m Model) Avatar() *Avatar { return m.avatar }

// Clock returns the clock panel.
func (m Model) Clock() Clock { return m.clock }

// StatusBar returns the status bar.
func (m Model) StatusBar() components.StatusBarModel { return m.statusBar }

// Booting reports whether the boot splash is still showing.
func (m Model) Booting() bool { return m.booting }

// Frames counts frame ticks handled.
func (m Model) Frames() uint64 { return m.frames }

// Rejected counts conversation events the session refused.
func (m Model) Rejected() int { return m.rejected }
