package hud

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"jarvis-hud/internal/domain"
)

// Display runs the HUD as a Bubble Tea program and bridges other goroutines
// into its update loop.
type Display struct {
	logger  *slog.Logger
	program *tea.Program
}

// NewDisplay creates the program. It does not touch the terminal until Start.
// Extra program options are appended after the HUD's own (alt screen, mouse).
func NewDisplay(opts Options, logger *slog.Logger, extra ...tea.ProgramOption) *Display {
	if opts.Logger == nil {
		opts.Logger = logger
	}
	popts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}, extra...)
	return &Display{
		logger:  logger,
		program: tea.NewProgram(NewModel(opts), popts...),
	}
}

// Start blocks until the program exits or ctx is cancelled.
func (d *Display) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		d.program.Send(QuitMsg{})
	}()

	_, err := d.program.Run()
	if err != nil {
		d.logger.Error("hud: program exited", "error", err)
	}
	return err
}

// Deliver pushes a conversation event into the update loop. Events are
// handled in the order Deliver is called. It blocks until the program
// accepts the message and is a no-op once the program has exited.
func (d *Display) Deliver(ev domain.ConversationEvent) {
	d.program.Send(ConversationMsg{Event: ev})
}

// SetStatus reports a relay connection change.
func (d *Display) SetStatus(status string, err error) {
	d.program.Send(StatusMsg{Status: status, Err: err})
}

// Stop signals the program to quit.
func (d *Display) Stop(_ context.Context) error {
	d.program.Send(QuitMsg{})
	return nil
}
