package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jarvis-hud/internal/adapter/eventsource"
	"jarvis-hud/internal/adapter/tui/hud"
	"jarvis-hud/internal/infra/config"
	"jarvis-hud/internal/infra/logger"
	"jarvis-hud/internal/usecase/presentation"
)

// hudOptions maps config onto the display and event source settings.
func hudOptions(cfg *config.Config, log *slog.Logger) (hud.Options, eventsource.Config, error) {
	mode, err := presentation.ParseRevealMode(cfg.HUD.RevealMode)
	if err != nil {
		return hud.Options{}, eventsource.Config{}, err
	}
	opts := hud.Options{
		Reveal: presentation.EngineConfig{
			Cadence: cfg.HUD.RevealCadence,
			Mode:    mode,
		},
		FrameInterval: cfg.HUD.FrameInterval,
		BootDelay:     cfg.HUD.BootDelay,
		Logger:        log,
	}

	src := eventsource.Config{
		URL:          cfg.HUD.ServerURL,
		Token:        cfg.HUD.Token,
		Interval:     cfg.HUD.Reconnect.Interval,
		MaxFailures:  cfg.HUD.Reconnect.MaxFailures,
		BreakerReset: cfg.HUD.Reconnect.BreakerReset,
	}
	if cfg.HUD.Replay {
		src.Replay = cfg.Relay.History.Replay
	}
	return opts, src, nil
}

func runHUD() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, logCloser, err := logger.NewForTerminalUI(cfg.Logger, cfg.HUD.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	opts, srcCfg, err := hudOptions(cfg, log)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	display := hud.NewDisplay(opts, log)
	source := eventsource.New(srcCfg, log)
	source.OnEvent(display.Deliver)
	source.OnStatus(func(s eventsource.Status, err error) {
		display.SetStatus(string(s), err)
	})

	srcCtx, stopSource := context.WithCancel(ctx)
	srcDone := runSource(srcCtx, source, log)

	err = display.Start(ctx)

	// The display is gone; stop the source and let it unwind.
	stopSource()
	select {
	case <-srcDone:
	case <-time.After(5 * time.Second):
		log.Warn("hud: event source did not stop in time")
	}
	log.Info("hud exited", "skipped_events", source.Skipped())
	return err
}

type sourceRunner interface {
	Run(ctx context.Context) error
}

// runSource runs src in the background and closes the returned channel when
// it returns.
func runSource(ctx context.Context, src sourceRunner, log *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := src.Run(ctx); err != nil {
			log.Error("hud: event source stopped", "error", err)
		}
	}()
	return done
}
