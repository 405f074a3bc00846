package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jarvis-hud/internal/adapter/gateway"
	"jarvis-hud/internal/adapter/history"
	"jarvis-hud/internal/infra/config"
	"jarvis-hud/internal/infra/logger"
	"jarvis-hud/internal/infra/middleware"
	"jarvis-hud/internal/infra/tracer"
	"jarvis-hud/internal/usecase/eventbus"
	"jarvis-hud/internal/usecase/scheduling"
)

const retentionTask = "history_retention"

// RelayComponents holds the relay's running parts.
type RelayComponents struct {
	Bus       *eventbus.Bus
	Server    *gateway.Server
	Metrics   *gateway.Metrics
	History   *history.SQLiteStore // nil when history is disabled
	Recorder  *history.Recorder
	Scheduler *scheduling.Scheduler
}

// initRelay wires bus, server, middleware and history. The returned cleanup
// stops everything in reverse order.
func initRelay(ctx context.Context, cfg *config.Config, log *slog.Logger) (*RelayComponents, func(context.Context) error, error) {
	comp := &RelayComponents{Bus: eventbus.New(log)}

	entries := make([]gateway.TokenEntry, 0, len(cfg.Relay.Auth.Tokens))
	for _, t := range cfg.Relay.Auth.Tokens {
		entries = append(entries, gateway.TokenEntry{Token: t.Token, Name: t.Name})
	}
	if len(entries) == 0 {
		log.Warn("relay: no auth tokens configured, accepting every client")
	}

	comp.Server = gateway.NewServer(comp.Bus, gateway.NewAuthenticator(entries), gateway.Options{
		Addr:           cfg.Relay.Addr,
		AllowedOrigins: cfg.Relay.AllowedOrigins,
		ClientQueue:    cfg.Relay.ClientQueue,
	}, log)

	limiter := middleware.NewRateLimiter(ctx, middleware.RateLimitConfig{RequestsPerMin: cfg.Relay.RateLimit})
	comp.Server.Use(
		middleware.SecurityHeaders,
		middleware.CORS(cfg.Relay.AllowedOrigins),
		limiter.Middleware,
	)

	deps := gateway.HandlerDeps{
		Ingest: gateway.NewIngestor(comp.Bus, log),
		Bus:    comp.Bus,
		Replay: cfg.Relay.History.Replay,
		Logger: log,
	}

	var detach func()
	if cfg.Relay.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.Relay.History.Path)
		if err != nil {
			comp.Bus.Close()
			return nil, nil, fmt.Errorf("history: %w", err)
		}
		comp.History = store
		comp.Recorder = history.NewRecorder(store, comp.Bus, cfg.Relay.History.MaxAge, log)
		detach = comp.Recorder.Attach()

		comp.Scheduler = scheduling.NewScheduler(log)
		comp.Scheduler.RegisterAction(scheduling.ActionHistoryRetention, comp.Recorder.Prune)
		if err := comp.Scheduler.AddTask(scheduling.Task{
			Name:     retentionTask,
			Schedule: cfg.Relay.History.RetentionSchedule,
			Action:   scheduling.ActionHistoryRetention,
		}); err != nil {
			log.Warn("scheduler: failed to add history retention task", "error", err)
		}

		deps.History = store
		deps.NextRetention = func() (time.Time, bool) { return comp.Scheduler.NextRun(retentionTask) }
		log.Info("history enabled", "path", cfg.Relay.History.Path, "max_age", cfg.Relay.History.MaxAge)
	}

	comp.Metrics = gateway.RegisterRESTHandlers(comp.Server, deps)
	gateway.RegisterDefaultHandlers(comp.Server, deps)

	cleanup := func(ctx context.Context) error {
		var errs []error
		if err := comp.Server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("relay stop: %w", err))
		}
		if comp.Scheduler != nil {
			comp.Scheduler.Stop()
		}
		if detach != nil {
			detach()
		}
		comp.Bus.Close()
		if comp.History != nil {
			if err := comp.History.Close(); err != nil {
				errs = append(errs, fmt.Errorf("history close: %w", err))
			}
		}
		return errors.Join(errs...)
	}
	return comp, cleanup, nil
}

func runRelay() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signalContext()
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer, "jarvis-relay")
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	comp, cleanup, err := initRelay(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error("relay cleanup error", "error", err)
		}
	}()

	if comp.Scheduler != nil {
		comp.Scheduler.Start(ctx)
	}

	log.Info("relay starting", "addr", cfg.Relay.Addr)
	return comp.Server.Start(ctx)
}
