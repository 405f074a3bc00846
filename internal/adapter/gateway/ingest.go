package gateway

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"jarvis-hud/internal/domain"
	"jarvis-hud/internal/infra/tracer"
)

// Ingestor validates conversation events from the backend and publishes
// them on the bus. Every publish path (HTTP and RPC) goes through it.
type Ingestor struct {
	bus      domain.EventBus
	logger   *slog.Logger
	now      func() time.Time
	rejected atomic.Int64
}

// NewIngestor creates an ingestor publishing to bus.
func NewIngestor(bus domain.EventBus, logger *slog.Logger) *Ingestor {
	return &Ingestor{bus: bus, logger: logger, now: time.Now}
}

// Publish assigns an ID to ev and publishes it. An unknown role is rejected
// with domain.ErrUnknownRole and nothing is published.
func (in *Ingestor) Publish(ctx context.Context, ev domain.ConversationEvent) (event domain.Event, err error) {
	ctx, span := tracer.StartSpan(ctx, "relay.ingest", tracer.EventAttrs(string(ev.Role), len(ev.Content))...)
	defer func() { tracer.Finish(span, err) }()

	if err := ev.Validate(); err != nil {
		in.rejected.Add(1)
		return domain.Event{}, err
	}

	event, err = domain.NewConversationEvent(ulid.Make().String(), ev, in.now())
	if err != nil {
		return domain.Event{}, err
	}
	span.SetAttributes(attribute.String("event.id", event.ID))

	in.bus.Publish(ctx, event)
	in.logger.Debug("conversation event received", "id", event.ID, "role", ev.Role, "len", len(ev.Content))
	return event, nil
}

// Rejected returns how many events were refused for an unknown role.
func (in *Ingestor) Rejected() int64 {
	return in.rejected.Load()
}
