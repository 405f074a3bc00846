package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"jarvis-hud/internal/domain"
)

// Recorder appends every relayed conversation event to a store and prunes
// old records when asked.
type Recorder struct {
	store   domain.HistoryStore
	bus     domain.EventBus
	maxAge  time.Duration
	logger  *slog.Logger
	now     func() time.Time
	dropped atomic.Int64
}

// NewRecorder creates a recorder. A zero maxAge disables pruning.
func NewRecorder(store domain.HistoryStore, bus domain.EventBus, maxAge time.Duration, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		bus:    bus,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Attach subscribes the recorder to prompt_response events.
// The returned function detaches it.
func (r *Recorder) Attach() func() {
	return r.bus.Subscribe(domain.EventPromptResponse, r.record)
}

func (r *Recorder) record(ctx context.Context, e domain.Event) {
	ev, err := e.Conversation()
	if err != nil {
		r.dropped.Add(1)
		r.logger.Warn("history: skipping malformed event", "id", e.ID, "error", err)
		return
	}
	rec := domain.HistoryRecord{ID: e.ID, Event: ev, ReceivedAt: e.Timestamp}
	// The request that published the event may already be gone.
	if err := r.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		r.dropped.Add(1)
		r.logger.Error("history: append failed", "id", e.ID, "error", err)
	}
}

// Dropped returns how many events could not be recorded.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Prune deletes records older than the configured age and announces the
// removal on the bus. It is registered as the history_retention job.
func (r *Recorder) Prune(ctx context.Context) error {
	if r.maxAge <= 0 {
		return nil
	}
	cutoff := r.now().Add(-r.maxAge)
	n, err := r.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	r.logger.Info("history pruned", "removed", n, "cutoff", cutoff)

	payload, _ := json.Marshal(map[string]any{"removed": n, "cutoff": cutoff})
	r.bus.Publish(ctx, domain.Event{
		ID:        ulid.Make().String(),
		Type:      domain.EventHistoryPruned,
		Timestamp: r.now(),
		Payload:   payload,
	})
	return nil
}
