package gateway

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"jarvis-hud/internal/domain"
)

// StatusResponse is the JSON body returned by GET /api/v1/status.
type StatusResponse struct {
	Relay   RelayStatus   `json:"relay"`
	Clients ClientStatus  `json:"clients"`
	Events  EventStatus   `json:"events"`
	History HistoryStatus `json:"history"`
}

// RelayStatus holds relay overview info.
type RelayStatus struct {
	Name          string `json:"name"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ClientStatus holds WebSocket client counts.
type ClientStatus struct {
	Connected int64 `json:"connected"`
	Total     int64 `json:"total"`
}

// EventStatus holds ingestion counters.
type EventStatus struct {
	User          int64 `json:"user"`
	Assistant     int64 `json:"assistant"`
	Rejected      int64 `json:"rejected"`
	DroppedFrames int64 `json:"dropped_frames"`
}

// HistoryStatus holds history store info.
type HistoryStatus struct {
	Enabled       bool       `json:"enabled"`
	Stored        int64      `json:"stored"`
	Pruned        int64      `json:"pruned"`
	NextRetention *time.Time `json:"next_retention,omitempty"`
}

// Metrics tracks counters for the status API and Prometheus metrics.
type Metrics struct {
	started        time.Time
	UserEvents     atomic.Int64
	AssistantEvent atomic.Int64
	ClientsTotal   atomic.Int64
	HistoryPruned  atomic.Int64
}

func newMetrics(started time.Time) *Metrics {
	return &Metrics{started: started}
}

func (m *Metrics) subscribe(bus domain.EventBus) {
	bus.Subscribe(domain.EventPromptResponse, func(_ context.Context, e domain.Event) {
		ev, err := e.Conversation()
		if err != nil {
			return
		}
		switch ev.Role {
		case domain.RoleUser:
			m.UserEvents.Add(1)
		case domain.RoleAssistant:
			m.AssistantEvent.Add(1)
		}
	})
	bus.Subscribe(domain.EventClientConnected, func(context.Context, domain.Event) {
		m.ClientsTotal.Add(1)
	})
	bus.Subscribe(domain.EventHistoryPruned, func(context.Context, domain.Event) {
		m.HistoryPruned.Add(1)
	})
}

// Uptime returns the time since the metrics were created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.started)
}

func buildStatus(ctx context.Context, s *Server, deps HandlerDeps, m *Metrics) StatusResponse {
	resp := StatusResponse{
		Relay: RelayStatus{Name: "jarvis-relay", UptimeSeconds: int64(m.Uptime().Seconds())},
		Clients: ClientStatus{
			Connected: s.ClientCount(),
			Total:     m.ClientsTotal.Load(),
		},
		Events: EventStatus{
			User:          m.UserEvents.Load(),
			Assistant:     m.AssistantEvent.Load(),
			DroppedFrames: s.DroppedFrames(),
		},
		History: HistoryStatus{
			Enabled: deps.History != nil,
			Pruned:  m.HistoryPruned.Load(),
		},
	}
	if deps.Ingest != nil {
		resp.Events.Rejected = deps.Ingest.Rejected()
	}
	if deps.History != nil {
		if n, err := deps.History.Count(ctx); err == nil {
			resp.History.Stored = n
		} else if deps.Logger != nil {
			deps.Logger.Warn("status: history count failed", "error", err)
		}
	}
	if deps.NextRetention != nil {
		if next, ok := deps.NextRetention(); ok {
			resp.History.NextRetention = &next
		}
	}
	return resp
}

// statusHandler returns an HTTP handler for GET /api/v1/status.
func statusHandler(s *Server, deps HandlerDeps, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, buildStatus(r.Context(), s, deps, m))
	}
}
