package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"jarvis-hud/internal/domain"
)

// maxPromptBody bounds POST /prompt_response bodies.
const maxPromptBody = 1 << 20

// HandlerDeps holds dependencies needed by the relay's handlers.
type HandlerDeps struct {
	Ingest  *Ingestor
	Bus     domain.EventBus
	History domain.HistoryStore // can be nil (history disabled)
	Replay  int                 // default history.list limit
	Logger  *slog.Logger
	// NextRetention reports the next history_retention run; can be nil.
	NextRetention func() (time.Time, bool)
}

type apiResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apiResponse{Status: "error", Error: err.Error(), Code: string(domain.ErrorCodeOf(err))})
}

// requireAuth rejects requests whose token the authenticator refuses.
func requireAuth(auth Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.Authenticate(tokenFromRequest(r)); err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RegisterRESTHandlers registers the HTTP routes on the relay and starts
// collecting metrics from the bus.
func RegisterRESTHandlers(s *Server, deps HandlerDeps) *Metrics {
	metrics := newMetrics(time.Now())
	if deps.Bus != nil {
		metrics.subscribe(deps.Bus)
	}

	s.RegisterHTTPRoute("/prompt_response", requireAuth(s.auth, promptResponseHandler(deps)))
	s.RegisterHTTPRoute("/api/v1/status", requireAuth(s.auth, statusHandler(s, deps, metrics)))
	s.RegisterHTTPRoute("/metrics", requireAuth(s.auth, metricsHandler(s, deps, metrics)))
	return metrics
}

// promptResponseHandler accepts {"role", "content"} from the assistant
// backend and echoes it back on success.
func promptResponseHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPromptBody))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
			return
		}
		ev, err := decodePrompt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		if _, err := deps.Ingest.Publish(r.Context(), ev); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: ev})
	}
}

// RegisterDefaultHandlers registers the built-in RPC handlers on the server.
func RegisterDefaultHandlers(s *Server, deps HandlerDeps) {
	s.RegisterHandler(MethodPromptPublish, promptPublishHandler(deps))
	if deps.History != nil {
		s.RegisterHandler(MethodHistoryList, historyListHandler(deps))
	}
}

func promptPublishHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		ev, err := decodePrompt(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRPCInvalidPayload, err)
		}
		event, err := deps.Ingest.Publish(ctx, ev)
		if err != nil {
			return nil, err
		}
		return json.Marshal(PublishResponse{ID: event.ID})
	}
}

func historyListHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req HistoryListRequest
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrRPCInvalidPayload, err)
			}
		}
		limit := req.Limit
		if limit <= 0 {
			limit = deps.Replay
		}
		records, err := deps.History.Recent(ctx, limit)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []domain.HistoryRecord{}
		}
		return json.Marshal(HistoryListResponse{Events: records})
	}
}
