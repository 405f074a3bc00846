// Package eventsource connects the HUD to the relay and turns relayed frames
// into conversation events. Connection trouble is reported through status
// callbacks only; the presentation core never sees it.
package eventsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"jarvis-hud/internal/adapter/gateway"
	"jarvis-hud/internal/domain"
)

// Status is the connection state reported to the HUD.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

const (
	maxFrameBytes = 1 << 20
	dialTimeout   = 10 * time.Second
	seenWindow    = 512
)

// Config configures a Client.
type Config struct {
	URL          string        // ws:// or wss:// relay endpoint
	Token        string        // sent as the token query parameter when set
	Replay       int           // events requested from history on connect, 0 disables
	Interval     time.Duration // minimum time between dial attempts
	MaxFailures  uint32        // consecutive dial failures before the breaker opens
	BreakerReset time.Duration // how long the breaker stays open
}

// EventFunc receives conversation events in relay order.
type EventFunc func(domain.ConversationEvent)

// StatusFunc receives connection status changes. err explains a disconnect.
type StatusFunc func(s Status, err error)

// Client is a reconnecting relay subscriber.
type Client struct {
	cfg      Config
	breaker  *gobreaker.CircuitBreaker[*websocket.Conn]
	limiter  *rate.Limiter
	logger   *slog.Logger
	onEvent  EventFunc
	onStatus StatusFunc
	reqID    atomic.Uint64
	seen     *idWindow
	skipped  atomic.Int64
}

// New creates a client. Zero reconnect settings get defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = 30 * time.Second
	}
	maxFailures := cfg.MaxFailures

	c := &Client{
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(cfg.Interval), 1),
		logger:   logger,
		onEvent:  func(domain.ConversationEvent) {},
		onStatus: func(Status, error) {},
		seen:     newIDWindow(max(seenWindow, 2*cfg.Replay)),
	}
	c.breaker = gobreaker.NewCircuitBreaker[*websocket.Conn](gobreaker.Settings{
		Name:        "relay-dial",
		MaxRequests: 1,
		Timeout:     cfg.BreakerReset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// OnEvent sets the event callback. Must be called before Run.
func (c *Client) OnEvent(fn EventFunc) { c.onEvent = fn }

// OnStatus sets the status callback. Must be called before Run.
func (c *Client) OnStatus(fn StatusFunc) { c.onStatus = fn }

// Skipped returns how many relayed events were discarded as malformed or duplicate.
func (c *Client) Skipped() int64 { return c.skipped.Load() }

// Run connects and reconnects until ctx is cancelled. It always returns nil
// once ctx is done; connection errors only surface through OnStatus.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			c.onStatus(StatusDisconnected, nil)
			return nil
		}

		c.onStatus(StatusConnecting, nil)
		conn, err := c.breaker.Execute(func() (*websocket.Conn, error) {
			return c.dial(ctx)
		})
		if err != nil {
			if ctx.Err() != nil {
				c.onStatus(StatusDisconnected, nil)
				return nil
			}
			c.logger.Debug("relay dial failed", "url", c.cfg.URL, "error", err)
			c.onStatus(StatusDisconnected, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err))
			continue
		}

		c.logger.Info("connected to relay", "url", c.cfg.URL)
		c.onStatus(StatusConnected, nil)
		err = c.serve(ctx, conn)
		conn.Close(websocket.StatusNormalClosure, "")

		if ctx.Err() != nil {
			c.onStatus(StatusDisconnected, nil)
			return nil
		}
		c.logger.Info("relay connection lost", "error", err)
		c.onStatus(StatusDisconnected, fmt.Errorf("%w: %w", domain.ErrSourceClosed, err))
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	if c.cfg.Token != "" {
		q := u.Query()
		q.Set("token", c.cfg.Token)
		u.RawQuery = q.Encode()
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxFrameBytes)
	return conn, nil
}

// serve reads frames until the connection fails. When replay is enabled,
// live events that arrive before the history answer are held back so the
// transcript stays in relay order.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	var (
		replayID  uint64
		replaying bool
		pending   []domain.Event
	)
	if c.cfg.Replay > 0 {
		replayID = c.reqID.Add(1)
		payload, _ := json.Marshal(gateway.HistoryListRequest{Limit: c.cfg.Replay})
		req := gateway.Frame{Type: gateway.FrameTypeRequest, ID: replayID, Method: gateway.MethodHistoryList, Payload: payload}
		if err := wsjson.Write(ctx, conn, req); err != nil {
			return fmt.Errorf("request history: %w", err)
		}
		replaying = true
	}

	for {
		var f gateway.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return err
		}

		switch f.Type {
		case gateway.FrameTypeEvent:
			var e domain.Event
			if err := json.Unmarshal(f.Payload, &e); err != nil {
				c.skipped.Add(1)
				c.logger.Warn("relay sent undecodable event", "error", err)
				continue
			}
			if e.Type != domain.EventPromptResponse {
				continue
			}
			if replaying {
				pending = append(pending, e)
				continue
			}
			c.deliverEvent(e)

		case gateway.FrameTypeResponse:
			if !replaying || f.ID != replayID {
				continue
			}
			replaying = false
			c.deliverReplay(f)
			for _, e := range pending {
				c.deliverEvent(e)
			}
			pending = nil
		}
	}
}

func (c *Client) deliverReplay(f gateway.Frame) {
	if f.Error != "" {
		// A relay without history answers with an error; carry on live.
		c.logger.Info("history replay unavailable", "error", f.Error, "code", f.Code)
		return
	}
	var resp gateway.HistoryListResponse
	if err := json.Unmarshal(f.Payload, &resp); err != nil {
		c.logger.Warn("undecodable history replay", "error", err)
		return
	}
	for _, rec := range resp.Events {
		if err := rec.Event.Validate(); err != nil {
			c.skipped.Add(1)
			continue
		}
		c.deliver(rec.ID, rec.Event)
	}
}

func (c *Client) deliverEvent(e domain.Event) {
	ev, err := e.Conversation()
	if err != nil {
		c.skipped.Add(1)
		c.logger.Warn("skipping relayed event", "id", e.ID, "error", err)
		return
	}
	c.deliver(e.ID, ev)
}

// deliver hands ev to the callback unless an event with the same ID was
// delivered recently, which happens when a replay overlaps events already
// shown. IDs are compared for equality only; concurrent publishes reach the
// relay's bus out of ULID order.
func (c *Client) deliver(id string, ev domain.ConversationEvent) {
	if id != "" && !c.seen.add(id) {
		c.skipped.Add(1)
		return
	}
	c.onEvent(ev)
}

// idWindow remembers the last n IDs added.
type idWindow struct {
	ring []string
	next int
	set  map[string]struct{}
}

func newIDWindow(n int) *idWindow {
	return &idWindow{ring: make([]string, n), set: make(map[string]struct{}, n)}
}

// add records id and reports whether it was new.
func (w *idWindow) add(id string) bool {
	if _, ok := w.set[id]; ok {
		return false
	}
	if old := w.ring[w.next]; old != "" {
		delete(w.set, old)
	}
	w.ring[w.next] = id
	w.next = (w.next + 1) % len(w.ring)
	w.set[id] = struct{}{}
	return true
}
