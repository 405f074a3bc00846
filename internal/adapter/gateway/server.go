// Package gateway is the event relay: it accepts conversation events from the
// assistant backend over HTTP and fans them out, in arrival order, to every
// connected HUD over WebSocket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"jarvis-hud/internal/domain"
	"jarvis-hud/internal/infra/middleware"
)

// RPCHandler handles a single RPC method call.
type RPCHandler func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error)

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string // browser origins allowed to open /ws
	ClientQueue    int      // outbound frames buffered per client, default 256
}

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	id        uint64
	info      *ClientInfo
	ws        *websocket.Conn
	sendCh    chan Frame // bounded outbound queue
	done      chan struct{}
	closeOnce sync.Once
}

func (cc *clientConn) close() {
	cc.closeOnce.Do(func() { close(cc.done) })
}

// Server is the relay's HTTP and WebSocket front end.
type Server struct {
	bus        domain.EventBus
	clients    sync.Map // connID (uint64) -> *clientConn
	clientN    atomic.Int64
	dropped    atomic.Int64
	auth       Authenticator
	handlersMu sync.RWMutex
	handlers   map[string]RPCHandler
	logger     *slog.Logger
	opts       Options
	origins    []string
	middleware []func(http.Handler) http.Handler
	httpRoutes []httpRoute

	mu        sync.Mutex
	httpSrv   *http.Server
	boundAddr string
	ready     chan struct{}
	stopOnce  sync.Once
	nextID    atomic.Uint64
	unsubAll  func()
}

type httpRoute struct {
	pattern string
	handler http.Handler
}

// NewServer creates a relay server.
func NewServer(bus domain.EventBus, auth Authenticator, opts Options, logger *slog.Logger) *Server {
	if opts.ClientQueue <= 0 {
		opts.ClientQueue = 256
	}
	return &Server{
		bus:      bus,
		auth:     auth,
		handlers: make(map[string]RPCHandler),
		logger:   logger,
		opts:     opts,
		origins:  originPatterns(opts.AllowedOrigins),
		ready:    make(chan struct{}),
	}
}

// originPatterns turns configured origins into websocket host patterns.
// Loopback hosts are always accepted.
func originPatterns(allowed []string) []string {
	patterns := []string{"localhost", "localhost:*", "127.0.0.1", "127.0.0.1:*", "[::1]", "[::1]:*"}
	for _, o := range allowed {
		if o == "*" {
			patterns = append(patterns, "*")
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

// RegisterHandler adds an RPC handler for the given method name.
// Safe to call concurrently with active connections.
func (s *Server) RegisterHandler(method string, handler RPCHandler) {
	s.handlersMu.Lock()
	s.handlers[method] = handler
	s.handlersMu.Unlock()
}

// RegisterHTTPRoute adds an HTTP handler to the relay's mux.
// Must be called before Start.
func (s *Server) RegisterHTTPRoute(pattern string, handler http.Handler) {
	s.httpRoutes = append(s.httpRoutes, httpRoute{pattern: pattern, handler: handler})
}

// Use wraps every route, /ws included, with mws. The first is outermost.
// Must be called before Start.
func (s *Server) Use(mws ...func(http.Handler) http.Handler) {
	s.middleware = append(s.middleware, mws...)
}

// Start begins accepting connections. Blocks until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	for _, route := range s.httpRoutes {
		mux.Handle(route.pattern, route.handler)
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("relay listen: %w", err)
	}

	srv := &http.Server{
		Handler:           middleware.Chain(mux, s.middleware...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Forward every bus event to connected clients. The bus hands this
	// subscription events one at a time in publish order.
	unsub := s.bus.SubscribeAll(func(_ context.Context, event domain.Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("relay: marshal event", "id", event.ID, "error", err)
			return
		}
		s.Broadcast(Frame{Type: FrameTypeEvent, Payload: payload})
	})

	s.mu.Lock()
	s.httpSrv = srv
	s.boundAddr = listener.Addr().String()
	s.unsubAll = unsub
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("relay started", "addr", s.BoundAddr())

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay serve: %w", err)
	}
	return nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// BoundAddr returns the actual address the server bound to. Only valid after Ready.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// Stop gracefully shuts down the relay. It is idempotent.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		srv, unsub := s.httpSrv, s.unsubAll
		s.mu.Unlock()

		if unsub != nil {
			unsub()
		}

		s.clients.Range(func(key, value any) bool {
			cc := value.(*clientConn)
			cc.close()
			cc.ws.Close(websocket.StatusGoingAway, "relay shutting down")
			s.clients.Delete(key)
			return true
		})

		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err = srv.Shutdown(shutdownCtx)
		}
	})
	return err
}

// Broadcast queues frame for every connected client. A client whose queue is
// full misses the frame.
func (s *Server) Broadcast(frame Frame) {
	s.clients.Range(func(_, value any) bool {
		cc := value.(*clientConn)
		select {
		case cc.sendCh <- frame:
		default:
			s.dropped.Add(1)
			s.logger.Warn("relay: dropped frame for slow client", "conn_id", cc.id, "client", cc.info.Name)
		}
		return true
	})
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int64 { return s.clientN.Load() }

// DroppedFrames returns how many frames were discarded for slow clients.
func (s *Server) DroppedFrames() int64 { return s.dropped.Load() }

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	clientInfo, err := s.auth.Authenticate(tokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	connID := s.nextID.Add(1)
	cc := &clientConn{
		id:     connID,
		info:   clientInfo,
		ws:     ws,
		sendCh: make(chan Frame, s.opts.ClientQueue),
		done:   make(chan struct{}),
	}
	s.clients.Store(connID, cc)
	s.clientN.Add(1)

	s.logger.Info("relay client connected", "conn_id", connID, "client", clientInfo.Name)
	s.publishPresence(r.Context(), domain.EventClientConnected, cc)

	go s.writeLoop(cc)

	s.readLoop(r.Context(), cc)

	cc.close()
	if _, loaded := s.clients.LoadAndDelete(connID); loaded {
		ws.Close(websocket.StatusNormalClosure, "")
	}
	s.clientN.Add(-1)
	s.logger.Info("relay client disconnected", "conn_id", connID)
	s.publishPresence(context.WithoutCancel(r.Context()), domain.EventClientDisconnected, cc)
}

func (s *Server) publishPresence(ctx context.Context, typ domain.EventType, cc *clientConn) {
	payload, _ := json.Marshal(map[string]any{"conn_id": cc.id, "client": cc.info.Name})
	s.bus.Publish(ctx, domain.Event{
		ID:        ulid.Make().String(),
		Type:      typ,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func (s *Server) readLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		default:
		}

		var frame Frame
		if err := wsjson.Read(ctx, cc.ws, &frame); err != nil {
			return
		}
		if frame.Type != FrameTypeRequest {
			continue
		}
		go s.dispatchRPC(ctx, cc, frame)
	}
}

func (s *Server) writeLoop(cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case frame := <-cc.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, cc.ws, frame)
			cancel()
			if err != nil {
				s.logger.Debug("relay: write failed", "conn_id", cc.id, "error", err)
				cc.close()
				cc.ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (s *Server) dispatchRPC(ctx context.Context, cc *clientConn, req Frame) {
	s.handlersMu.RLock()
	handler, ok := s.handlers[req.Method]
	s.handlersMu.RUnlock()
	if !ok {
		s.sendResponse(cc, req.ID, nil, fmt.Errorf("%w: %s", domain.ErrRPCMethodNotFound, req.Method))
		return
	}

	result, err := handler(ctx, cc.info, req.Payload)
	s.sendResponse(cc, req.ID, result, err)
}

func (s *Server) sendResponse(cc *clientConn, id uint64, result json.RawMessage, err error) {
	resp := Frame{Type: FrameTypeResponse, ID: id, Payload: result}
	if err != nil {
		resp.Error = err.Error()
		resp.Code = string(domain.ErrorCodeOf(err))
	}
	select {
	case cc.sendCh <- resp:
	case <-cc.done:
	default:
		s.dropped.Add(1)
		s.logger.Warn("relay: dropped RPC response for slow client", "conn_id", cc.id, "frame_id", id)
	}
}
