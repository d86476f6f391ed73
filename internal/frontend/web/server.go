// Package web serves the chat over WebSocket, together with health and
// metrics endpoints, on one HTTP listener.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/chatrooms/internal/chat/session"
	"github.com/cory-johannsen/chatrooms/internal/chatserver"
	"github.com/cory-johannsen/chatrooms/internal/config"
)

// ChatService is the set of chat events a WebSocket client raises.
type ChatService interface {
	Connect(connID string) (session.Session, error)
	Disconnect(connID string) error
	SetNickName(connID, name string) error
	RoomMsg(connID, text string) error
	CreateRoom(connID, title, password string) error
	JoinRoom(connID, roomID, password string) error
	QuitRoom(connID string) error
	RequestRoomList(connID string) error
	Stats() chatserver.Stats
}

// Server is the HTTP listener carrying the chat hub, /healthz and, when
// enabled, the Prometheus endpoint.
type Server struct {
	cfg      config.HTTPConfig
	chat     ChatService
	logger   *zap.Logger
	upgrader websocket.Upgrader
	srv      *http.Server

	mu       sync.Mutex
	listener net.Listener
	conns    map[string]*websocket.Conn
	clients  sync.WaitGroup
	stopped  bool
}

// NewServer builds the HTTP server. A nil gatherer, or metrics disabled in
// mcfg, leaves the metrics route unregistered.
//
// Precondition: cfg must be valid; chat and logger must be non-nil.
func NewServer(cfg config.HTTPConfig, mcfg config.MetricsConfig, chat ChatService, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		chat:   chat,
		logger: logger,
		conns:  make(map[string]*websocket.Conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+cfg.HubPath, s.handleHub)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if mcfg.Enabled && gatherer != nil {
		mux.Handle("GET "+mcfg.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.srv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadTimeout,
		IdleTimeout:       cfg.ReadTimeout,
	}
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe binds the listener and serves until Stop is called.
//
// Postcondition: Returns nil after Stop, or the listen/serve error.
func (s *Server) ListenAndServe() error {
	start := time.Now()
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("http server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("hub_path", s.cfg.HubPath),
		zap.Duration("startup", time.Since(start)),
	)

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Start runs ListenAndServe, letting the Server act as a lifecycle service.
func (s *Server) Start() error {
	return s.ListenAndServe()
}

// Addr returns the bound listener address, or "" before ListenAndServe binds.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down, closes every hijacked WebSocket and waits
// for their sessions to disconnect or ctx to expire.
//
// Postcondition: No new connections are accepted.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	err := s.srv.Shutdown(ctx)

	s.mu.Lock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.clients.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, fmt.Errorf("waiting for websocket clients: %w", ctx.Err()))
	}
	return err
}

func (s *Server) handleHub(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conns[id] = conn
	s.clients.Add(1)
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.conns, id)
			s.mu.Unlock()
			s.clients.Done()
		}()
		newClient(id, conn, s.chat, s.cfg, s.logger).run()
	}()
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Rooms    int    `json:"rooms"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.chat.Stats()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok", Sessions: stats.Sessions, Rooms: stats.Rooms}); err != nil {
		s.logger.Debug("writing health response", zap.Error(err))
	}
}

// originChecker accepts requests whose Origin matches one of allowed after
// scheme and host normalization. A "*" entry accepts every request.
func originChecker(allowed []string, logger *zap.Logger) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	allowAll := false
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
			continue
		}
		if norm, ok := normalizeOrigin(o); ok {
			set[norm] = struct{}{}
		} else {
			logger.Warn("ignoring invalid allowed origin", zap.String("origin", o))
		}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		norm, ok := normalizeOrigin(origin)
		if ok {
			if _, found := set[norm]; found {
				return true
			}
		}
		logger.Info("rejected websocket origin", zap.String("origin", origin))
		return false
	}
}

func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}
