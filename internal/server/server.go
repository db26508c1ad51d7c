// Package server exposes the table registry over HTTP and a websocket change feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lox/pokertables/internal/auth"
	"github.com/lox/pokertables/internal/registry"
)

const (
	maxBodySize     = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// Tokens issues, validates and revokes participant session tokens
type Tokens interface {
	auth.Validator
	Issue(tableID, participantID string) (string, error)
	Revoke(id *auth.Identity)
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithClock sets the clock driving websocket pings
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithPingPeriod overrides how often feeds ping their peers
func WithPingPeriod(d time.Duration) Option {
	return func(s *Server) { s.pingPeriod = d }
}

// Server serves the table API
type Server struct {
	registry   *registry.Registry
	tokens     Tokens
	logger     *log.Logger
	clock      quartz.Clock
	upgrader   websocket.Upgrader
	pingPeriod time.Duration

	mu    sync.Mutex
	feeds map[*feed]struct{}
}

// New creates a server over reg
func New(reg *registry.Registry, tokens Tokens, opts ...Option) *Server {
	s := &Server{
		registry:   reg,
		tokens:     tokens,
		logger:     log.Default(),
		clock:      quartz.NewReal(),
		pingPeriod: pingPeriod,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Feeds are read-only and token scoped
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		feeds: make(map[*feed]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("server")
	return s
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/games", func(r chi.Router) {
		r.Get("/", s.handleListGames)
		r.Post("/", s.handleCreateGame)

		r.Route("/{gameID}", func(r chi.Router) {
			r.Use(s.validGameID)
			r.Post("/join", s.handleJoin)

			r.Group(func(r chi.Router) {
				r.Use(s.optionalToken)
				r.Get("/state", s.handleState)
				r.Get("/listen", s.handleListen)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireToken)
				r.Post("/ready", s.handleReady)
				r.Post("/action", s.handleAction)
				r.Post("/quit", s.handleQuit)
			})
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully and closes open feeds.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	s.closeFeeds()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) track(f *feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[f] = struct{}{}
}

func (s *Server) untrack(f *feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, f)
}

func (s *Server) closeFeeds() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for f := range s.feeds {
		_ = f.Close() // Ignore close errors during shutdown
	}
}
