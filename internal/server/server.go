package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tasklive/internal/api/ws"
	"github.com/gosuda/tasklive/internal/config"
	"github.com/gosuda/tasklive/internal/server/middleware"
	"github.com/gosuda/tasklive/internal/tracker"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	svc        *tracker.Service
	wsHub      *ws.Hub
}

// New creates a Server with all routes wired. conns receives every accepted
// push-channel connection; ctx bounds background middleware housekeeping.
func New(ctx context.Context, cfg *config.Config, svc *tracker.Service, conns ws.Registrar) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}).Handler)

	hub := ws.NewHub(conns, svc, originPatterns(cfg.Server.CORSOrigins))

	s := &Server{
		router: router,
		svc:    svc,
		wsHub:  hub,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	limit := middleware.RateLimit(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(limit)
		registerAPIRoutes(r, svc)
	})

	router.Route("/rpc", func(r chi.Router) {
		r.Use(limit)
		registerRPCRoutes(r, svc)
	})

	router.Get("/ws", hub.ServeHTTP)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Handler returns the root handler, for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// originPatterns turns CORS origins into the host patterns the WebSocket
// origin check expects.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			patterns = append(patterns, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			log.Warn().Str("origin", o).Msg("ignoring malformed CORS origin for websocket check")
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
