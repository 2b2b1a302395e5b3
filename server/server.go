package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/linkupapp/linkup/internal/config"
	"github.com/linkupapp/linkup/internal/handlers"
)

// Stripe waits a bounded time for a response before marking the delivery
// failed, so the write deadline stays well under that.
const (
	readTimeout       = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 20 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 64 << 10
)

type Server struct {
	port       string
	logger     *slog.Logger
	router     *mux.Router
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	switch {
	case cfg == nil:
		return nil, fmt.Errorf("config is required")
	case logger == nil:
		return nil, fmt.Errorf("logger is required")
	case h == nil:
		return nil, fmt.Errorf("handlers are required")
	}

	router := newRouter(h)
	return &Server{
		port:   cfg.Port,
		logger: logger.With("component", "server"),
		router: router,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort("", cfg.Port),
			Handler:           router,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}, nil
}

// Handler exposes the routed handler for in-process use.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func newRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods(http.MethodPost).Name("webhooks.stripe")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	return r
}
